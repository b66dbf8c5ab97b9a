// Command spinbench compares the spinlock against sync.Mutex over the same
// workload: worker goroutines each performing protected counter increments.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-ricrob/spinlock/internal/logger"
	"github.com/go-ricrob/spinlock/internal/workload"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffyaml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"
	"gopkg.in/yaml.v2"
)

const envPrefix = "SPINBENCH"

type options struct {
	cfg     workload.Config
	kinds   string
	report  string
	verbose bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("spinbench", flag.ContinueOnError)
	fs.IntVar(&opts.cfg.Threads, "threads", workload.DefaultThreads, "number of worker goroutines")
	fs.IntVar(&opts.cfg.Iterations, "iterations", workload.DefaultIterations, "protected increments per worker")
	fs.IntVar(&opts.cfg.Work, "work", 0, "busy loop rounds inside each critical section")
	fs.IntVar(&opts.cfg.Parts, "parts", 0, "parts of the partitioned counter (0: one per worker)")
	fs.StringVar(&opts.kinds, "kinds", "spin,mutex", "comma separated lock kinds (spin, mutex, partitioned)")
	fs.StringVar(&opts.report, "report", "", "write a YAML report to this file")
	fs.BoolVar(&opts.verbose, "verbose", false, "log per worker timings")
	fs.String("config", "", "YAML config file")

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
	); err != nil {
		return nil, err
	}
	return opts, nil
}

type reportResult struct {
	Kind       string `yaml:"kind"`
	Counter    uint64 `yaml:"counter"`
	Elapsed    string `yaml:"elapsed"`
	WorkerMin  string `yaml:"worker_min"`
	WorkerMax  string `yaml:"worker_max"`
	WorkerMean string `yaml:"worker_mean"`
	OK         bool   `yaml:"ok"`
}

type report struct {
	GoVersion  string          `yaml:"go_version"`
	GOMAXPROCS int             `yaml:"gomaxprocs"`
	Config     workload.Config `yaml:"config"`
	Results    []reportResult  `yaml:"results"`
}

func newReport(cfg *workload.Config, results []*workload.Result) *report {
	r := &report{GoVersion: runtime.Version(), GOMAXPROCS: runtime.GOMAXPROCS(0), Config: *cfg}
	for _, result := range results {
		r.Results = append(r.Results, reportResult{
			Kind:       string(result.Kind),
			Counter:    result.Counter,
			Elapsed:    result.Elapsed.String(),
			WorkerMin:  result.WorkerMin.String(),
			WorkerMax:  result.WorkerMax.String(),
			WorkerMean: result.WorkerMean.String(),
			OK:         result.Check() == nil,
		})
	}
	return r
}

func writeReport(filename string, r *report) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return errors.Wrap(os.WriteFile(filename, b, 0644), "write report")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	log := logger.New(out, opts.verbose)

	undo, err := maxprocs.Set(maxprocs.Logger(log.Debugf))
	defer undo()
	if err != nil {
		log.WithError(err).Warning("failed to set GOMAXPROCS")
	}

	kinds, err := workload.ParseKinds(opts.kinds)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"threads":    opts.cfg.Threads,
		"iterations": opts.cfg.Iterations,
		"work":       opts.cfg.Work,
		"gomaxprocs": runtime.GOMAXPROCS(0),
	}).Info("starting")

	results, err := workload.Compare(ctx, kinds, &opts.cfg, log)
	if err != nil {
		return err
	}

	if opts.report != "" {
		if err := writeReport(opts.report, newReport(&opts.cfg, results)); err != nil {
			return err
		}
	}

	for _, result := range results {
		if err := result.Check(); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
