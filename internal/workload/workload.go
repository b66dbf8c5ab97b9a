// Package workload implements the comparative lock benchmark.
package workload

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/trivago/tgo/tsync"
	"golang.org/x/exp/slices"
)

// Kind names the lock protecting the counter.
type Kind string

// Lock kinds.
const (
	Spin        Kind = "spin"        // spinlock.Lock
	Mutex       Kind = "mutex"       // sync.Mutex baseline
	Partitioned Kind = "partitioned" // partitioned spinlock counter
)

// Kinds lists all lock kinds.
var Kinds = []Kind{Spin, Mutex, Partitioned}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if !slices.Contains(Kinds, k) {
		return "", errors.Errorf("unknown lock kind %q", s)
	}
	return k, nil
}

// ParseKinds parses a comma separated list of kinds.
func ParseKinds(s string) ([]Kind, error) {
	var kinds []Kind
	for _, name := range strings.Split(s, ",") {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Result is the outcome of one run.
type Result struct {
	Kind       Kind
	Threads    int
	Iterations int
	Counter    uint64
	Elapsed    time.Duration // wall clock time of all workers
	WorkerMin  time.Duration
	WorkerMax  time.Duration
	WorkerMean time.Duration
}

// Check returns an error if updates were lost or duplicated.
func (r *Result) Check() error {
	if expected := uint64(r.Threads) * uint64(r.Iterations); r.Counter != expected {
		return errors.Errorf("%s: counter %d - expected %d", r.Kind, r.Counter, expected)
	}
	return nil
}

func worker(no int, c counter, cfg *Config, start *atomic.Bool, timer metrics.Timer, wg *sync.WaitGroup, log logrus.FieldLogger) {
	defer wg.Done()

	spin := tsync.NewSpinner(tsync.SpinPriorityRealtime)
	for !start.Load() {
		spin.Yield()
	}

	now := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		c.incr(no, cfg.Work)
	}
	elapsed := time.Since(now)

	timer.Update(elapsed)
	log.WithFields(logrus.Fields{"worker": no, "elapsed": elapsed}).Debug("worker finished")
}

// Run runs the workload against a counter protected by kind.
// Once the workers are started the run cannot be cancelled.
func Run(ctx context.Context, kind Kind, cfg *Config, log logrus.FieldLogger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log = log.WithField("kind", kind)
	c := newCounter(kind, cfg)
	timer := metrics.NewTimer()
	defer timer.Stop()
	start := new(atomic.Bool)

	// spin up workers
	wg := new(sync.WaitGroup)
	wg.Add(cfg.Threads)
	for i := 0; i < cfg.Threads; i++ {
		go worker(i, c, cfg, start, timer, wg, log)
	}

	now := time.Now()
	start.Store(true)
	wg.Wait()
	elapsed := time.Since(now)

	return &Result{
		Kind:       kind,
		Threads:    cfg.Threads,
		Iterations: cfg.Iterations,
		Counter:    c.value(),
		Elapsed:    elapsed,
		WorkerMin:  time.Duration(timer.Min()),
		WorkerMax:  time.Duration(timer.Max()),
		WorkerMean: time.Duration(timer.Mean()),
	}, nil
}

// Compare runs the workload for each kind in order.
func Compare(ctx context.Context, kinds []Kind, cfg *Config, log logrus.FieldLogger) ([]*Result, error) {
	results := make([]*Result, 0, len(kinds))
	for _, kind := range kinds {
		result, err := Run(ctx, kind, cfg, log)
		if err != nil {
			return results, errors.Wrapf(err, "run %s", kind)
		}
		log.WithFields(logrus.Fields{
			"kind":    result.Kind,
			"counter": result.Counter,
			"elapsed": result.Elapsed,
		}).Info("run finished")
		results = append(results, result)
	}
	return results, nil
}
