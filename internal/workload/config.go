package workload

import (
	"github.com/pkg/errors"
)

// Defaults of the comparative scenario.
const (
	DefaultThreads    = 10
	DefaultIterations = 1000000
)

// ErrInvalidConfig is the cause of all Validate errors.
var ErrInvalidConfig = errors.New("invalid workload config")

// Config describes a workload: Threads workers each performing Iterations
// protected increments.
type Config struct {
	Threads    int `yaml:"threads"`
	Iterations int `yaml:"iterations"`
	// Work is the number of busy loop rounds spent inside each critical
	// section. Zero keeps critical sections as short as possible.
	Work int `yaml:"work"`
	// Parts is the number of parts used by the partitioned counter.
	// Zero means one part per worker.
	Parts int `yaml:"parts"`
}

// DefaultConfig returns the 10 x 1,000,000 increments scenario.
func DefaultConfig() *Config {
	return &Config{Threads: DefaultThreads, Iterations: DefaultIterations}
}

// Validate checks the config values.
func (c *Config) Validate() error {
	switch {
	case c.Threads < 1:
		return errors.Wrapf(ErrInvalidConfig, "threads %d", c.Threads)
	case c.Iterations < 1:
		return errors.Wrapf(ErrInvalidConfig, "iterations %d", c.Iterations)
	case c.Work < 0:
		return errors.Wrapf(ErrInvalidConfig, "work %d", c.Work)
	case c.Parts < 0:
		return errors.Wrapf(ErrInvalidConfig, "parts %d", c.Parts)
	}
	return nil
}

// Expected returns the counter value a correct run ends with.
func (c *Config) Expected() uint64 { return uint64(c.Threads) * uint64(c.Iterations) }

func (c *Config) numPart() int {
	if c.Parts == 0 {
		return c.Threads
	}
	return c.Parts
}
