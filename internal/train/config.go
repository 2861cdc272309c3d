package train

import (
	"errors"
	"fmt"

	"github.com/Garsondee/Dodge-Sense/internal/learn"
)

// Config holds the static run parameters of the training loop.
type Config struct {
	Episodes    int     `yaml:"episodes"`
	MaxSteps    int     `yaml:"max_steps"` // per-episode safety cap
	DT          float64 `yaml:"dt"`        // seconds per step (continuous variant)
	ReportEvery int     `yaml:"report_every"`
	DemoEvery   int     `yaml:"demo_every"` // 0 disables greedy demo episodes
	TraceSteps  bool    `yaml:"trace_steps"`

	learn.Schedule `yaml:",inline"`
}

// DefaultConfig returns the training defaults.
func DefaultConfig() Config {
	return Config{
		Episodes:    15000,
		MaxSteps:    12000,
		DT:          1.0 / 60.0,
		ReportEvery: 1000,
		DemoEvery:   0,
		Schedule:    learn.DefaultSchedule(),
	}
}

// Validate checks the loop parameters.
func (c Config) Validate() error {
	var errs []error
	if c.Episodes <= 0 {
		errs = append(errs, fmt.Errorf("episodes must be > 0, got %d", c.Episodes))
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("max_steps must be > 0, got %d", c.MaxSteps))
	}
	if c.DT <= 0 {
		errs = append(errs, fmt.Errorf("dt must be > 0, got %g", c.DT))
	}
	if c.ReportEvery <= 0 {
		errs = append(errs, fmt.Errorf("report_every must be > 0, got %d", c.ReportEvery))
	}
	if c.DemoEvery < 0 {
		errs = append(errs, fmt.Errorf("demo_every must be >= 0, got %d", c.DemoEvery))
	}
	if err := c.Schedule.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
