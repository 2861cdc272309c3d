package learn

import "fmt"

// Schedule holds the exploration schedule parameters.
type Schedule struct {
	Start float64 `yaml:"epsilon_start"`
	Min   float64 `yaml:"epsilon_min"`
	Decay float64 `yaml:"epsilon_decay"`
}

// DefaultSchedule returns the training defaults.
func DefaultSchedule() Schedule {
	return Schedule{Start: 1.0, Min: 0.05, Decay: 0.9997}
}

// Validate checks 0 <= min <= start <= 1 and 0 < decay <= 1.
func (s Schedule) Validate() error {
	if s.Min < 0 || s.Start > 1 || s.Min > s.Start {
		return fmt.Errorf("need 0 <= epsilon_min <= epsilon_start <= 1, got min=%g start=%g", s.Min, s.Start)
	}
	if s.Decay <= 0 || s.Decay > 1 {
		return fmt.Errorf("epsilon_decay must be in (0,1], got %g", s.Decay)
	}
	return nil
}

// Epsilon is the exploration rate. It decays multiplicatively and never
// drops below its floor, so successive values are non-increasing.
type Epsilon struct {
	value float64
	min   float64
	decay float64
}

// NewEpsilon starts the schedule. A start below the floor is raised to it.
func NewEpsilon(s Schedule) *Epsilon {
	return &Epsilon{value: max(s.Start, s.Min), min: s.Min, decay: s.Decay}
}

// Value returns the current rate.
func (e *Epsilon) Value() float64 { return e.value }

// Floor returns the minimum rate.
func (e *Epsilon) Floor() float64 { return e.min }

// Decay advances the schedule by one episode and returns the new rate.
func (e *Epsilon) Decay() float64 {
	e.value = max(e.min, e.value*e.decay)
	return e.value
}
