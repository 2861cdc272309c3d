package game

import "fmt"

// Variant selects the simulation engine.
type Variant string

const (
	VariantContinuous Variant = "continuous"
	VariantGrid       Variant = "grid"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantContinuous, VariantGrid:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown variant %q (supported: continuous, grid)", s)
	}
}

// Outcome records why an episode ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeHit
	OutcomeSurvived
	// OutcomeCapped is set by the trainer when an episode hits its step cap.
	OutcomeCapped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeSurvived:
		return "survived"
	case OutcomeCapped:
		return "capped"
	default:
		return "none"
	}
}

// MarshalText lets outcomes appear by name in JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (o *Outcome) UnmarshalText(b []byte) error {
	for c := OutcomeNone; c <= OutcomeCapped; c++ {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Env is a bullet-hell simulation engine. Implementations are not safe for
// concurrent use; a single owner drives Reset and Step.
type Env interface {
	// Reset returns the engine to its initial state.
	Reset()
	// Step applies action and advances the world by dt seconds. The grid
	// variant ignores dt. Once terminal, Step returns (0, true, nil) without
	// mutating state. Actions outside the enumeration return ErrInvalidAction.
	Step(action Action, dt float64) (reward float64, done bool, err error)
	// Done reports whether the current episode has ended.
	Done() bool
	// Outcome reports why the current episode ended.
	Outcome() Outcome
	// Frame returns the encoder input for the current state. The Bullets
	// slice is owned by the engine and valid until the next Step or Reset.
	Frame() Frame
	// Snapshot returns a read-only copy of the state for collaborators.
	Snapshot() Snapshot
	// Variant names the engine.
	Variant() Variant
}

// Frame is the raw state the Encoder consumes.
type Frame struct {
	Player  Point
	Bullets []Point

	// Extents of the player coordinate range, used for the wall flag.
	MinX, MinY float64
	MaxX, MaxY float64

	// TimeFrac is elapsed time (or steps) over the survival target.
	TimeFrac float64
}

// BodyView is a drawable circle or cell.
type BodyView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

// Snapshot is the read-only view handed to renderers and other observers.
type Snapshot struct {
	Variant    Variant    `json:"variant"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Cells      bool       `json:"cells"` // positions are grid cell indices
	Player     BodyView   `json:"player"`
	Bullets    []BodyView `json:"bullets"`
	Elapsed    float64    `json:"elapsed"` // seconds (continuous) or steps (grid)
	Steps      int        `json:"steps"`
	LastReward float64    `json:"last_reward"`
	Done       bool       `json:"done"`
	Outcome    Outcome    `json:"outcome"`
}
