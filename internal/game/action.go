package game

import (
	"errors"
	"fmt"
)

// Action is one of the five discrete player moves.
type Action int

const (
	ActionUp Action = iota
	ActionDown
	ActionLeft
	ActionRight
	ActionStay

	// ActionCount is the size of the action enumeration.
	ActionCount = 5
)

// ErrInvalidAction is returned when an action outside the enumeration is used.
var ErrInvalidAction = errors.New("invalid action")

// Valid reports whether a is one of the five defined actions.
func (a Action) Valid() bool {
	return a >= ActionUp && a <= ActionStay
}

// Check returns a wrapped ErrInvalidAction when a is not valid.
func (a Action) Check() error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}
	return nil
}

// Delta returns the unit direction of the action in screen coordinates
// (y grows downward).
func (a Action) Delta() (dx, dy int) {
	switch a {
	case ActionUp:
		return 0, -1
	case ActionDown:
		return 0, 1
	case ActionLeft:
		return -1, 0
	case ActionRight:
		return 1, 0
	default:
		return 0, 0
	}
}

func (a Action) String() string {
	switch a {
	case ActionUp:
		return "up"
	case ActionDown:
		return "down"
	case ActionLeft:
		return "left"
	case ActionRight:
		return "right"
	case ActionStay:
		return "stay"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
