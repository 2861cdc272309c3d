package game

import "math"

// Point is a position in arena units (pixels for the continuous variant,
// cells for the grid variant).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Arena is the fixed rectangular playfield. Positions run from 0 to
// Width/Height along each axis.
type Arena struct {
	Width  float64
	Height float64
}

// Center returns the arena midpoint.
func (a Arena) Center() Point {
	return Point{X: a.Width / 2, Y: a.Height / 2}
}

// Contains reports whether (x, y) lies inside the arena grown by margin on
// every side. Bounds are inclusive.
func (a Arena) Contains(x, y, margin float64) bool {
	return x >= -margin && x <= a.Width+margin &&
		y >= -margin && y <= a.Height+margin
}

// ClampInset clamps (x, y) so that a circle of radius r stays inside the arena.
func (a Arena) ClampInset(x, y, r float64) (float64, float64) {
	return clampF(x, r, a.Width-r), clampF(y, r, a.Height-r)
}

// circleHit is the circle-circle overlap test. Touching circles count as a hit.
func circleHit(ax, ay, ar, bx, by, br float64) bool {
	dx := ax - bx
	dy := ay - by
	rr := ar + br
	return dx*dx+dy*dy <= rr*rr
}

func euclidean(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

func manhattan(dx, dy float64) float64 {
	return math.Abs(dx) + math.Abs(dy)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
