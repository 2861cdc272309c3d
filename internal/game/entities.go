package game

// Player is the dodging agent in the continuous arena.
type Player struct {
	X     float64
	Y     float64
	R     float64 // collision radius
	Speed float64 // px/s
}

// Bullet is a projectile in the continuous arena. Velocity is fixed at spawn.
type Bullet struct {
	X  float64
	Y  float64
	VX float64
	VY float64
	R  float64
}

// GridPlayer is the dodging agent on the grid. It occupies exactly one cell.
type GridPlayer struct {
	X int
	Y int
}

// GridBullet is a projectile on the grid. DX and DY are per-step unit signs
// and are never both zero.
type GridBullet struct {
	X  int
	Y  int
	DX int
	DY int
}
