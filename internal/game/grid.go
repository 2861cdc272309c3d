package game

import (
	"errors"
	"fmt"
	"math/rand"
)

// GridConfig holds the static parameters of the cell-space arena.
type GridConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	PlayerStep    int     `yaml:"player_step"` // cells per move
	BulletStep    int     `yaml:"bullet_step"` // cells per step
	SpawnProb     float64 `yaml:"spawn_prob"`  // per-step Bernoulli spawn chance
	SurvivalSteps int     `yaml:"survival_steps"`
	IdlePenalty   float64 `yaml:"idle_penalty"`
	HitPenalty    float64 `yaml:"hit_penalty"`
	SurviveReward float64 `yaml:"survive_reward"`
	StepReward    float64 `yaml:"step_reward"`
}

// DefaultGridConfig returns the training defaults for the 15x15 grid.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Width:         15,
		Height:        15,
		PlayerStep:    2,
		BulletStep:    1,
		SpawnProb:     0.2,
		SurvivalSteps: 300,
		IdlePenalty:   1,
		HitPenalty:    120,
		SurviveReward: 200,
		StepReward:    2,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c GridConfig) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("grid must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.PlayerStep <= 0 {
		errs = append(errs, fmt.Errorf("player_step must be > 0, got %d", c.PlayerStep))
	}
	if c.BulletStep <= 0 {
		errs = append(errs, fmt.Errorf("bullet_step must be > 0, got %d", c.BulletStep))
	}
	if c.SpawnProb < 0 || c.SpawnProb > 1 {
		errs = append(errs, fmt.Errorf("spawn_prob must be in [0,1], got %g", c.SpawnProb))
	}
	if c.SurvivalSteps <= 0 {
		errs = append(errs, fmt.Errorf("survival_steps must be > 0, got %d", c.SurvivalSteps))
	}
	return errors.Join(errs...)
}

// GridEnv is the discrete engine: integer cells, Bernoulli spawning,
// cell-equality collision.
type GridEnv struct {
	cfg GridConfig
	rng *rand.Rand
	log *EventLog

	player  GridPlayer
	bullets []GridBullet

	steps      int
	done       bool
	outcome    Outcome
	lastReward float64

	frameBuf []Point
}

// NewGrid builds a grid engine in its reset state.
func NewGrid(cfg GridConfig, opts ...Option) *GridEnv {
	o := applyOptions(opts)
	e := &GridEnv{
		cfg: cfg,
		rng: o.rng,
		log: o.log,
	}
	e.Reset()
	return e
}

// Config returns the engine parameters.
func (e *GridEnv) Config() GridConfig { return e.cfg }

// Variant implements Env.
func (e *GridEnv) Variant() Variant { return VariantGrid }

// Reset implements Env.
func (e *GridEnv) Reset() {
	e.player = GridPlayer{X: e.cfg.Width / 2, Y: e.cfg.Height / 2}
	e.bullets = e.bullets[:0]
	e.steps = 0
	e.done = false
	e.outcome = OutcomeNone
	e.lastReward = 0
	e.log.Add(0, "reset", "", 0)
}

// Done implements Env.
func (e *GridEnv) Done() bool { return e.done }

// Outcome implements Env.
func (e *GridEnv) Outcome() Outcome { return e.outcome }

// Player returns a copy of the player state.
func (e *GridEnv) Player() GridPlayer { return e.player }

// Bullets returns a copy of the live bullets in insertion order.
func (e *GridEnv) Bullets() []GridBullet {
	out := make([]GridBullet, len(e.bullets))
	copy(out, e.bullets)
	return out
}

// Steps returns the number of steps taken in the current episode.
func (e *GridEnv) Steps() int { return e.steps }

// Step implements Env. dt is ignored: every call is one grid step.
func (e *GridEnv) Step(action Action, _ float64) (float64, bool, error) {
	if err := action.Check(); err != nil {
		return 0, e.done, err
	}
	if e.done {
		return 0, true, nil
	}
	e.steps++

	dx, dy := action.Delta()
	e.player.X = clampI(e.player.X+dx*e.cfg.PlayerStep, 0, e.cfg.Width-1)
	e.player.Y = clampI(e.player.Y+dy*e.cfg.PlayerStep, 0, e.cfg.Height-1)

	if e.rng.Float64() < e.cfg.SpawnProb {
		e.spawn()
	}

	kept := e.bullets[:0]
	for _, b := range e.bullets {
		b.X += e.cfg.BulletStep * b.DX
		b.Y += e.cfg.BulletStep * b.DY
		if e.inBounds(b.X, b.Y) {
			kept = append(kept, b)
			continue
		}
		e.log.AddVerbose(e.steps, "cull", fmt.Sprintf("bullet (%d,%d)", b.X, b.Y), 0)
	}
	e.bullets = kept

	if e.hit(e.player.X, e.player.Y) {
		e.log.Add(e.steps, "hit", fmt.Sprintf("cell (%d,%d)", e.player.X, e.player.Y), 0)
		return e.finish(-e.cfg.HitPenalty, OutcomeHit), true, nil
	}

	if e.steps >= e.cfg.SurvivalSteps {
		e.log.Add(e.steps, "survive", fmt.Sprintf("steps=%d", e.steps), float64(e.steps))
		return e.finish(e.cfg.SurviveReward, OutcomeSurvived), true, nil
	}

	reward := e.cfg.StepReward
	if action == ActionStay {
		reward -= e.cfg.IdlePenalty
	}
	e.lastReward = reward
	return reward, false, nil
}

func (e *GridEnv) finish(reward float64, outcome Outcome) float64 {
	e.done = true
	e.outcome = outcome
	e.lastReward = reward
	return reward
}

func (e *GridEnv) inBounds(x, y int) bool {
	return x >= 0 && x < e.cfg.Width && y >= 0 && y < e.cfg.Height
}

// hit reports whether any live bullet occupies cell (x, y).
func (e *GridEnv) hit(x, y int) bool {
	for _, b := range e.bullets {
		if b.X == x && b.Y == y {
			return true
		}
	}
	return false
}

// spawn adds one bullet on a random border cell. Its direction is the
// per-axis sign toward an independent random interior cell; a zero
// direction falls back to +X so every bullet moves.
func (e *GridEnv) spawn() {
	w, h := e.cfg.Width, e.cfg.Height
	var x, y int
	switch e.rng.Intn(4) {
	case 0: // top
		x, y = e.rng.Intn(w), 0
	case 1: // bottom
		x, y = e.rng.Intn(w), h-1
	case 2: // left
		x, y = 0, e.rng.Intn(h)
	default: // right
		x, y = w-1, e.rng.Intn(h)
	}
	tx := e.rng.Intn(w)
	ty := e.rng.Intn(h)

	dx, dy := sign(tx-x), sign(ty-y)
	if dx == 0 && dy == 0 {
		dx = 1
	}
	e.bullets = append(e.bullets, GridBullet{X: x, Y: y, DX: dx, DY: dy})
	e.log.AddVerbose(e.steps, "spawn", fmt.Sprintf("(%d,%d) dir (%d,%d)", x, y, dx, dy), 0)
}

// Frame implements Env.
func (e *GridEnv) Frame() Frame {
	e.frameBuf = e.frameBuf[:0]
	for _, b := range e.bullets {
		e.frameBuf = append(e.frameBuf, Point{X: float64(b.X), Y: float64(b.Y)})
	}
	return Frame{
		Player:   Point{X: float64(e.player.X), Y: float64(e.player.Y)},
		Bullets:  e.frameBuf,
		MinX:     0,
		MinY:     0,
		MaxX:     float64(e.cfg.Width - 1),
		MaxY:     float64(e.cfg.Height - 1),
		TimeFrac: float64(e.steps) / float64(max(1, e.cfg.SurvivalSteps)),
	}
}

// Snapshot implements Env.
func (e *GridEnv) Snapshot() Snapshot {
	bullets := make([]BodyView, len(e.bullets))
	for i, b := range e.bullets {
		bullets[i] = BodyView{X: float64(b.X), Y: float64(b.Y), R: 0.5}
	}
	return Snapshot{
		Variant:    VariantGrid,
		Width:      float64(e.cfg.Width),
		Height:     float64(e.cfg.Height),
		Cells:      true,
		Player:     BodyView{X: float64(e.player.X), Y: float64(e.player.Y), R: 0.5},
		Bullets:    bullets,
		Elapsed:    float64(e.steps),
		Steps:      e.steps,
		LastReward: e.lastReward,
		Done:       e.done,
		Outcome:    e.outcome,
	}
}
