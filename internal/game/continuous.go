package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// survivalEpsilon absorbs float drift when summing many small dt values, so
// 2400 steps of 1/60s count as 40s.
const survivalEpsilon = 1e-9

// ContinuousConfig holds the static parameters of the pixel-space arena.
type ContinuousConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	PlayerRadius    float64 `yaml:"player_radius"`
	PlayerSpeed     float64 `yaml:"player_speed"` // px/s
	BulletRadius    float64 `yaml:"bullet_radius"`
	BulletSpeed     float64 `yaml:"bullet_speed"`   // px/s
	SpawnInterval   float64 `yaml:"spawn_interval"` // seconds per bullet
	MaxBullets      int     `yaml:"max_bullets"`
	CullMargin      float64 `yaml:"cull_margin"`
	SurvivalSeconds float64 `yaml:"survival_seconds"`
	IdlePenalty     float64 `yaml:"idle_penalty"`
	HitPenalty      float64 `yaml:"hit_penalty"`
	SurviveReward   float64 `yaml:"survive_reward"`
	StepReward      float64 `yaml:"step_reward"`
}

// DefaultContinuousConfig returns the training defaults.
func DefaultContinuousConfig() ContinuousConfig {
	return ContinuousConfig{
		Width:           1024,
		Height:          1024,
		PlayerRadius:    14,
		PlayerSpeed:     320,
		BulletRadius:    8,
		BulletSpeed:     220,
		SpawnInterval:   0.12,
		MaxBullets:      800,
		CullMargin:      60,
		SurvivalSeconds: 40,
		IdlePenalty:     0.9,
		HitPenalty:      200,
		SurviveReward:   200,
		StepReward:      1,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c ContinuousConfig) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("arena must be positive, got %gx%g", c.Width, c.Height))
	}
	if c.PlayerRadius <= 0 || 2*c.PlayerRadius > math.Min(c.Width, c.Height) {
		errs = append(errs, fmt.Errorf("player_radius %g does not fit the arena", c.PlayerRadius))
	}
	if c.BulletRadius <= 0 {
		errs = append(errs, fmt.Errorf("bullet_radius must be > 0, got %g", c.BulletRadius))
	}
	if c.SpawnInterval <= 0 {
		errs = append(errs, fmt.Errorf("spawn_interval must be > 0, got %g", c.SpawnInterval))
	}
	if c.MaxBullets <= 0 {
		errs = append(errs, fmt.Errorf("max_bullets must be > 0, got %d", c.MaxBullets))
	}
	if c.CullMargin < 0 {
		errs = append(errs, fmt.Errorf("cull_margin must be >= 0, got %g", c.CullMargin))
	}
	if c.SurvivalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("survival_seconds must be > 0, got %g", c.SurvivalSeconds))
	}
	return errors.Join(errs...)
}

// ContinuousEnv is the pixel-space engine: float positions, circle collision,
// fixed-interval spawning.
type ContinuousEnv struct {
	cfg   ContinuousConfig
	arena Arena
	rng   *rand.Rand
	log   *EventLog

	player  Player
	bullets []Bullet

	elapsed    float64
	spawnAcc   float64
	steps      int
	done       bool
	outcome    Outcome
	lastReward float64

	frameBuf []Point
}

// NewContinuous builds a continuous engine in its reset state.
func NewContinuous(cfg ContinuousConfig, opts ...Option) *ContinuousEnv {
	o := applyOptions(opts)
	e := &ContinuousEnv{
		cfg:   cfg,
		arena: Arena{Width: cfg.Width, Height: cfg.Height},
		rng:   o.rng,
		log:   o.log,
	}
	e.Reset()
	return e
}

// Config returns the engine parameters.
func (e *ContinuousEnv) Config() ContinuousConfig { return e.cfg }

// Variant implements Env.
func (e *ContinuousEnv) Variant() Variant { return VariantContinuous }

// Reset implements Env.
func (e *ContinuousEnv) Reset() {
	c := e.arena.Center()
	e.player = Player{X: c.X, Y: c.Y, R: e.cfg.PlayerRadius, Speed: e.cfg.PlayerSpeed}
	e.bullets = e.bullets[:0]
	e.elapsed = 0
	e.spawnAcc = 0
	e.steps = 0
	e.done = false
	e.outcome = OutcomeNone
	e.lastReward = 0
	e.log.Add(0, "reset", "", 0)
}

// Done implements Env.
func (e *ContinuousEnv) Done() bool { return e.done }

// Outcome implements Env.
func (e *ContinuousEnv) Outcome() Outcome { return e.outcome }

// Player returns a copy of the player state.
func (e *ContinuousEnv) Player() Player { return e.player }

// Bullets returns a copy of the live bullets in insertion order.
func (e *ContinuousEnv) Bullets() []Bullet {
	out := make([]Bullet, len(e.bullets))
	copy(out, e.bullets)
	return out
}

// Elapsed returns simulated seconds survived in the current episode.
func (e *ContinuousEnv) Elapsed() float64 { return e.elapsed }

// Step implements Env.
func (e *ContinuousEnv) Step(action Action, dt float64) (float64, bool, error) {
	if err := action.Check(); err != nil {
		return 0, e.done, err
	}
	if e.done {
		return 0, true, nil
	}
	e.steps++

	// 1. Move and clamp the player.
	dx, dy := action.Delta()
	p := &e.player
	p.X += float64(dx) * p.Speed * dt
	p.Y += float64(dy) * p.Speed * dt
	p.X, p.Y = e.arena.ClampInset(p.X, p.Y, p.R)

	// 2. Fixed-interval spawning; a long dt may spawn several bullets.
	e.spawnAcc += dt
	for e.spawnAcc >= e.cfg.SpawnInterval {
		e.spawnAcc -= e.cfg.SpawnInterval
		e.spawn()
	}

	// 3. Advance bullets.
	for i := range e.bullets {
		b := &e.bullets[i]
		b.X += b.VX * dt
		b.Y += b.VY * dt
	}

	// 4. Cull bullets outside the arena plus margin.
	kept := e.bullets[:0]
	for _, b := range e.bullets {
		if e.arena.Contains(b.X, b.Y, e.cfg.CullMargin) {
			kept = append(kept, b)
			continue
		}
		e.log.AddVerbose(e.steps, "cull", fmt.Sprintf("bullet (%.1f,%.1f)", b.X, b.Y), 0)
	}
	e.bullets = kept

	// 5. Collision.
	for _, b := range e.bullets {
		if circleHit(p.X, p.Y, p.R, b.X, b.Y, b.R) {
			e.log.Add(e.steps, "hit", fmt.Sprintf("bullet (%.1f,%.1f)", b.X, b.Y), b.X)
			return e.finish(-e.cfg.HitPenalty, OutcomeHit), true, nil
		}
	}

	// 6. Survival.
	e.elapsed += dt
	if e.elapsed >= e.cfg.SurvivalSeconds-survivalEpsilon {
		e.log.Add(e.steps, "survive", fmt.Sprintf("t=%.3fs", e.elapsed), e.elapsed)
		return e.finish(e.cfg.SurviveReward, OutcomeSurvived), true, nil
	}

	reward := e.cfg.StepReward
	if action == ActionStay {
		reward -= e.cfg.IdlePenalty
	}
	e.lastReward = reward
	return reward, false, nil
}

func (e *ContinuousEnv) finish(reward float64, outcome Outcome) float64 {
	e.done = true
	e.outcome = outcome
	e.lastReward = reward
	return reward
}

// spawn adds one bullet on a random border heading toward a random interior
// point. The target is independent of the player, so bullets never home.
func (e *ContinuousEnv) spawn() {
	w, h := e.cfg.Width, e.cfg.Height
	var x, y float64
	switch e.rng.Intn(4) {
	case 0: // top
		x, y = e.rng.Float64()*w, 0
	case 1: // bottom
		x, y = e.rng.Float64()*w, h
	case 2: // left
		x, y = 0, e.rng.Float64()*h
	default: // right
		x, y = w, e.rng.Float64()*h
	}
	tx := e.rng.Float64() * w
	ty := e.rng.Float64() * h

	vx, vy := headingTo(x, y, tx, ty, e.cfg.BulletSpeed)
	e.bullets = append(e.bullets, Bullet{X: x, Y: y, VX: vx, VY: vy, R: e.cfg.BulletRadius})
	e.log.AddVerbose(e.steps, "spawn", fmt.Sprintf("(%.1f,%.1f) -> (%.1f,%.1f)", x, y, tx, ty), 0)

	if over := len(e.bullets) - e.cfg.MaxBullets; over > 0 {
		e.bullets = append(e.bullets[:0], e.bullets[over:]...)
		e.log.Add(e.steps, "evict", fmt.Sprintf("%d oldest", over), float64(over))
	}
}

// headingTo returns a velocity of the given speed from (x, y) toward
// (tx, ty). Coincident points fall back to +X.
func headingTo(x, y, tx, ty, speed float64) (float64, float64) {
	dx := tx - x
	dy := ty - y
	norm := math.Hypot(dx, dy)
	if norm < 1e-9 {
		dx, dy, norm = 1, 0, 1
	}
	return speed * dx / norm, speed * dy / norm
}

// Frame implements Env.
func (e *ContinuousEnv) Frame() Frame {
	e.frameBuf = e.frameBuf[:0]
	for _, b := range e.bullets {
		e.frameBuf = append(e.frameBuf, Point{X: b.X, Y: b.Y})
	}
	return Frame{
		Player:   Point{X: e.player.X, Y: e.player.Y},
		Bullets:  e.frameBuf,
		MinX:     0,
		MinY:     0,
		MaxX:     e.cfg.Width,
		MaxY:     e.cfg.Height,
		TimeFrac: e.elapsed / e.cfg.SurvivalSeconds,
	}
}

// Snapshot implements Env.
func (e *ContinuousEnv) Snapshot() Snapshot {
	bullets := make([]BodyView, len(e.bullets))
	for i, b := range e.bullets {
		bullets[i] = BodyView{X: b.X, Y: b.Y, R: b.R}
	}
	return Snapshot{
		Variant:    VariantContinuous,
		Width:      e.cfg.Width,
		Height:     e.cfg.Height,
		Player:     BodyView{X: e.player.X, Y: e.player.Y, R: e.player.R},
		Bullets:    bullets,
		Elapsed:    e.elapsed,
		Steps:      e.steps,
		LastReward: e.lastReward,
		Done:       e.done,
		Outcome:    e.outcome,
	}
}
