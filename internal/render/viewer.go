// Package render draws a live episode with ebiten and lets a human or a
// trained policy drive it.
package render

import (
	"fmt"
	"log"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

// Mode selects who chooses actions.
type Mode string

const (
	ModeHuman Mode = "human"
	ModeAgent Mode = "agent"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHuman, ModeAgent:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (supported: human, agent)", s)
	}
}

// Policy picks an action for an observation. *learn.Table satisfies it
// through Greedy.
type Policy interface {
	Greedy(game.Observation) game.Action
}

const (
	// resetDelay is how long a finished episode stays on screen.
	resetDelay = 1.5
	hudHeight  = 56
	statusTTL  = 120 // updates
)

// Options configures a Viewer.
type Options struct {
	Mode Mode
	// DT is the simulated seconds per engine step (continuous variant).
	DT float64
	// StepEvery advances the engine once per this many updates. Grid play
	// needs more than one to be followable by eye.
	StepEvery int
	// ViewSize is the playfield edge in screen pixels.
	ViewSize int
	Logger   *log.Logger
}

// DefaultOptions returns settings for 60 updates per second.
func DefaultOptions(v game.Variant) Options {
	o := Options{Mode: ModeHuman, DT: 1.0 / 60.0, StepEvery: 1, ViewSize: 768}
	if v == game.VariantGrid {
		o.StepEvery = 8
	}
	return o
}

// Viewer implements ebiten.Game over one engine.
type Viewer struct {
	env    game.Env
	enc    game.Encoder
	policy Policy
	opts   Options

	face  *text.GoXFace
	keys  edgeKeys
	clip  func(string) error
	scale float64

	tick      int
	sinceDone float64
	episode   int
	reward    float64
	best      float64
	survived  int
	hits      int

	status      string
	statusUntil int
}

// New builds a viewer. policy may be nil in human mode.
func New(env game.Env, enc game.Encoder, policy Policy, opts Options) (*Viewer, error) {
	if opts.Mode == ModeAgent && policy == nil {
		return nil, fmt.Errorf("agent mode needs a policy")
	}
	if opts.DT <= 0 {
		opts.DT = 1.0 / 60.0
	}
	if opts.StepEvery <= 0 {
		opts.StepEvery = 1
	}
	if opts.ViewSize <= 0 {
		opts.ViewSize = 768
	}
	s := env.Snapshot()
	v := &Viewer{
		env:    env,
		enc:    enc,
		policy: policy,
		opts:   opts,
		face:   text.NewGoXFace(basicfont.Face7x13),
		clip:   clipboard.WriteAll,
		scale:  float64(opts.ViewSize) / max(s.Width, s.Height),
		best:   -1e300,
	}
	env.Reset()
	return v, nil
}

// Update implements ebiten.Game.
func (v *Viewer) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if v.keys.pressed(ebiten.KeyC, ebiten.IsKeyPressed(ebiten.KeyC)) {
		v.copySummary()
	}
	v.advance(actionFromKeys(ebiten.IsKeyPressed))
	return nil
}

// advance runs one update: it steps the engine on schedule, or counts down
// to the automatic reset after a terminal state. human is the action from
// the keyboard and is ignored in agent mode.
func (v *Viewer) advance(human game.Action) {
	v.tick++
	dt := 1.0 / float64(ebiten.DefaultTPS)
	if v.env.Done() {
		v.sinceDone += dt
		if v.sinceDone >= resetDelay {
			v.reset()
		}
		return
	}
	if v.tick%v.opts.StepEvery != 0 {
		return
	}

	action := human
	if v.opts.Mode == ModeAgent {
		action = v.policy.Greedy(v.enc.Encode(v.env.Frame()))
	}
	r, done, err := v.env.Step(action, v.opts.DT)
	if err != nil {
		v.setStatus(err.Error())
		return
	}
	v.reward += r
	if done {
		v.finishEpisode()
	}
}

func (v *Viewer) finishEpisode() {
	v.episode++
	v.best = max(v.best, v.reward)
	switch v.env.Outcome() {
	case game.OutcomeSurvived:
		v.survived++
	case game.OutcomeHit:
		v.hits++
	}
	v.sinceDone = 0
	v.logf("episode %d: %s reward=%.1f", v.episode, v.env.Outcome(), v.reward)
}

func (v *Viewer) reset() {
	v.env.Reset()
	v.reward = 0
	v.sinceDone = 0
}

func (v *Viewer) copySummary() {
	if err := v.clip(v.summary()); err != nil {
		v.setStatus("clipboard unavailable: " + err.Error())
		v.logf("clipboard: %v", err)
		return
	}
	v.setStatus("summary copied")
}

func (v *Viewer) setStatus(s string) {
	v.status = s
	v.statusUntil = v.tick + statusTTL
}

func (v *Viewer) logf(format string, args ...any) {
	if v.opts.Logger != nil {
		v.opts.Logger.Printf(format, args...)
	}
}

// Layout implements ebiten.Game.
func (v *Viewer) Layout(_, _ int) (int, int) {
	return v.opts.ViewSize, v.opts.ViewSize + hudHeight
}
