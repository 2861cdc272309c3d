// Package train runs tabular Q-learning episodes against a simulation
// engine and fans results out to optional observers.
package train

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Garsondee/Dodge-Sense/internal/game"
	"github.com/Garsondee/Dodge-Sense/internal/learn"
)

// Trainer owns the engine, encoder, table and random source for a run.
// None of them may be shared with another goroutine while it runs.
type Trainer struct {
	env   game.Env
	enc   game.Encoder
	table *learn.Table
	eps   *learn.Epsilon
	rng   *rand.Rand
	cfg   Config

	observers     []Observer
	stepObservers []StepObserver

	episode  int
	rewards  []float64
	outcomes [game.OutcomeCapped + 1]int
	started  time.Time
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithObserver registers o for episode summaries. If o also implements
// StepObserver it receives step events too.
func WithObserver(o Observer) Option {
	return func(t *Trainer) {
		t.observers = append(t.observers, o)
		if so, ok := o.(StepObserver); ok {
			t.stepObservers = append(t.stepObservers, so)
		}
	}
}

// WithStepObserver registers so for step events only.
func WithStepObserver(so StepObserver) Option {
	return func(t *Trainer) {
		t.stepObservers = append(t.stepObservers, so)
	}
}

// New builds a trainer. rng drives exploration; pass the same source the
// engine was built with to get a single reproducible stream.
func New(env game.Env, enc game.Encoder, table *learn.Table, rng *rand.Rand, cfg Config, opts ...Option) *Trainer {
	t := &Trainer{
		env:   env,
		enc:   enc,
		table: table,
		eps:   learn.NewEpsilon(cfg.Schedule),
		rng:   rng,
		cfg:   cfg,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Table returns the Q-table being trained.
func (t *Trainer) Table() *learn.Table { return t.table }

// Epsilon returns the current exploration rate.
func (t *Trainer) Epsilon() float64 { return t.eps.Value() }

// Episode returns the number of training episodes completed.
func (t *Trainer) Episode() int { return t.episode }

// Run trains until Config.Episodes episodes have completed. ctx is only
// checked between episodes.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	if t.started.IsZero() {
		t.started = time.Now()
	}
	for t.episode < t.cfg.Episodes {
		if err := ctx.Err(); err != nil {
			return t.Result(), err
		}
		if t.cfg.DemoEvery > 0 && t.episode%t.cfg.DemoEvery == 0 && len(t.stepObservers) > 0 {
			if _, err := t.Demo(); err != nil {
				return t.Result(), err
			}
		}
		if _, err := t.RunEpisode(); err != nil {
			return t.Result(), err
		}
	}
	return t.Result(), nil
}

// RunEpisode plays and learns from one episode, then decays epsilon.
func (t *Trainer) RunEpisode() (EpisodeSummary, error) {
	t.env.Reset()
	epsilon := t.eps.Value()
	total := 0.0
	steps := 0

	for steps < t.cfg.MaxSteps {
		obs := t.enc.Encode(t.env.Frame())
		action := t.table.SelectAction(obs, epsilon, t.rng)

		reward, done, err := t.env.Step(action, t.cfg.DT)
		if err != nil {
			return EpisodeSummary{}, fmt.Errorf("episode %d step %d: %w", t.episode, steps, err)
		}
		steps++
		total += reward

		next := t.enc.Encode(t.env.Frame())
		if err := t.table.Update(obs, action, reward, next, done); err != nil {
			return EpisodeSummary{}, fmt.Errorf("episode %d update: %w", t.episode, err)
		}

		if t.cfg.TraceSteps {
			t.emitStep(steps, action, reward, done, false)
		}
		if done {
			break
		}
	}

	summary := EpisodeSummary{
		Episode: t.episode,
		Reward:  total,
		Steps:   steps,
		Outcome: t.outcome(),
		Epsilon: epsilon,
	}
	t.rewards = append(t.rewards, total)
	t.outcomes[summary.Outcome]++
	t.eps.Decay()
	t.episode++

	for _, o := range t.observers {
		o.OnEpisode(summary)
	}
	return summary, nil
}

// Demo plays one greedy episode without learning or touching epsilon and
// streams its steps to step observers.
func (t *Trainer) Demo() (EpisodeSummary, error) {
	t.env.Reset()
	total := 0.0
	steps := 0
	for steps < t.cfg.MaxSteps {
		action := t.table.Greedy(t.enc.Encode(t.env.Frame()))
		reward, done, err := t.env.Step(action, t.cfg.DT)
		if err != nil {
			return EpisodeSummary{}, fmt.Errorf("demo step %d: %w", steps, err)
		}
		steps++
		total += reward
		t.emitStep(steps, action, reward, done, true)
		if done {
			break
		}
	}
	return EpisodeSummary{
		Episode: t.episode,
		Reward:  total,
		Steps:   steps,
		Outcome: t.outcome(),
		Epsilon: 0,
		Demo:    true,
	}, nil
}

func (t *Trainer) outcome() game.Outcome {
	if !t.env.Done() {
		return game.OutcomeCapped
	}
	return t.env.Outcome()
}

func (t *Trainer) emitStep(step int, action game.Action, reward float64, done, demo bool) {
	if len(t.stepObservers) == 0 {
		return
	}
	ev := StepEvent{
		Episode:  t.episode,
		Step:     step,
		Action:   action,
		Reward:   reward,
		Done:     done,
		Demo:     demo,
		Snapshot: t.env.Snapshot(),
	}
	for _, so := range t.stepObservers {
		so.OnStep(ev)
	}
}

// Result reports progress so far.
func (t *Trainer) Result() Result {
	rewards := make([]float64, len(t.rewards))
	copy(rewards, t.rewards)
	var elapsed time.Duration
	if !t.started.IsZero() {
		elapsed = time.Since(t.started)
	}
	return Result{
		Episodes:     t.episode,
		Rewards:      rewards,
		Hits:         t.outcomes[game.OutcomeHit],
		Survived:     t.outcomes[game.OutcomeSurvived],
		Capped:       t.outcomes[game.OutcomeCapped],
		FinalEpsilon: t.eps.Value(),
		Elapsed:      elapsed,
	}
}
