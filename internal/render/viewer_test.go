package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

type fixedPolicy game.Action

func (p fixedPolicy) Greedy(game.Observation) game.Action { return game.Action(p) }

func quietGridViewer(t *testing.T, mode Mode, policy Policy, survival int) (*Viewer, *game.GridEnv) {
	t.Helper()
	cfg := game.DefaultGridConfig()
	cfg.SpawnProb = 0
	cfg.SurvivalSteps = survival
	env := game.NewGrid(cfg, game.WithSeed(1))
	opts := DefaultOptions(game.VariantGrid)
	opts.Mode = mode
	opts.StepEvery = 1
	v, err := New(env, game.NewEncoder(game.DefaultGridEncoder()), policy, opts)
	if err != nil {
		t.Fatalf("new viewer: %v", err)
	}
	return v, env
}

// --- Input ---

func TestActionFromKeys(t *testing.T) {
	cases := []struct {
		name string
		held []ebiten.Key
		want game.Action
	}{
		{"none", nil, game.ActionStay},
		{"w", []ebiten.Key{ebiten.KeyW}, game.ActionUp},
		{"arrow down", []ebiten.Key{ebiten.KeyArrowDown}, game.ActionDown},
		{"a", []ebiten.Key{ebiten.KeyA}, game.ActionLeft},
		{"arrow right", []ebiten.Key{ebiten.KeyArrowRight}, game.ActionRight},
		{"up wins over right", []ebiten.Key{ebiten.KeyD, ebiten.KeyW}, game.ActionUp},
		{"unbound key", []ebiten.Key{ebiten.KeyQ}, game.ActionStay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			held := map[ebiten.Key]bool{}
			for _, k := range tc.held {
				held[k] = true
			}
			got := actionFromKeys(func(k ebiten.Key) bool { return held[k] })
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEdgeKeys_FiresOncePerPress(t *testing.T) {
	var e edgeKeys
	seq := []bool{true, true, false, true}
	want := []bool{true, false, false, true}
	for i, down := range seq {
		if got := e.pressed(ebiten.KeyC, down); got != want[i] {
			t.Fatalf("frame %d: expected %v, got %v", i, want[i], got)
		}
	}
}

// --- Episode flow ---

func TestAdvance_AutoResetsAfterDelay(t *testing.T) {
	v, env := quietGridViewer(t, ModeHuman, nil, 3)
	for i := 0; i < 3; i++ {
		v.advance(game.ActionStay)
	}
	if !env.Done() || env.Outcome() != game.OutcomeSurvived {
		t.Fatalf("expected survival after 3 steps, got done=%v outcome=%s", env.Done(), env.Outcome())
	}
	if v.episode != 1 || v.survived != 1 {
		t.Fatalf("expected one survived episode, got %d/%d", v.episode, v.survived)
	}

	for i := 0; i < 85; i++ {
		v.advance(game.ActionStay)
	}
	if !env.Done() {
		t.Fatal("episode reset before the delay elapsed")
	}
	for i := 0; i < 10 && env.Done(); i++ {
		v.advance(game.ActionStay)
	}
	if env.Done() || v.reward != 0 {
		t.Fatalf("expected a fresh episode, got done=%v reward=%.1f", env.Done(), v.reward)
	}
}

func TestAdvance_AgentModeFollowsPolicy(t *testing.T) {
	v, env := quietGridViewer(t, ModeAgent, fixedPolicy(game.ActionRight), 300)
	v.advance(game.ActionLeft)
	if p := env.Player(); p.X != 9 || p.Y != 7 {
		t.Fatalf("agent should move right to (9,7), got (%d,%d)", p.X, p.Y)
	}
}

func TestAdvance_StepEverySkipsUpdates(t *testing.T) {
	v, env := quietGridViewer(t, ModeHuman, nil, 300)
	v.opts.StepEvery = 4
	for i := 0; i < 8; i++ {
		v.advance(game.ActionStay)
	}
	if env.Steps() != 2 {
		t.Fatalf("expected 2 engine steps over 8 updates, got %d", env.Steps())
	}
}

func TestNew_AgentNeedsPolicy(t *testing.T) {
	env := game.NewGrid(game.DefaultGridConfig())
	if _, err := New(env, game.NewEncoder(game.DefaultGridEncoder()), nil, Options{Mode: ModeAgent}); err == nil {
		t.Fatal("expected error without a policy")
	}
}

// --- HUD / clipboard ---

func TestCopySummary(t *testing.T) {
	v, _ := quietGridViewer(t, ModeHuman, nil, 300)
	var copied string
	v.clip = func(s string) error {
		copied = s
		return nil
	}
	v.copySummary()
	if !strings.Contains(copied, "episodes=0") || !strings.Contains(copied, "human | grid | step=0") {
		t.Fatalf("unexpected summary %q", copied)
	}
	if v.status != "summary copied" {
		t.Fatalf("unexpected status %q", v.status)
	}

	v.clip = func(string) error { return errors.New("no display") }
	v.copySummary()
	if !strings.Contains(v.status, "clipboard unavailable") {
		t.Fatalf("clipboard failure should be reported, got %q", v.status)
	}
	if lines := v.hudLines(v.env.Snapshot()); lines[len(lines)-1] != v.status {
		t.Fatalf("status should show in the HUD, got %v", lines)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("agent"); err != nil || m != ModeAgent {
		t.Fatalf("expected agent, got %q %v", m, err)
	}
	if _, err := ParseMode("robot"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
