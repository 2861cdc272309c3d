package game

import (
	"errors"
	"math/rand"
	"testing"
)

func quietGrid() GridConfig {
	cfg := DefaultGridConfig()
	cfg.SpawnProb = 0
	return cfg
}

func TestGridReset_CentersPlayer(t *testing.T) {
	e := NewGrid(DefaultGridConfig(), WithSeed(1))
	if p := e.Player(); p.X != 7 || p.Y != 7 {
		t.Fatalf("expected player at (7,7), got (%d,%d)", p.X, p.Y)
	}
}

func TestGridStep_MovesTwoCells(t *testing.T) {
	e := NewGrid(quietGrid())
	if _, _, err := e.Step(ActionRight, 0); err != nil {
		t.Fatalf("step: %v", err)
	}
	if p := e.Player(); p.X != 9 || p.Y != 7 {
		t.Fatalf("expected (9,7) after moving right, got (%d,%d)", p.X, p.Y)
	}
	if _, _, err := e.Step(ActionUp, 0); err != nil {
		t.Fatalf("step: %v", err)
	}
	if p := e.Player(); p.X != 9 || p.Y != 5 {
		t.Fatalf("expected (9,5) after moving up, got (%d,%d)", p.X, p.Y)
	}
}

func TestGridStep_RejectsInvalidAction(t *testing.T) {
	e := NewGrid(quietGrid())
	if _, _, err := e.Step(Action(7), 0); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if e.Steps() != 0 {
		t.Fatalf("rejected action advanced the step counter to %d", e.Steps())
	}
}

func TestGridScenario_BulletReachesPlayer(t *testing.T) {
	log := NewEventLog(false)
	e := NewGrid(quietGrid(), WithEventLog(log))
	e.bullets = append(e.bullets, GridBullet{X: 9, Y: 7, DX: -1, DY: 0})

	r, done, err := e.Step(ActionStay, 0)
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if done {
		t.Fatal("step 1: unexpected terminal state")
	}
	if r != 1 {
		t.Fatalf("step 1: expected idle reward 2-1=1, got %.1f", r)
	}
	if b := e.Bullets(); len(b) != 1 || b[0].X != 8 || b[0].Y != 7 {
		t.Fatalf("step 1: expected bullet at (8,7), got %+v", b)
	}
	if e.hit(7, 7) {
		t.Fatal("step 1: hit reported before the bullet reached the player")
	}

	r, done, err = e.Step(ActionStay, 0)
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if !done || r != -120 {
		t.Fatalf("step 2: expected hit reward -120 terminal, got reward=%.1f done=%v", r, done)
	}
	if !e.hit(7, 7) {
		t.Fatal("step 2: expected hit(7,7) with the bullet on the player cell")
	}
	if entry, ok := log.FirstOf("hit"); !ok || entry.Tick != 2 {
		t.Fatalf("expected hit event at T=2, got %+v", entry)
	}
}

func TestGridScenario_SurvivesOnTargetStep(t *testing.T) {
	e := NewGrid(quietGrid())
	for step := 1; step < 300; step++ {
		if _, done, _ := e.Step(ActionStay, 0); done {
			t.Fatalf("episode ended early on step %d", step)
		}
	}
	r, done, _ := e.Step(ActionStay, 0)
	if !done || r != 200 || e.Outcome() != OutcomeSurvived {
		t.Fatalf("step 300: expected survive reward 200, got reward=%.1f done=%v outcome=%s", r, done, e.Outcome())
	}
}

func TestGridStep_IdempotentAfterTerminal(t *testing.T) {
	e := NewGrid(quietGrid())
	e.bullets = append(e.bullets, GridBullet{X: 8, Y: 7, DX: -1, DY: 0}, GridBullet{X: 0, Y: 0, DX: 1, DY: 1})
	if _, done, _ := e.Step(ActionStay, 0); !done {
		t.Fatal("expected an immediate hit")
	}
	before := e.Snapshot()
	for i := 0; i < 5; i++ {
		r, done, err := e.Step(ActionLeft, 0)
		if r != 0 || !done || err != nil {
			t.Fatalf("post-terminal step: reward=%.1f done=%v err=%v", r, done, err)
		}
	}
	after := e.Snapshot()
	if before.Player != after.Player || before.Steps != after.Steps || len(before.Bullets) != len(after.Bullets) {
		t.Fatalf("post-terminal steps mutated state: %+v -> %+v", before, after)
	}
	for i := range before.Bullets {
		if before.Bullets[i] != after.Bullets[i] {
			t.Fatalf("bullet %d moved after terminal: %+v -> %+v", i, before.Bullets[i], after.Bullets[i])
		}
	}
}

func TestGridInvariant_PlayerAndBulletsStayInBounds(t *testing.T) {
	cfg := DefaultGridConfig()
	e := NewGrid(cfg, WithSeed(8))
	rng := rand.New(rand.NewSource(21))
	for i := 0; i < 20000; i++ {
		if _, done, err := e.Step(Action(rng.Intn(ActionCount)), 0); err != nil {
			t.Fatalf("step %d: %v", i, err)
		} else if done {
			e.Reset()
		}
		p := e.Player()
		if p.X < 0 || p.X > cfg.Width-1 || p.Y < 0 || p.Y > cfg.Height-1 {
			t.Fatalf("step %d: player escaped to (%d,%d)", i, p.X, p.Y)
		}
		for _, b := range e.Bullets() {
			if b.X < 0 || b.X >= cfg.Width || b.Y < 0 || b.Y >= cfg.Height {
				t.Fatalf("step %d: live bullet out of bounds at (%d,%d)", i, b.X, b.Y)
			}
		}
	}
}

func TestGridSpawn_BorderStartAndNonZeroDirection(t *testing.T) {
	cfg := DefaultGridConfig()
	e := NewGrid(cfg, WithSeed(4))
	for i := 0; i < 2000; i++ {
		e.spawn()
		b := e.bullets[len(e.bullets)-1]
		if b.X != 0 && b.X != cfg.Width-1 && b.Y != 0 && b.Y != cfg.Height-1 {
			t.Fatalf("spawn %d: (%d,%d) is not a border cell", i, b.X, b.Y)
		}
		if b.DX == 0 && b.DY == 0 {
			t.Fatalf("spawn %d: zero direction", i)
		}
		if b.DX < -1 || b.DX > 1 || b.DY < -1 || b.DY > 1 {
			t.Fatalf("spawn %d: direction (%d,%d) is not a unit sign", i, b.DX, b.DY)
		}
	}
}

func TestGridHit_RequiresExactCell(t *testing.T) {
	e := NewGrid(quietGrid())
	e.bullets = append(e.bullets, GridBullet{X: 3, Y: 4, DX: 1})
	if !e.hit(3, 4) {
		t.Fatal("expected a hit on the bullet cell")
	}
	for _, c := range [][2]int{{4, 4}, {3, 5}, {2, 3}} {
		if e.hit(c[0], c[1]) {
			t.Fatalf("unexpected hit at (%d,%d)", c[0], c[1])
		}
	}
}
