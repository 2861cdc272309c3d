package learn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

func newTestTable(seed int64) *Table {
	return NewTable(10, DefaultParams(), rand.New(rand.NewSource(seed)))
}

func obsOf(d0, d1, d2, d3 game.Danger, wall bool, bin int) game.Observation {
	return game.Observation{Sectors: [4]game.Danger{d0, d1, d2, d3}, NearWall: wall, TimeBin: bin}
}

// --- Layout ---

func TestNewTable_CoversWholeObservationSpace(t *testing.T) {
	tb := newTestTable(1)
	if tb.States() != 3*3*3*3*2*10 {
		t.Fatalf("expected 1620 states, got %d", tb.States())
	}
	for i, v := range tb.values {
		if v < -1 || v >= 0 {
			t.Fatalf("value %d = %.4f outside [-1,0)", i, v)
		}
	}
}

func TestIndex_MatchesNestedIterationOrder(t *testing.T) {
	tb := newTestTable(1)
	want := 0
	levels := []game.Danger{0, 1, 2}
	for _, a := range levels {
		for _, b := range levels {
			for _, c := range levels {
				for _, d := range levels {
					for _, wall := range []bool{false, true} {
						for bin := 0; bin < 10; bin++ {
							obs := obsOf(a, b, c, d, wall, bin)
							if got := tb.Index(obs); got != want {
								t.Fatalf("Index(%s) = %d, want %d", obs, got, want)
							}
							if back := tb.Observation(want); back != obs {
								t.Fatalf("Observation(%d) = %s, want %s", want, back, obs)
							}
							want++
						}
					}
				}
			}
		}
	}
}

func TestIndex_PanicsOnOutOfRange(t *testing.T) {
	tb := newTestTable(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for time bin 10")
		}
	}()
	tb.Index(obsOf(0, 0, 0, 0, false, 10))
}

func TestNewTable_SeedDeterministic(t *testing.T) {
	a := newTestTable(42)
	b := newTestTable(42)
	for i := range a.values {
		if a.values[i] != b.values[i] {
			t.Fatalf("value %d differs across equal seeds", i)
		}
	}
}

// --- Policy ---

func TestGreedy_FirstMaximumWins(t *testing.T) {
	tb := newTestTable(1)
	obs := obsOf(1, 0, 2, 0, true, 3)
	copy(tb.Values(obs), []float64{-0.5, 0.25, -0.1, 0.25, 0.1})
	if a := tb.Greedy(obs); a != game.ActionDown {
		t.Fatalf("expected first max (down), got %s", a)
	}
}

func TestSelectAction_ZeroEpsilonIsGreedy(t *testing.T) {
	tb := newTestTable(1)
	rng := rand.New(rand.NewSource(7))
	obs := obsOf(0, 0, 0, 0, false, 0)
	copy(tb.Values(obs), []float64{-1, -1, -1, 5, -1})
	for i := 0; i < 100; i++ {
		if a := tb.SelectAction(obs, 0, rng); a != game.ActionRight {
			t.Fatalf("epsilon 0 picked %s", a)
		}
	}
}

func TestSelectAction_FullEpsilonExploresAllActions(t *testing.T) {
	tb := newTestTable(1)
	rng := rand.New(rand.NewSource(7))
	obs := obsOf(0, 0, 0, 0, false, 0)
	seen := map[game.Action]int{}
	for i := 0; i < 5000; i++ {
		a := tb.SelectAction(obs, 1, rng)
		if !a.Valid() {
			t.Fatalf("invalid action %d", a)
		}
		seen[a]++
	}
	if len(seen) != game.ActionCount {
		t.Fatalf("expected all %d actions explored, got %v", game.ActionCount, seen)
	}
	for a, n := range seen {
		if n < 800 || n > 1200 {
			t.Fatalf("action %s drawn %d/5000 times, expected ~1000", a, n)
		}
	}
}

// --- Update ---

func TestUpdate_TerminalStoresRewardExactly(t *testing.T) {
	tb := newTestTable(3)
	obs := obsOf(2, 2, 0, 1, false, 4)
	next := obsOf(0, 0, 0, 0, false, 5)
	for _, prior := range []float64{-1000, -0.3, 0, 77} {
		tb.Values(obs)[game.ActionLeft] = prior
		copy(tb.Values(next), []float64{999, 999, 999, 999, 999})
		if err := tb.Update(obs, game.ActionLeft, -200, next, true); err != nil {
			t.Fatalf("update: %v", err)
		}
		if got := tb.Value(obs, game.ActionLeft); got != -200 {
			t.Fatalf("prior %.1f: terminal update stored %.4f, want -200", prior, got)
		}
	}
}

func TestUpdate_BootstrapsFromNextMax(t *testing.T) {
	tb := newTestTable(3)
	obs := obsOf(0, 1, 0, 0, false, 0)
	next := obsOf(0, 0, 1, 0, false, 1)
	tb.Values(obs)[game.ActionUp] = -0.5
	copy(tb.Values(next), []float64{-0.2, 0.4, -0.9, 0.1, 0})

	if err := tb.Update(obs, game.ActionUp, 1, next, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	// 0.9*(-0.5) + 0.1*(1 + 0.95*0.4) = -0.45 + 0.138 = -0.312
	if got := tb.Value(obs, game.ActionUp); math.Abs(got-(-0.312)) > 1e-12 {
		t.Fatalf("expected -0.312, got %.6f", got)
	}
	for a := game.ActionUp; a <= game.ActionStay; a++ {
		if tb.Value(next, a) != []float64{-0.2, 0.4, -0.9, 0.1, 0}[a] {
			t.Fatalf("update touched the next observation (action %s)", a)
		}
	}
}

func TestUpdate_TerminalFlagNotRewardPicksBranch(t *testing.T) {
	tb := newTestTable(3)
	obs := obsOf(1, 0, 0, 2, true, 9)
	next := obsOf(0, 0, 0, 0, false, 9)
	copy(tb.Values(next), []float64{-0.2, 0.4, -0.9, 0.1, 0})

	tb.Values(obs)[game.ActionStay] = 0
	if err := tb.Update(obs, game.ActionStay, 200, next, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	// 0.9*0 + 0.1*(200 + 0.95*0.4) = 20.038
	if got := tb.Value(obs, game.ActionStay); math.Abs(got-20.038) > 1e-9 {
		t.Fatalf("non-terminal 200 should bootstrap to 20.038, got %.6f", got)
	}

	tb.Values(obs)[game.ActionDown] = 0
	if err := tb.Update(obs, game.ActionDown, 1, next, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := tb.Value(obs, game.ActionDown); got != 1 {
		t.Fatalf("terminal flag should store the reward as is, got %.6f", got)
	}
}

func TestUpdate_RejectsInvalidAction(t *testing.T) {
	tb := newTestTable(3)
	obs := obsOf(0, 0, 0, 0, false, 0)
	if err := tb.Update(obs, game.Action(9), 1, obs, false); !errors.Is(err, game.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

// --- Epsilon ---

func TestEpsilon_MonotonicWithFloor(t *testing.T) {
	eps := NewEpsilon(Schedule{Start: 1, Min: 0.05, Decay: 0.99})
	prev := eps.Value()
	for i := 0; i < 2000; i++ {
		v := eps.Decay()
		if v > prev {
			t.Fatalf("episode %d: epsilon rose from %.6f to %.6f", i, prev, v)
		}
		if v < 0.05 {
			t.Fatalf("episode %d: epsilon %.6f below floor", i, v)
		}
		prev = v
	}
	if prev != 0.05 {
		t.Fatalf("expected epsilon to settle at the floor, got %.6f", prev)
	}
}

func TestEpsilon_StartBelowFloorIsRaised(t *testing.T) {
	eps := NewEpsilon(Schedule{Start: 0.01, Min: 0.1, Decay: 0.5})
	if eps.Value() != 0.1 {
		t.Fatalf("expected start raised to 0.1, got %.3f", eps.Value())
	}
}

func TestSchedule_Validate(t *testing.T) {
	if err := DefaultSchedule().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := []Schedule{
		{Start: 0.5, Min: 0.6, Decay: 0.9},
		{Start: 1.5, Min: 0.1, Decay: 0.9},
		{Start: 1, Min: 0.1, Decay: 0},
		{Start: 1, Min: 0.1, Decay: 1.2},
	}
	for _, s := range bad {
		if s.Validate() == nil {
			t.Fatalf("expected %+v to fail validation", s)
		}
	}
}
