package train

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

// --- Curves ---

func TestMovingAverage_ValidWindow(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("point %d: expected %.2f, got %.4f", i, want[i], got[i])
		}
	}
}

func TestMovingAverage_TooShort(t *testing.T) {
	if got := MovingAverage([]float64{1, 2}, 3); got != nil {
		t.Fatalf("expected nil for short input, got %v", got)
	}
	if got := MovingAverage([]float64{1, 2}, 0); got != nil {
		t.Fatalf("expected nil for zero window, got %v", got)
	}
}

func TestSparkline_WidthAndRange(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i)
	}
	s := Sparkline(values, 40)
	if n := utf8.RuneCountInString(s); n != 40 {
		t.Fatalf("expected 40 columns, got %d", n)
	}
	r := []rune(s)
	if r[0] != '▁' || r[len(r)-1] != '█' {
		t.Fatalf("rising series should run low to high, got %q", s)
	}
}

func TestSparkline_FlatSeries(t *testing.T) {
	if s := Sparkline([]float64{3, 3, 3}, 10); s != "▁▁▁" {
		t.Fatalf("expected flat baseline, got %q", s)
	}
	if s := Sparkline(nil, 10); s != "" {
		t.Fatalf("expected empty sparkline, got %q", s)
	}
}

// --- Reporter ---

func summaries(outcomes ...game.Outcome) []EpisodeSummary {
	out := make([]EpisodeSummary, len(outcomes))
	for i, o := range outcomes {
		out[i] = EpisodeSummary{Episode: i, Reward: float64(10 * i), Steps: 100 + i, Outcome: o, Epsilon: 1 - 0.1*float64(i)}
	}
	return out
}

func TestReporter_WindowSummary(t *testing.T) {
	r := NewReporter(4)
	if r.WindowSummary() != nil || r.Latest() != nil {
		t.Fatal("empty reporter should have no summary")
	}
	for _, s := range summaries(game.OutcomeHit, game.OutcomeHit, game.OutcomeSurvived, game.OutcomeHit, game.OutcomeCapped, game.OutcomeSurvived) {
		r.OnEpisode(s)
	}
	wr := r.WindowSummary()
	if wr.Count != 4 || wr.FromEpisode != 2 || wr.ToEpisode != 5 {
		t.Fatalf("expected window 2..5 of 4, got %d..%d of %d", wr.FromEpisode, wr.ToEpisode, wr.Count)
	}
	if wr.MeanReward != 35 || wr.MinReward != 20 || wr.MaxReward != 50 {
		t.Fatalf("reward stats wrong: mean=%.1f min=%.1f max=%.1f", wr.MeanReward, wr.MinReward, wr.MaxReward)
	}
	if wr.SurvivalRate != 0.5 || wr.HitRate != 0.25 || wr.CapRate != 0.25 {
		t.Fatalf("rates wrong: survived=%.2f hit=%.2f capped=%.2f", wr.SurvivalRate, wr.HitRate, wr.CapRate)
	}
	if math.Abs(wr.Epsilon-0.5) > 1e-12 {
		t.Fatalf("expected latest epsilon 0.5, got %.4f", wr.Epsilon)
	}
	if !strings.Contains(wr.Format(), "episodes 2..5") {
		t.Fatalf("format missing range: %s", wr.Format())
	}
	if l := r.Latest(); l == nil || l.Episode != 5 {
		t.Fatalf("expected latest episode 5, got %+v", l)
	}
}

func TestReporter_PrunesHistory(t *testing.T) {
	r := NewReporter(3)
	for i := 0; i < 50; i++ {
		r.OnEpisode(EpisodeSummary{Episode: i})
	}
	if len(r.history) > 6 {
		t.Fatalf("history should stay within 2x window, got %d", len(r.history))
	}
	if wr := r.WindowSummary(); wr.FromEpisode != 47 || wr.ToEpisode != 49 {
		t.Fatalf("expected window 47..49, got %d..%d", wr.FromEpisode, wr.ToEpisode)
	}
}

func TestProgressLog_PrintsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressLog(log.New(&buf, "", 0), 5)
	for i := 0; i < 12; i++ {
		p.OnEpisode(EpisodeSummary{Episode: i, Outcome: game.OutcomeHit})
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 progress lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "episode 10: episodes 5..9") {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
}

// --- Result ---

func TestResultFormat_IncludesCurve(t *testing.T) {
	rewards := make([]float64, 100)
	for i := range rewards {
		rewards[i] = float64(i)
	}
	res := Result{Episodes: 100, Rewards: rewards, Hits: 60, Survived: 40, FinalEpsilon: 0.05, Elapsed: 1500 * time.Millisecond}
	out := res.Format(10)
	for _, want := range []string{
		"=== Training Report ===",
		"survived=40 hit=60",
		"elapsed=1.5s",
		"mean reward (last 10 episodes): 94.50",
		"moving average (window 10): 4.50 -> 94.50",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestResultFormat_Empty(t *testing.T) {
	out := Result{}.Format(10)
	if strings.Contains(out, "mean reward") {
		t.Fatalf("empty result should only print the header:\n%s", out)
	}
}
