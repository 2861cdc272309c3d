package train

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

// defaultReportWindow is the sliding window for recent-behaviour summaries.
const defaultReportWindow = 1000

// WindowReport aggregates the most recent episodes.
type WindowReport struct {
	FromEpisode int
	ToEpisode   int
	Count       int

	MeanReward float64
	MinReward  float64
	MaxReward  float64
	MeanSteps  float64

	SurvivalRate float64
	HitRate      float64
	CapRate      float64

	Epsilon float64 // rate used by the latest episode
}

// Format renders the report as one line.
func (wr *WindowReport) Format() string {
	return fmt.Sprintf("episodes %d..%d mean_reward=%.2f (min %.1f max %.1f) mean_steps=%.1f survived=%.1f%% hit=%.1f%% capped=%.1f%% epsilon=%.4f",
		wr.FromEpisode, wr.ToEpisode, wr.MeanReward, wr.MinReward, wr.MaxReward, wr.MeanSteps,
		100*wr.SurvivalRate, 100*wr.HitRate, 100*wr.CapRate, wr.Epsilon)
}

// Reporter keeps a sliding window of episode summaries. It implements
// Observer.
type Reporter struct {
	history []EpisodeSummary
	window  int
}

// NewReporter creates a reporter over the last window episodes.
func NewReporter(window int) *Reporter {
	if window <= 0 {
		window = defaultReportWindow
	}
	return &Reporter{window: window}
}

// OnEpisode implements Observer.
func (r *Reporter) OnEpisode(s EpisodeSummary) {
	r.history = append(r.history, s)
	// Prune beyond 2x window to keep memory flat.
	if len(r.history) > 2*r.window {
		r.history = append(r.history[:0], r.history[len(r.history)-r.window:]...)
	}
}

// Latest returns the most recent summary, or nil if none.
func (r *Reporter) Latest() *EpisodeSummary {
	if len(r.history) == 0 {
		return nil
	}
	s := r.history[len(r.history)-1]
	return &s
}

// WindowSummary aggregates the last window episodes, or nil if none.
func (r *Reporter) WindowSummary() *WindowReport {
	if len(r.history) == 0 {
		return nil
	}
	from := max(0, len(r.history)-r.window)
	win := r.history[from:]

	wr := &WindowReport{
		FromEpisode: win[0].Episode,
		ToEpisode:   win[len(win)-1].Episode,
		Count:       len(win),
		MinReward:   math.Inf(1),
		MaxReward:   math.Inf(-1),
		Epsilon:     win[len(win)-1].Epsilon,
	}
	var survived, hit, capped int
	for _, s := range win {
		wr.MeanReward += s.Reward
		wr.MeanSteps += float64(s.Steps)
		wr.MinReward = math.Min(wr.MinReward, s.Reward)
		wr.MaxReward = math.Max(wr.MaxReward, s.Reward)
		switch s.Outcome {
		case game.OutcomeSurvived:
			survived++
		case game.OutcomeHit:
			hit++
		case game.OutcomeCapped:
			capped++
		}
	}
	n := float64(len(win))
	wr.MeanReward /= n
	wr.MeanSteps /= n
	wr.SurvivalRate = float64(survived) / n
	wr.HitRate = float64(hit) / n
	wr.CapRate = float64(capped) / n
	return wr
}

// ProgressLog prints a window summary every `every` episodes.
type ProgressLog struct {
	logger   *log.Logger
	every    int
	reporter *Reporter
}

// NewProgressLog creates a progress printer whose window equals its interval.
func NewProgressLog(logger *log.Logger, every int) *ProgressLog {
	return &ProgressLog{
		logger:   logger,
		every:    max(1, every),
		reporter: NewReporter(every),
	}
}

// OnEpisode implements Observer.
func (p *ProgressLog) OnEpisode(s EpisodeSummary) {
	p.reporter.OnEpisode(s)
	if (s.Episode+1)%p.every != 0 {
		return
	}
	if wr := p.reporter.WindowSummary(); wr != nil {
		p.logger.Printf("episode %d: %s", s.Episode+1, wr.Format())
	}
}

// Result is the outcome of a training run.
type Result struct {
	Episodes     int
	Rewards      []float64 // cumulative reward per episode, in order
	Hits         int
	Survived     int
	Capped       int
	FinalEpsilon float64
	Elapsed      time.Duration
}

// Format renders a text report with a moving-average curve over window.
func (r Result) Format(window int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Training Report ===\n")
	fmt.Fprintf(&sb, "episodes=%d survived=%d hit=%d capped=%d final_epsilon=%.4f",
		r.Episodes, r.Survived, r.Hits, r.Capped, r.FinalEpsilon)
	if r.Elapsed > 0 {
		fmt.Fprintf(&sb, " elapsed=%.1fs", r.Elapsed.Seconds())
	}
	sb.WriteByte('\n')
	if r.Episodes == 0 {
		return sb.String()
	}

	w := min(window, len(r.Rewards))
	if w <= 0 {
		w = len(r.Rewards)
	}
	tail := r.Rewards[len(r.Rewards)-w:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	fmt.Fprintf(&sb, "mean reward (last %d episodes): %.2f\n", w, sum/float64(w))

	if avg := MovingAverage(r.Rewards, w); len(avg) > 1 {
		fmt.Fprintf(&sb, "moving average (window %d): %.2f -> %.2f\n", w, avg[0], avg[len(avg)-1])
		fmt.Fprintf(&sb, "%s\n", Sparkline(avg, 60))
	}
	return sb.String()
}
