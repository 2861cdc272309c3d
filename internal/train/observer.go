package train

import (
	"github.com/Garsondee/Dodge-Sense/internal/game"
)

//go:generate go tool mockgen -destination=./mocks/observer_mock.go -package=mocks . Observer

// EpisodeSummary describes one finished episode.
type EpisodeSummary struct {
	Episode int          `json:"episode"`
	Reward  float64      `json:"reward"`
	Steps   int          `json:"steps"`
	Outcome game.Outcome `json:"outcome"`
	Epsilon float64      `json:"epsilon"` // exploration rate used during the episode
	Demo    bool         `json:"demo,omitempty"`
}

// StepEvent describes one engine step. Snapshot is a copy owned by the
// receiver.
type StepEvent struct {
	Episode  int           `json:"episode"`
	Step     int           `json:"step"`
	Action   game.Action   `json:"action"`
	Reward   float64       `json:"reward"`
	Done     bool          `json:"done"`
	Demo     bool          `json:"demo"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// Observer receives a summary after every training episode. Observers must
// not block: the trainer calls them inline.
type Observer interface {
	OnEpisode(EpisodeSummary)
}

// StepObserver additionally receives per-step events for demo episodes, and
// for training episodes when Config.TraceSteps is set.
type StepObserver interface {
	OnStep(StepEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(EpisodeSummary)

// OnEpisode implements Observer.
func (f ObserverFunc) OnEpisode(s EpisodeSummary) { f(s) }
