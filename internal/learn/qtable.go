// Package learn holds the tabular Q-learning agent: a dense Q-table over
// the encoder's observation space, epsilon-greedy action selection and the
// one-step temporal-difference update.
package learn

import (
	"fmt"
	"math/rand"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

// wallStates is the size of the wall-flag axis.
const wallStates = 2

// Params are the fixed learning hyperparameters.
type Params struct {
	LearningRate float64 `yaml:"learning_rate"`
	Discount     float64 `yaml:"discount"`
}

// DefaultParams returns the training defaults.
func DefaultParams() Params {
	return Params{LearningRate: 0.1, Discount: 0.95}
}

// Validate checks that both rates lie in [0, 1].
func (p Params) Validate() error {
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0,1], got %g", p.LearningRate)
	}
	if p.Discount < 0 || p.Discount > 1 {
		return fmt.Errorf("discount must be in [0,1], got %g", p.Discount)
	}
	return nil
}

// Table is a dense Q-table. Row i holds the action values of the
// observation whose mixed-radix index is i.
type Table struct {
	params   Params
	timeBins int
	values   []float64
}

// StateCount returns the number of observations for the given bucket count:
// 3^4 danger combinations × 2 wall states × timeBins.
func StateCount(timeBins int) int {
	n := 1
	for i := 0; i < game.SectorCount; i++ {
		n *= game.DangerLevels
	}
	return n * wallStates * timeBins
}

// NewTable allocates a table covering every observation and fills it with
// uniform values in [-1, 0), drawn in index order from rng. The slight
// pessimism keeps early greedy choices from collapsing onto one action.
func NewTable(timeBins int, params Params, rng *rand.Rand) *Table {
	if timeBins <= 0 {
		panic(fmt.Sprintf("learn: timeBins must be > 0, got %d", timeBins))
	}
	t := &Table{
		params:   params,
		timeBins: timeBins,
		values:   make([]float64, StateCount(timeBins)*game.ActionCount),
	}
	for i := range t.values {
		t.values[i] = rng.Float64() - 1
	}
	return t
}

// Params returns the learning hyperparameters.
func (t *Table) Params() Params { return t.params }

// TimeBins returns the size of the time-bucket axis.
func (t *Table) TimeBins() int { return t.timeBins }

// States returns the number of rows.
func (t *Table) States() int { return len(t.values) / game.ActionCount }

// Index returns the mixed-radix row of obs. The axis order, slowest first,
// is sector 0..3 danger, wall flag, time bucket. Out-of-range observations
// are a programming error and panic.
func (t *Table) Index(obs game.Observation) int {
	idx := 0
	for i, d := range obs.Sectors {
		if d >= game.DangerLevels {
			panic(fmt.Sprintf("learn: sector %d danger %d out of range", i, d))
		}
		idx = idx*game.DangerLevels + int(d)
	}
	wall := 0
	if obs.NearWall {
		wall = 1
	}
	idx = idx*wallStates + wall
	if obs.TimeBin < 0 || obs.TimeBin >= t.timeBins {
		panic(fmt.Sprintf("learn: time bin %d out of range [0,%d)", obs.TimeBin, t.timeBins))
	}
	return idx*t.timeBins + obs.TimeBin
}

// Observation is the inverse of Index.
func (t *Table) Observation(idx int) game.Observation {
	var obs game.Observation
	obs.TimeBin = idx % t.timeBins
	idx /= t.timeBins
	obs.NearWall = idx%wallStates == 1
	idx /= wallStates
	for i := game.SectorCount - 1; i >= 0; i-- {
		obs.Sectors[i] = game.Danger(idx % game.DangerLevels)
		idx /= game.DangerLevels
	}
	return obs
}

// Values returns the action values of obs. The slice aliases the table.
func (t *Table) Values(obs game.Observation) []float64 {
	i := t.Index(obs) * game.ActionCount
	return t.values[i : i+game.ActionCount : i+game.ActionCount]
}

// Value returns Q(obs, a).
func (t *Table) Value(obs game.Observation, a game.Action) float64 {
	return t.Values(obs)[a]
}

// Greedy returns the highest-valued action of obs; the first maximum wins.
func (t *Table) Greedy(obs game.Observation) game.Action {
	return game.Action(argmax(t.Values(obs)))
}

// MaxValue returns the highest action value of obs.
func (t *Table) MaxValue(obs game.Observation) float64 {
	q := t.Values(obs)
	return q[argmax(q)]
}

// SelectAction is epsilon-greedy: with probability epsilon a uniformly random
// action, otherwise the greedy one.
func (t *Table) SelectAction(obs game.Observation, epsilon float64, rng *rand.Rand) game.Action {
	if rng.Float64() < epsilon {
		return game.Action(rng.Intn(game.ActionCount))
	}
	return t.Greedy(obs)
}

// Update applies one Q-learning step for the transition obs -a-> next. A
// terminal transition stores reward as is, without bootstrapping past the
// episode boundary.
func (t *Table) Update(obs game.Observation, a game.Action, reward float64, next game.Observation, terminal bool) error {
	if err := a.Check(); err != nil {
		return err
	}
	q := t.Values(obs)
	if terminal {
		q[a] = reward
		return nil
	}
	lr, gamma := t.params.LearningRate, t.params.Discount
	q[a] = (1-lr)*q[a] + lr*(reward+gamma*t.MaxValue(next))
	return nil
}

func argmax(q []float64) int {
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return best
}
