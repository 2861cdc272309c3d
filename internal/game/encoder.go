package game

import (
	"errors"
	"fmt"
	"math"
)

// Sector indices around the player.
const (
	SectorRight = iota
	SectorUp
	SectorLeft
	SectorDown

	SectorCount = 4
)

// Danger quantizes the nearest bullet distance in a sector.
type Danger uint8

const (
	DangerFar Danger = iota
	DangerMid
	DangerNear

	DangerLevels = 3
)

func (d Danger) String() string {
	switch d {
	case DangerNear:
		return "near"
	case DangerMid:
		return "mid"
	default:
		return "far"
	}
}

// Metric selects the distance function used per sector.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricManhattan Metric = "manhattan"
)

// Observation is the discrete state the Q-table is keyed by.
type Observation struct {
	Sectors  [SectorCount]Danger
	NearWall bool
	TimeBin  int
}

func (o Observation) String() string {
	wall := 0
	if o.NearWall {
		wall = 1
	}
	return fmt.Sprintf("(%d,%d,%d,%d,%d,%d)",
		o.Sectors[0], o.Sectors[1], o.Sectors[2], o.Sectors[3], wall, o.TimeBin)
}

// EncoderConfig holds the thresholds of the sector abstraction.
type EncoderConfig struct {
	Near       float64 `yaml:"near"`
	Mid        float64 `yaml:"mid"`
	WallMargin float64 `yaml:"wall_margin"`
	TimeBins   int     `yaml:"time_bins"`
	Metric     Metric  `yaml:"metric"`
}

// DefaultContinuousEncoder returns the pixel-space thresholds.
func DefaultContinuousEncoder() EncoderConfig {
	return EncoderConfig{Near: 45, Mid: 140, WallMargin: 40, TimeBins: 10, Metric: MetricEuclidean}
}

// DefaultGridEncoder returns the cell-space thresholds. A zero wall margin
// flags only edge cells.
func DefaultGridEncoder() EncoderConfig {
	return EncoderConfig{Near: 2, Mid: 5, WallMargin: 0, TimeBins: 10, Metric: MetricManhattan}
}

// Validate checks the thresholds.
func (c EncoderConfig) Validate() error {
	var errs []error
	if c.Near <= 0 || c.Mid < c.Near {
		errs = append(errs, fmt.Errorf("need 0 < near <= mid, got near=%g mid=%g", c.Near, c.Mid))
	}
	if c.WallMargin < 0 {
		errs = append(errs, fmt.Errorf("wall_margin must be >= 0, got %g", c.WallMargin))
	}
	if c.TimeBins <= 0 {
		errs = append(errs, fmt.Errorf("time_bins must be > 0, got %d", c.TimeBins))
	}
	switch c.Metric {
	case MetricEuclidean, MetricManhattan:
	default:
		errs = append(errs, fmt.Errorf("unknown metric %q", c.Metric))
	}
	return errors.Join(errs...)
}

// Encoder maps a Frame to an Observation. It holds no state, so Encode is a
// pure function of its input.
type Encoder struct {
	cfg  EncoderConfig
	dist func(dx, dy float64) float64
}

// NewEncoder builds an encoder. An unknown metric falls back to Euclidean;
// call EncoderConfig.Validate first to reject it instead.
func NewEncoder(cfg EncoderConfig) Encoder {
	dist := euclidean
	if cfg.Metric == MetricManhattan {
		dist = manhattan
	}
	return Encoder{cfg: cfg, dist: dist}
}

// Config returns the encoder thresholds.
func (enc Encoder) Config() EncoderConfig { return enc.cfg }

// TimeBins returns the number of time buckets.
func (enc Encoder) TimeBins() int { return enc.cfg.TimeBins }

// Encode computes the observation for f.
func (enc Encoder) Encode(f Frame) Observation {
	var minDist [SectorCount]float64
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	for _, b := range f.Bullets {
		dx := b.X - f.Player.X
		dy := b.Y - f.Player.Y
		s := SectorOf(dx, dy)
		if d := enc.dist(dx, dy); d < minDist[s] {
			minDist[s] = d
		}
	}

	var obs Observation
	for i, d := range minDist {
		obs.Sectors[i] = enc.danger(d)
	}

	m := enc.cfg.WallMargin
	p := f.Player
	obs.NearWall = p.X <= f.MinX+m || p.X >= f.MaxX-m ||
		p.Y <= f.MinY+m || p.Y >= f.MaxY-m

	obs.TimeBin = TimeBin(f.TimeFrac, enc.cfg.TimeBins)
	return obs
}

func (enc Encoder) danger(d float64) Danger {
	switch {
	case d <= enc.cfg.Near:
		return DangerNear
	case d <= enc.cfg.Mid:
		return DangerMid
	default:
		return DangerFar
	}
}

// SectorOf partitions the plane around the origin. Ties between the axes go
// to the horizontal sectors; the zero offset is Right.
func SectorOf(dx, dy float64) int {
	if dx == 0 && dy == 0 {
		return SectorRight
	}
	if math.Abs(dx) >= math.Abs(dy) {
		if dx > 0 {
			return SectorRight
		}
		return SectorLeft
	}
	if dy > 0 {
		return SectorDown
	}
	return SectorUp
}

// TimeBin scales frac into one of bins equal-width buckets, clamped to the
// last bucket.
func TimeBin(frac float64, bins int) int {
	frac = clampF(frac, 0, 1)
	return min(bins-1, int(frac*float64(bins)))
}
