package game

import "math/rand"

// Option configures an engine at construction.
type Option func(*envOptions)

type envOptions struct {
	rng *rand.Rand
	log *EventLog
}

// WithSeed gives the engine its own deterministic random source.
func WithSeed(seed int64) Option {
	return func(o *envOptions) {
		o.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation only
	}
}

// WithRand shares an existing random source with the engine, so a trainer
// and its engine draw from one seeded stream.
func WithRand(rng *rand.Rand) Option {
	return func(o *envOptions) {
		o.rng = rng
	}
}

// WithEventLog records engine events into l.
func WithEventLog(l *EventLog) Option {
	return func(o *envOptions) {
		o.log = l
	}
}

func applyOptions(opts []Option) envOptions {
	o := envOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(1)) // #nosec G404 -- simulation default
	}
	return o
}
