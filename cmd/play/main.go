package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Dodge-Sense/internal/config"
	"github.com/Garsondee/Dodge-Sense/internal/game"
	"github.com/Garsondee/Dodge-Sense/internal/learn"
	"github.com/Garsondee/Dodge-Sense/internal/render"
	"github.com/Garsondee/Dodge-Sense/internal/train"
)

func main() {
	var (
		configPath    string
		variant       string
		mode          string
		trainEpisodes int
		seed          int64
	)
	flag.StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	flag.StringVar(&variant, "variant", "", "engine variant: continuous or grid")
	flag.StringVar(&mode, "mode", "human", "who plays: human or agent")
	flag.IntVar(&trainEpisodes, "train-episodes", 3000, "episodes to train before an agent plays")
	flag.Int64Var(&seed, "seed", 0, "RNG seed (overrides config)")
	flag.Parse()
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger := log.New(os.Stdout, "[play] ", log.LstdFlags)

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if set["variant"] {
		v, err := game.ParseVariant(variant)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		cfg.Variant = v
	}
	if set["seed"] {
		cfg.Seed = seed
	}
	m, err := render.ParseMode(mode)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) // #nosec G404 -- deterministic simulation RNG
	env, enc, table, err := cfg.Build(rng)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	var policy render.Policy
	if m == render.ModeAgent {
		policy = trainAgent(cfg, table, rng, trainEpisodes, logger)
	}

	opts := render.DefaultOptions(cfg.Variant)
	opts.Mode = m
	opts.DT = cfg.Training.DT
	opts.Logger = logger
	viewer, err := render.New(env, enc, policy, opts)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	w, h := viewer.Layout(0, 0)
	ebiten.SetWindowTitle("Dodge Sense")
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}

// trainAgent trains table in-process on a separate engine so the viewer
// starts from a fresh episode.
func trainAgent(cfg config.Config, table *learn.Table, rng *rand.Rand, episodes int, logger *log.Logger) *learn.Table {
	if episodes <= 0 {
		return table
	}
	env, err := cfg.NewEnv(game.WithRand(rng))
	if err != nil {
		logger.Fatalf("%v", err)
	}
	tc := cfg.Training
	tc.Episodes = episodes
	tc.ReportEvery = max(1, episodes/5)
	enc := game.NewEncoder(cfg.EncoderConfig())
	tr := train.New(env, enc, table, rng, tc, train.WithObserver(train.NewProgressLog(logger, tc.ReportEvery)))
	logger.Printf("training %d episodes before play", episodes)
	res, err := tr.Run(context.Background())
	if err != nil {
		logger.Fatalf("training: %v", err)
	}
	logger.Printf("trained: survived=%d hit=%d final_epsilon=%.4f", res.Survived, res.Hits, res.FinalEpsilon)
	return table
}
