package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"github.com/Garsondee/Dodge-Sense/internal/config"
	"github.com/Garsondee/Dodge-Sense/internal/game"
	"github.com/Garsondee/Dodge-Sense/internal/persistence/episodedb"
	"github.com/Garsondee/Dodge-Sense/internal/persistence/eventlog"
	"github.com/Garsondee/Dodge-Sense/internal/train"
	"github.com/Garsondee/Dodge-Sense/internal/transport/observer"
)

// runFlags are the command-line settings layered over the config file.
type runFlags struct {
	configPath string
	variant    string
	episodes   int
	seed       int64
	dbPath     string
	eventsDir  string
	observe    string
	copyReport bool
	plotWindow int

	// set records which flags were given explicitly.
	set map[string]bool
}

func main() {
	var f runFlags
	flag.StringVar(&f.configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	flag.StringVar(&f.variant, "variant", "", "engine variant: continuous or grid")
	flag.IntVar(&f.episodes, "episodes", 0, "training episodes (overrides config)")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (overrides config)")
	flag.StringVar(&f.dbPath, "db", "", "SQLite episode index path")
	flag.StringVar(&f.eventsDir, "events", "", "directory for the zstd JSONL event log")
	flag.StringVar(&f.observe, "observe", "", "serve a websocket viewer stream on this address, e.g. 127.0.0.1:8090")
	flag.BoolVar(&f.copyReport, "copy", false, "copy the final report to the clipboard")
	flag.IntVar(&f.plotWindow, "plot-window", 0, "moving-average window for the report (default report_every)")
	flag.Parse()
	f.set = map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	logger := log.New(os.Stdout, "[train] ", log.LstdFlags)

	cfg, err := loadConfig(f)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := run(ctx, cfg, f, logger, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("%v", err)
	}
	if f.copyReport {
		if err := clipboard.WriteAll(report); err != nil {
			logger.Printf("clipboard: %v", err)
		} else {
			logger.Printf("report copied to clipboard")
		}
	}
}

// loadConfig reads the config file (or $DODGE_CONFIG) and applies flag
// overrides.
func loadConfig(f runFlags) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, f); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyFlags(cfg *config.Config, f runFlags) error {
	if f.set["variant"] {
		v, err := game.ParseVariant(f.variant)
		if err != nil {
			return err
		}
		cfg.Variant = v
	}
	if f.set["episodes"] {
		if f.episodes <= 0 {
			return fmt.Errorf("-episodes must be > 0")
		}
		cfg.Training.Episodes = f.episodes
	}
	if f.set["seed"] {
		cfg.Seed = f.seed
	}
	// Streams need demo episodes to have anything to show.
	if (f.observe != "" || f.eventsDir != "") && cfg.Training.DemoEvery == 0 {
		cfg.Training.DemoEvery = cfg.Training.ReportEvery
	}
	return nil
}

// configJSON renders cfg for the runs table, falling back to an empty
// object.
func configJSON(cfg config.Config, logger *log.Logger) []byte {
	b, err := cfg.JSON()
	if err != nil {
		logger.Printf("episode index: config json: %v", err)
		return []byte("{}")
	}
	return b
}

// run trains once and writes the report to out. Collaborator failures are
// logged, never fatal.
func run(ctx context.Context, cfg config.Config, f runFlags, logger *log.Logger, out io.Writer) (string, error) {
	rng := rand.New(rand.NewSource(cfg.Seed)) // #nosec G404 -- deterministic simulation RNG
	env, enc, table, err := cfg.Build(rng)
	if err != nil {
		return "", err
	}

	opts := []train.Option{train.WithObserver(train.NewProgressLog(logger, cfg.Training.ReportEvery))}
	runID := uuid.NewString()

	if f.dbPath != "" {
		idx, err := episodedb.Open(f.dbPath)
		if err != nil {
			logger.Printf("episode index disabled: %v", err)
		} else {
			defer func() {
				if n := idx.Dropped(); n > 0 {
					logger.Printf("episode index dropped %d rows", n)
				}
				if n, err := idx.Failures(); n > 0 {
					logger.Printf("episode index: %d rows failed to write, first: %v", n, err)
				}
				if err := idx.Close(); err != nil {
					logger.Printf("episode index close: %v", err)
				}
			}()
			if id, err := idx.StartRun(ctx, cfg.Variant, cfg.Seed, configJSON(cfg, logger)); err != nil {
				logger.Printf("episode index disabled: %v", err)
			} else {
				runID = id
				opts = append(opts, train.WithObserver(idx))
			}
		}
	}

	if f.eventsDir != "" {
		w, err := eventlog.Create(f.eventsDir, runID)
		if err != nil {
			logger.Printf("event log disabled: %v", err)
		} else {
			defer func() {
				if n, err := w.Failures(); n > 0 {
					logger.Printf("event log: %d writes failed, first: %v", n, err)
				}
				if err := w.Close(); err != nil {
					logger.Printf("event log close: %v", err)
				}
				logger.Printf("event log: %d records in %s", w.Count(), w.Path())
			}()
			opts = append(opts, train.WithObserver(w))
		}
	}

	if f.observe != "" {
		hub := observer.NewHub(logger)
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := hub.Serve(serveCtx, f.observe); err != nil {
				logger.Printf("observer stream: %v", err)
			}
		}()
		logger.Printf("observer stream on ws://%s/ws", f.observe)
		opts = append(opts, train.WithObserver(hub))
	}

	logger.Printf("run %s: variant=%s seed=%d episodes=%d states=%d",
		runID, cfg.Variant, cfg.Seed, cfg.Training.Episodes, table.States())

	tr := train.New(env, enc, table, rng, cfg.Training, opts...)
	res, err := tr.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Printf("interrupted after %d episodes", res.Episodes)
	}

	window := f.plotWindow
	if window <= 0 {
		window = cfg.Training.ReportEvery
	}
	report := res.Format(window)
	fmt.Fprint(out, report)
	return report, err
}
