// Package config loads run parameters from YAML. A file only needs the keys
// it changes; everything else keeps its default.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Dodge-Sense/internal/game"
	"github.com/Garsondee/Dodge-Sense/internal/learn"
	"github.com/Garsondee/Dodge-Sense/internal/train"
)

// EnvVar names the environment variable the binaries read a default
// config path from.
const EnvVar = "DODGE_CONFIG"

//go:embed config.schema.json
var schemaJSON string

// Encoders holds one encoder configuration per variant.
type Encoders struct {
	Continuous game.EncoderConfig `yaml:"continuous"`
	Grid       game.EncoderConfig `yaml:"grid"`
}

// Config is the full set of run parameters.
type Config struct {
	Variant    game.Variant          `yaml:"variant"`
	Seed       int64                 `yaml:"seed"`
	Continuous game.ContinuousConfig `yaml:"continuous"`
	Grid       game.GridConfig       `yaml:"grid"`
	Encoder    Encoders              `yaml:"encoder"`
	Learning   learn.Params          `yaml:"learning"`
	Training   train.Config          `yaml:"training"`
}

// Defaults returns the training defaults for every section.
func Defaults() Config {
	return Config{
		Variant:    game.VariantContinuous,
		Seed:       1,
		Continuous: game.DefaultContinuousConfig(),
		Grid:       game.DefaultGridConfig(),
		Encoder: Encoders{
			Continuous: game.DefaultContinuousEncoder(),
			Grid:       game.DefaultGridEncoder(),
		},
		Learning: learn.DefaultParams(),
		Training: train.DefaultConfig(),
	}
}

// Load reads path and overlays it on Defaults. The raw document is checked
// against the embedded schema before any value is applied.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse is Load for an in-memory document.
func Parse(raw []byte) (Config, error) {
	cfg := Defaults()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	doc, err := yamlToJSONValue(raw)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FromEnv loads the file named by DODGE_CONFIG, or returns Defaults when the
// variable is unset.
func FromEnv() (Config, error) {
	if p := os.Getenv(EnvVar); p != "" {
		return Load(p)
	}
	return Defaults(), nil
}

// Validate runs the semantic checks the schema cannot express.
func (c Config) Validate() error {
	var errs []error
	if _, err := game.ParseVariant(string(c.Variant)); err != nil {
		errs = append(errs, err)
	}
	if err := c.Continuous.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("continuous: %w", err))
	}
	if err := c.Grid.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("grid: %w", err))
	}
	if err := c.Encoder.Continuous.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("encoder.continuous: %w", err))
	}
	if err := c.Encoder.Grid.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("encoder.grid: %w", err))
	}
	if err := c.Learning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("learning: %w", err))
	}
	if err := c.Training.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("training: %w", err))
	}
	return errors.Join(errs...)
}

// EncoderConfig returns the encoder settings of the selected variant.
func (c Config) EncoderConfig() game.EncoderConfig {
	if c.Variant == game.VariantGrid {
		return c.Encoder.Grid
	}
	return c.Encoder.Continuous
}

// NewEnv constructs the engine of the selected variant.
func (c Config) NewEnv(opts ...game.Option) (game.Env, error) {
	switch c.Variant {
	case game.VariantContinuous:
		return game.NewContinuous(c.Continuous, opts...), nil
	case game.VariantGrid:
		return game.NewGrid(c.Grid, opts...), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", c.Variant)
	}
}

// Build constructs the engine, encoder and Q-table for the selected variant,
// all drawing from rng.
func (c Config) Build(rng *rand.Rand, opts ...game.Option) (game.Env, game.Encoder, *learn.Table, error) {
	if err := c.Validate(); err != nil {
		return nil, game.Encoder{}, nil, err
	}
	env, err := c.NewEnv(append([]game.Option{game.WithRand(rng)}, opts...)...)
	if err != nil {
		return nil, game.Encoder{}, nil, err
	}
	enc := game.NewEncoder(c.EncoderConfig())
	table := learn.NewTable(enc.TimeBins(), c.Learning, rng)
	return env, enc, table, nil
}

// JSON renders the config with its YAML key names, for storing alongside
// run records.
func (c Config) JSON() ([]byte, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	doc, err := yamlToJSONValue(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// yamlToJSONValue decodes YAML into the value shapes encoding/json produces
// (float64 numbers, map[string]any objects), which the schema validator
// expects.
func yamlToJSONValue(raw []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateSchema(doc any) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return schema.Validate(doc)
}
