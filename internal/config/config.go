package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dapr/kit/logger"
	"gopkg.in/yaml.v3"

	"github.com/sxyafiq/randflake"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	MachineID  int64      `yaml:"machineId"`
	Epoch      int64      `yaml:"epoch"`
	Sequence   string     `yaml:"sequence"`
	Clock      string     `yaml:"clock"`
	Checkpoint Checkpoint `yaml:"checkpoint"`
	Log        Log        `yaml:"log"`
}

// Checkpoint selects the persisted high-water mark store.
type Checkpoint struct {
	// DSN is "sqlite:<path>", "redis:<addr>" or "pebble:<dir>". Empty disables checkpointing.
	DSN   string        `yaml:"dsn"`
	Ahead time.Duration `yaml:"ahead"`
}

// Log configures the dapr logger.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Clock names.
const (
	ClockWall      = "wall"
	ClockMonotonic = "monotonic"
)

// Default returns built-in defaults.
func Default() Config {
	return Config{
		MachineID: 0,
		Epoch:     randflake.DefaultEpoch,
		Sequence:  randflake.SequenceRandom.String(),
		Clock:     ClockWall,
		Checkpoint: Checkpoint{
			Ahead: randflake.DefaultCheckpointAhead,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads configuration from a YAML or JSON file, starting from Default.
// If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	// JSON is a subset of YAML, so one decoder serves both extensions.
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field, reporting the first problem.
func (c Config) Validate() error {
	if _, err := c.Generator(nil, nil); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Checkpoint.DSN != "" {
		if _, _, err := splitDSN(c.Checkpoint.DSN); err != nil {
			return err
		}
	}
	return nil
}

// Generator builds the library configuration. store and log may be nil.
func (c Config) Generator(store randflake.Checkpointer, log logger.Logger) (randflake.Config, error) {
	seq, err := randflake.ParseSequenceStrategy(c.Sequence)
	if err != nil {
		return randflake.Config{}, err
	}

	cfg := randflake.DefaultConfig(c.MachineID)
	cfg.Epoch = c.Epoch
	cfg.Sequence = seq
	cfg.Logger = log
	cfg.Checkpointer = store
	cfg.CheckpointAhead = c.Checkpoint.Ahead

	switch strings.ToLower(c.Clock) {
	case "", ClockWall:
		cfg.Clock = randflake.SystemClock{}
	case ClockMonotonic:
		cfg.Clock = randflake.NewMonotonicClock()
	default:
		return randflake.Config{}, fmt.Errorf("%w: clock=%q (must be %s or %s)",
			randflake.ErrInvalidConfig, c.Clock, ClockWall, ClockMonotonic)
	}

	if err := cfg.Validate(); err != nil {
		return randflake.Config{}, err
	}
	return cfg, nil
}

// ParseLevel maps a level name onto the dapr logger levels.
func ParseLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DebugLevel, nil
	case "", "info":
		return logger.InfoLevel, nil
	case "warn", "warning":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	case "fatal":
		return logger.FatalLevel, nil
	default:
		return "", fmt.Errorf("%w: log level %q", randflake.ErrInvalidConfig, level)
	}
}

// NewLogger returns the named dapr logger configured from c.Log.
func (c Config) NewLogger(name string) (logger.Logger, error) {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	l := logger.NewLogger(name)
	l.SetOutputLevel(level)
	l.EnableJSONOutput(c.Log.JSON)
	return l, nil
}
