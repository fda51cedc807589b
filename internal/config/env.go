package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sxyafiq/randflake"
)

// FromEnv overlays RANDFLAKE_* environment variables onto cfg.
//
// A variable that is set but does not parse is an error wrapping
// randflake.ErrInvalidConfig; cfg is left untouched in that case.
func FromEnv(cfg *Config) error {
	out := *cfg

	if v := os.Getenv("RANDFLAKE_MACHINE_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("RANDFLAKE_MACHINE_ID", v, err)
		}
		out.MachineID = n
	}
	if v := os.Getenv("RANDFLAKE_EPOCH"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("RANDFLAKE_EPOCH", v, err)
		}
		out.Epoch = n
	}
	if v := os.Getenv("RANDFLAKE_SEQUENCE"); v != "" {
		out.Sequence = v
	}
	if v := os.Getenv("RANDFLAKE_CLOCK"); v != "" {
		out.Clock = v
	}
	if v := os.Getenv("RANDFLAKE_CHECKPOINT_DSN"); v != "" {
		out.Checkpoint.DSN = v
	}
	if v := os.Getenv("RANDFLAKE_CHECKPOINT_AHEAD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("RANDFLAKE_CHECKPOINT_AHEAD", v, err)
		}
		out.Checkpoint.Ahead = d
	}
	if v := os.Getenv("RANDFLAKE_LOG_LEVEL"); v != "" {
		out.Log.Level = v
	}
	if v := os.Getenv("RANDFLAKE_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("RANDFLAKE_LOG_JSON", v, err)
		}
		out.Log.JSON = b
	}

	*cfg = out
	return nil
}

func envError(name, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %w", randflake.ErrInvalidConfig, name, value, err)
}
