// Package config loads randflake CLI configuration from a YAML (or JSON)
// file and RANDFLAKE_* environment variables, and turns it into a
// randflake.Config with its checkpoint store and logger.
//
// Example:
//
//	cfg, err := config.Load("/etc/randflake.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.FromEnv(&cfg); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	store, closeStore, err := config.OpenCheckpointer(ctx, cfg.Checkpoint.DSN)
package config
