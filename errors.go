// Package randflake - errors.go provides the sentinel errors and the typed
// errors that carry context for debugging and monitoring.

package randflake

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by the generator and its collaborators.
// Match them with errors.Is; extract details with errors.As.
var (
	// ErrInvalidMachineID is returned when a machine id is outside [0, 1023].
	ErrInvalidMachineID = errors.New("machine ID must be between 0 and 1023")

	// ErrInvalidConfig is returned when Config validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrClockRegression is returned when the clock reads earlier than the
	// last millisecond an ID was minted for. No ID is produced.
	ErrClockRegression = errors.New("clock moved backwards, refusing to generate id")

	// ErrContextCanceled is returned when the context ends while the
	// generator waits for the next millisecond.
	ErrContextCanceled = errors.New("context canceled")

	// ErrTimestampBeforeEpoch is returned when the clock reads earlier than the epoch.
	ErrTimestampBeforeEpoch = errors.New("clock is before the configured epoch")

	// ErrTimestampOverflow is returned when the delta since epoch no longer
	// fits above the machine id and sequence fields.
	ErrTimestampOverflow = errors.New("timestamp delta overflows the id layout")

	// ErrNoCheckpoint is returned by a Checkpointer that has nothing stored
	// for a machine id.
	ErrNoCheckpoint = errors.New("no checkpoint stored")
)

// ClockError describes a backward clock step.
//
// Example usage:
//
//	if clockErr, ok := randflake.GetClockError(err); ok {
//	    log.Warnf("clock regression: drift=%dms", clockErr.DriftMilliseconds)
//	}
type ClockError struct {
	// Current is the clock reading in milliseconds since the Unix epoch.
	Current int64

	// Last is the last millisecond an ID was minted for.
	Last int64

	// DriftMilliseconds is Last - Current (always positive).
	DriftMilliseconds int64

	// MachineID identifies the generator that observed the regression.
	MachineID int64
}

// Error implements the error interface.
func (e *ClockError) Error() string {
	return fmt.Sprintf("clock moved backwards: drift=%dms current=%d last=%d machine=%d",
		e.DriftMilliseconds, e.Current, e.Last, e.MachineID)
}

// Unwrap returns ErrClockRegression for errors.Is.
func (e *ClockError) Unwrap() error {
	return ErrClockRegression
}

// Drift returns the regression as a time.Duration.
func (e *ClockError) Drift() time.Duration {
	return time.Duration(e.DriftMilliseconds) * time.Millisecond
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	// Field is the name of the configuration field that failed validation.
	Field string

	// Value is the invalid value (as string for logging).
	Value string

	// Reason is a human-readable explanation of why the value is invalid.
	Reason string

	// Constraint describes the valid range or constraint.
	Constraint string

	// Err is the specific sentinel, when there is one (e.g. ErrInvalidMachineID).
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%s (%s) - %s",
		e.Field, e.Value, e.Reason, e.Constraint)
}

// Unwrap makes a ConfigError match both ErrInvalidConfig and its specific sentinel.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil || e.Err == ErrInvalidConfig {
		return []error{ErrInvalidConfig}
	}
	return []error{e.Err, ErrInvalidConfig}
}

// CheckpointError wraps a failure of the Checkpointer.
type CheckpointError struct {
	// Op is "load" or "save".
	Op string

	// MachineID is the machine id the checkpoint belongs to.
	MachineID int64

	// Err is the underlying store error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for machine %d: %v", e.Op, e.MachineID, e.Err)
}

// Unwrap returns the underlying store error.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// IsClockError checks if an error is or wraps a ClockError.
func IsClockError(err error) bool {
	var clockErr *ClockError
	return errors.As(err, &clockErr)
}

// IsConfigError checks if an error is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsCheckpointError checks if an error is or wraps a CheckpointError.
func IsCheckpointError(err error) bool {
	var cpErr *CheckpointError
	return errors.As(err, &cpErr)
}

// GetClockError extracts the ClockError from an error chain.
func GetClockError(err error) (*ClockError, bool) {
	var clockErr *ClockError
	if errors.As(err, &clockErr) {
		return clockErr, true
	}
	return nil, false
}

// GetConfigError extracts the ConfigError from an error chain.
func GetConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

func newClockError(current, last, machineID int64) *ClockError {
	return &ClockError{
		Current:           current,
		Last:              last,
		DriftMilliseconds: last - current,
		MachineID:         machineID,
	}
}

func newConfigError(field, value, reason, constraint string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Reason:     reason,
		Constraint: constraint,
		Err:        err,
	}
}
