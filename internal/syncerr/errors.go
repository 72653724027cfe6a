// Package syncerr defines the error taxonomy shared by the loader,
// converters, and sync engine.
//
// Per-record errors (ValidationError, ConversionError, ConflictError,
// IOError) are fatal for that record only and are collected into the run
// report. ConfigError is fatal to the entire run: a broken exclusion or
// sync-state document means the diff basis cannot be trusted.
package syncerr

import (
	"errors"
	"fmt"
)

// ValidationError marks a malformed or ambiguous source record.
type ValidationError struct {
	Component string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Component, e.Reason)
}

// NewValidation creates a ValidationError for the named component.
func NewValidation(component, format string, args ...any) error {
	return &ValidationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// ConversionError marks a transform that cannot be applied to a record.
type ConversionError struct {
	Component string
	Target    string
	Reason    string
}

func (e *ConversionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("conversion: %s: %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("conversion: %s -> %s: %s", e.Component, e.Target, e.Reason)
}

// NewConversion creates a ConversionError for the named component.
func NewConversion(component, target, format string, args ...any) error {
	return &ConversionError{Component: component, Target: target, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError marks on-disk divergence detected without the force flag.
// The entry is skipped and reported, the run continues.
type ConflictError struct {
	Component string
	Path      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s diverged on disk at %s (use force to overwrite)", e.Component, e.Path)
}

// NewConflict creates a ConflictError for the named component.
func NewConflict(component, path string) error {
	return &ConflictError{Component: component, Path: path}
}

// IOError marks a failed filesystem mutation. Fatal for that entry only,
// the batch continues.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIO wraps a filesystem error for a single entry.
func NewIO(path, op string, err error) error {
	return &IOError{Path: path, Op: op, Err: err}
}

// ConfigError marks a malformed exclusion-rule or sync-state document.
// Fatal to the entire run before any mutation.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Path, e.Reason)
}

// NewConfig creates a ConfigError for the given document.
func NewConfig(path, format string, args ...any) error {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err must abort the run rather than a single entry.
func IsFatal(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsConflict reports whether err is a skip-and-report divergence conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
