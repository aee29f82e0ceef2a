package domain

import (
	"errors"
	"fmt"
)

// Error types for batch loading.
var (
	// ErrConfiguration is returned when a loader cannot be set up; it is not
	// retryable without a configuration change.
	ErrConfiguration = errors.New("loader configuration error")

	// ErrExecution is returned when a batch load fails while running SQL or
	// materializing rows.
	ErrExecution = errors.New("batch load failed")
)

// ConfigurationError reports a setup failure of an entity loader.
type ConfigurationError struct {
	Entity string
	Cause  error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configure loader for %s: %v", e.Entity, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// LoadError reports a failed batch load. Batch holds every key that was part
// of the failed statement.
type LoadError struct {
	Entity string
	ID     any
	Batch  []any
	Cause  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s#%v (batch of %d): %v", e.Entity, e.ID, len(e.Batch), e.Cause)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is matches ErrExecution.
func (e *LoadError) Is(target error) bool {
	return target == ErrExecution
}
