package client

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that no row exists for the requested identifier.
	ErrNotFound = errors.New("ormcore: entity not found")

	// ErrClosed indicates use of a closed client.
	ErrClosed = errors.New("ormcore: client closed")

	// ErrUnknownEntity indicates an entity name or type that was never registered.
	ErrUnknownEntity = metadata.ErrUnknownEntity

	// ErrInvalidIdentifier indicates an id that cannot be converted to the
	// entity's identifier type.
	ErrInvalidIdentifier = metadata.ErrInvalidIdentifier

	// ErrConfiguration indicates a loader that cannot be set up, for example
	// an identifier type without a registered array type.
	ErrConfiguration = domain.ErrConfiguration

	// ErrExecution indicates a batch load that failed while running SQL or
	// materializing rows.
	ErrExecution = domain.ErrExecution
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     any
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ormcore: %s#%v not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationError checks if an error is a loader configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsExecutionError checks if an error is a failed batch load.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecution)
}

// IsUnknownEntity checks if an error names an unregistered entity.
func IsUnknownEntity(err error) bool {
	return errors.Is(err, ErrUnknownEntity)
}
