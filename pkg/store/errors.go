package store

import (
	"errors"
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// NotFound returns an error wrapping constants.ErrNotFound for the entity.
func NotFound(entity models.EntityType, id fmt.Stringer) error {
	return fmt.Errorf("%s %s: %w", entity, id, constants.ErrNotFound)
}

// IsNotFound reports whether err means the entity does not exist in the
// requested workspace.
func IsNotFound(err error) bool {
	return errors.Is(err, constants.ErrNotFound)
}

// IntegrityError reports an operation that would break a store invariant,
// typically a foreign key that does not resolve inside the workspace.
// The operation is never partially applied.
type IntegrityError struct {
	Entity models.EntityType
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %s", e.Entity, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return constants.ErrIntegrity }

// Integrity builds an *IntegrityError with a formatted reason.
func Integrity(entity models.EntityType, format string, args ...any) error {
	return &IntegrityError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// StorageFullError reports that the backing storage has no room left.
type StorageFullError struct {
	Cause error
}

func (e *StorageFullError) Error() string {
	if e.Cause == nil {
		return constants.ErrStorageFull.Error()
	}
	return fmt.Sprintf("%s: %v", constants.ErrStorageFull, e.Cause)
}

func (e *StorageFullError) Is(target error) bool { return target == constants.ErrStorageFull }
func (e *StorageFullError) Unwrap() error        { return e.Cause }
