package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"gorm.io/gorm"
)

// translate maps driver and GORM errors onto the shared error vocabulary.
// Errors that already carry one of the shared sentinels pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var integrity *store.IntegrityError
	var full *store.StorageFullError
	switch {
	case errors.As(err, &integrity), errors.As(err, &full):
		return err
	case errors.Is(err, constants.ErrNotFound),
		errors.Is(err, constants.ErrValidation),
		errors.Is(err, constants.ErrConflict):
		return err
	case isStorageFull(err):
		return &store.StorageFullError{Cause: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", constants.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &store.IntegrityError{Reason: err.Error()}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", constants.ErrNotFound, err)
	}
	return err
}

// isStorageFull recognises SQLITE_FULL and PostgreSQL disk_full (53100).
func isStorageFull(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLITE_FULL") ||
		strings.Contains(msg, "SQLSTATE 53100")
}
