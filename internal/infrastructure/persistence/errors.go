package persistence

import (
	"errors"

	"github.com/bapx/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// storageErr converts a driver error into a domain error. Domain errors
// raised inside a transaction pass through untouched.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return shared.NewStorageError(op, err)
}

// isDuplicateKey reports whether err is a unique constraint violation.
// Driver errors are passed through the dialector's translator, so this
// works whether or not the connection enables TranslateError.
func isDuplicateKey(db *gorm.DB, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if t, ok := db.Dialector.(gorm.ErrorTranslator); ok {
		return errors.Is(t.Translate(err), gorm.ErrDuplicatedKey)
	}
	return false
}
