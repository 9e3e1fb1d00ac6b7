package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is the repository-level not-found sentinel.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err is a not-found condition from any
// repository backend.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
