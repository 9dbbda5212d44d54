package repository

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/training-api/pkg/database"
)

// isNotFound treats a malformed id like a missing row: no row can ever match
// it.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err)
}
