package storage

import (
	"errors"

	"github.com/glowstudio/studio/libs/db"
	"github.com/jackc/pgx/v5"
)

// IsConflict reports a unique violation, which for appointments means another
// booking already holds the same start on the same date.
func IsConflict(err error) bool {
	return db.HasCode(err, db.CodeUniqueViolation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
