package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	exclusionViolation  = "23P01"
)

// IsUniqueViolation reports a UNIQUE constraint failure, optionally for a
// specific constraint name.
func IsUniqueViolation(err error, constraint ...string) bool {
	return hasCode(err, uniqueViolation, constraint)
}

// IsForeignKeyViolation reports a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation, nil)
}

// IsExclusionViolation reports an EXCLUDE constraint failure (overlapping
// fiscal years).
func IsExclusionViolation(err error) bool {
	return hasCode(err, exclusionViolation, nil)
}

func hasCode(err error, code string, constraint []string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
