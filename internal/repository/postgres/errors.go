package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// isUniqueViolation reports a unique constraint failure, optionally limited
// to constraints whose name contains column.
func isUniqueViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return column == "" || strings.Contains(pgErr.ConstraintName, column)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
