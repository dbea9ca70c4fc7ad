package postgres

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == uniqueViolation
	}
	return false
}
