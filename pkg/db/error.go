package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if hasPGCode(err, "23505") {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsRetryable reports storage failures a caller may retry once with fresh
// state: serialization failures, deadlocks, lock timeouts and busy databases.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if hasPGCode(err, "40001") || hasPGCode(err, "40P01") || hasPGCode(err, "55P03") {
		return true
	}

	msg := err.Error()
	switch {
	// MySQL deadlock / lock wait timeout
	case strings.Contains(msg, "Error 1213"), strings.Contains(msg, "Error 1205"):
		return true
	// SQLite
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return true
	}
	return false
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
