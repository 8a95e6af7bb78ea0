package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: users.username")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(gorm.ErrRecordNotFound))
	assert.False(t, IsRetryable(nil))
}
