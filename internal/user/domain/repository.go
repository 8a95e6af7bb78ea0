package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	// UpdateColumns writes only the given columns of one user row.
	UpdateColumns(ctx context.Context, db *gorm.DB, id snowflake.ID, columns map[string]any) error
	// SaveProgress writes the progression state and practice aggregates.
	// The practice orchestrator is its only caller.
	SaveProgress(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	IncrementAffirmationsCreated(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	Top(ctx context.Context, db *gorm.DB, limit int) ([]User, error)
	CountAbove(ctx context.Context, db *gorm.DB, totalXP int64) (int64, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	// NextAbove returns the user with the smallest XP strictly above totalXP.
	NextAbove(ctx context.Context, db *gorm.DB, totalXP int64) (*User, error)
}
