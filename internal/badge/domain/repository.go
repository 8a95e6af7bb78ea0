package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfAbsent reports whether a new row was written.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, badge *Badge) (bool, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Badge, error)
	ListTypesByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]string, error)
	Exists(ctx context.Context, db *gorm.DB, userID snowflake.ID, badgeType string) (bool, error)
	CountByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}
