package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Archived *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, affirmation *Affirmation) error
	// FindByID scopes the lookup to userID; another user's row reads as absent.
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Affirmation, error)
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Affirmation, error)
	ListAll(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter ListFilter) ([]*Affirmation, error)
	Count(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter ListFilter) (int64, error)
	Update(ctx context.Context, db *gorm.DB, affirmation *Affirmation) error
	// RecordPractice bumps the practice counters of one affirmation.
	RecordPractice(ctx context.Context, db *gorm.DB, id snowflake.ID, repetitions int, at time.Time) error
	// Delete removes the affirmation together with its practice events.
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) error
}
