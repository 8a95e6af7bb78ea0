package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/affirmation/domain"
	"github.com/smallbiznis/mindshift/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, affirmation *domain.Affirmation) error {
	return db.WithContext(ctx).Create(affirmation).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Affirmation, error) {
	var affirmation domain.Affirmation
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&affirmation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &affirmation, nil
}

// List pages newest first. Snowflake ids are time ordered, so the id alone
// is a stable cursor.
func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Affirmation, error) {
	stmt := scoped(db.WithContext(ctx), userID, filter)
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		after, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		stmt = stmt.Where("id < ?", after)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}

	var items []*domain.Affirmation
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter domain.ListFilter) ([]*domain.Affirmation, error) {
	var items []*domain.Affirmation
	err := scoped(db.WithContext(ctx), userID, filter).
		Order("id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter domain.ListFilter) (int64, error) {
	var count int64
	err := scoped(db.WithContext(ctx), userID, filter).Count(&count).Error
	return count, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, affirmation *domain.Affirmation) error {
	return db.WithContext(ctx).
		Model(&domain.Affirmation{}).
		Where("id = ? AND user_id = ?", affirmation.ID, affirmation.UserID).
		Updates(map[string]any{
			"affirmation_text": affirmation.AffirmationText,
			"user_edited":      affirmation.UserEdited,
			"archived":         affirmation.Archived,
			"updated_at":       affirmation.UpdatedAt,
		}).Error
}

func (r *repo) RecordPractice(ctx context.Context, db *gorm.DB, id snowflake.ID, repetitions int, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Affirmation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"times_practiced":   gorm.Expr("times_practiced + 1"),
			"total_repetitions": gorm.Expr("total_repetitions + ?", repetitions),
			"last_practiced_at": at,
			"updated_at":        at,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM practices WHERE affirmation_id = ? AND user_id = ?", id, userID).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Affirmation{}).Error
	})
}

func scoped(db *gorm.DB, userID snowflake.ID, filter domain.ListFilter) *gorm.DB {
	stmt := db.Model(&domain.Affirmation{}).Where("user_id = ?", userID)
	if filter.Archived != nil {
		stmt = stmt.Where("archived = ?", *filter.Archived)
	}
	return stmt
}
