package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/badge/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, badge *domain.Badge) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_type"}},
			DoNothing: true,
		}).
		Create(badge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Badge, error) {
	var badges []domain.Badge
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at asc, id asc").
		Find(&badges).Error
	if err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *repo) ListTypesByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]string, error) {
	var types []string
	err := db.WithContext(ctx).
		Model(&domain.Badge{}).
		Where("user_id = ?", userID).
		Pluck("badge_type", &types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, userID snowflake.ID, badgeType string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Badge{}).
		Where("user_id = ? AND badge_type = ?", userID, badgeType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) CountByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Badge{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
