package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) UpdateColumns(ctx context.Context, db *gorm.DB, id snowflake.ID, columns map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(columns).Error
}

func (r *repo) SaveProgress(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return r.UpdateColumns(ctx, db, user.ID, map[string]any{
		"total_xp":                user.TotalXP,
		"level":                   user.Level,
		"current_streak":          user.CurrentStreak,
		"longest_streak":          user.LongestStreak,
		"last_practice_date":      user.LastPracticeDate,
		"last_streak_shield_used": user.LastStreakShieldUsed,
		"practice_count":          user.PracticeCount,
		"total_repetitions":       user.TotalRepetitions,
		"early_practices":         user.EarlyPractices,
		"late_practices":          user.LatePractices,
		"unique_affirmations":     user.UniqueAffirmations,
		"updated_at":              user.UpdatedAt,
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	stmt := db.WithContext(ctx)
	// sqlite has no row locks; its single writer already serializes the tx.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return first(stmt.Where("id = ?", id))
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.User, error) {
	return first(db.WithContext(ctx).Where("external_id = ?", externalID))
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return first(db.WithContext(ctx).Where("username = ?", username))
}

func (r *repo) IncrementAffirmationsCreated(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("affirmations_created", gorm.Expr("affirmations_created + 1")).Error
}

func (r *repo) Top(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	var users []domain.User
	err := db.WithContext(ctx).
		Order("total_xp desc, id asc").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) CountAbove(ctx context.Context, db *gorm.DB, totalXP int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("total_xp > ?", totalXP).
		Count(&count).Error
	return count, err
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

func (r *repo) NextAbove(ctx context.Context, db *gorm.DB, totalXP int64) (*domain.User, error) {
	return first(db.WithContext(ctx).
		Where("total_xp > ?", totalXP).
		Order("total_xp asc, id asc"))
}

func first(stmt *gorm.DB) (*domain.User, error) {
	var user domain.User
	err := stmt.Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
