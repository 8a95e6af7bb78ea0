package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/practice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, practice *domain.Practice) error {
	return db.WithContext(ctx).Create(practice).Error
}

func (r *repo) CountOnDate(ctx context.Context, db *gorm.DB, userID snowflake.ID, date string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Practice{}).
		Where("user_id = ? AND practice_date = ?", userID, date).
		Count(&count).Error
	return count, err
}

func (r *repo) SummaryOnDate(ctx context.Context, db *gorm.DB, userID snowflake.ID, date string) (domain.DaySummary, error) {
	summary := domain.DaySummary{Date: date}
	err := db.WithContext(ctx).
		Model(&domain.Practice{}).
		Select("COUNT(*) AS count, COALESCE(SUM(repetitions), 0) AS repetitions, COALESCE(SUM(xp_earned), 0) AS xp").
		Where("user_id = ? AND practice_date = ?", userID, date).
		Scan(&summary).Error
	if err != nil {
		return domain.DaySummary{}, err
	}
	summary.Date = date
	return summary, nil
}

func (r *repo) DailySummaries(ctx context.Context, db *gorm.DB, userID snowflake.ID, fromDate string) ([]domain.DaySummary, error) {
	var out []domain.DaySummary
	err := db.WithContext(ctx).
		Model(&domain.Practice{}).
		Select("practice_date AS date, COUNT(*) AS count, SUM(repetitions) AS repetitions, SUM(xp_earned) AS xp").
		Where("user_id = ? AND practice_date >= ?", userID, fromDate).
		Group("practice_date").
		Order("practice_date asc").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) CountByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Practice{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repo) FindSubmission(ctx context.Context, db *gorm.DB, userID snowflake.ID, key string) (*domain.Submission, error) {
	var submission domain.Submission
	err := db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Take(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *repo) InsertSubmission(ctx context.Context, db *gorm.DB, submission *domain.Submission) error {
	return db.WithContext(ctx).Create(submission).Error
}
