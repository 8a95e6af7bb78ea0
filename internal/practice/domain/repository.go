package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DaySummary aggregates the practice events of one calendar day.
type DaySummary struct {
	Date        string `json:"date"`
	Count       int64  `json:"count"`
	Repetitions int64  `json:"repetitions"`
	XP          int64  `json:"xp"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, practice *Practice) error
	CountOnDate(ctx context.Context, db *gorm.DB, userID snowflake.ID, date string) (int64, error)
	SummaryOnDate(ctx context.Context, db *gorm.DB, userID snowflake.ID, date string) (DaySummary, error)
	// DailySummaries groups events from the given date onwards, oldest first.
	DailySummaries(ctx context.Context, db *gorm.DB, userID snowflake.ID, fromDate string) ([]DaySummary, error)
	CountByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)

	FindSubmission(ctx context.Context, db *gorm.DB, userID snowflake.ID, key string) (*Submission, error)
	InsertSubmission(ctx context.Context, db *gorm.DB, submission *Submission) error
}
