package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Practice is one immutable practice event.
type Practice struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID `gorm:"not null;index:idx_practices_user_date,priority:1" json:"user_id"`
	AffirmationID   snowflake.ID `gorm:"not null;index" json:"affirmation_id"`
	Repetitions     int          `gorm:"not null" json:"repetitions"`
	DurationSeconds int          `gorm:"not null" json:"duration_seconds"`
	XPEarned        int64        `gorm:"not null" json:"xp_earned"`
	// PracticeDate is the calendar day in the service time zone.
	PracticeDate string    `gorm:"type:varchar(10);not null;index:idx_practices_user_date,priority:2" json:"practice_date"`
	PracticedAt  time.Time `gorm:"not null" json:"practiced_at"`
}

func (Practice) TableName() string { return "practices" }

// Submission remembers the result returned for a client idempotency key.
type Submission struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID   `gorm:"not null;uniqueIndex:ux_practice_submissions_user_key,priority:1" json:"user_id"`
	IdempotencyKey string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_practice_submissions_user_key,priority:2" json:"idempotency_key"`
	PracticeID     snowflake.ID   `gorm:"not null" json:"practice_id"`
	Result         datatypes.JSON `gorm:"not null" json:"result"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (Submission) TableName() string { return "practice_submissions" }
