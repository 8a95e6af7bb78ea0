package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	badgedomain "github.com/smallbiznis/mindshift/internal/badge/domain"
	"github.com/smallbiznis/mindshift/internal/celebration"
	"github.com/smallbiznis/mindshift/internal/level"
	"github.com/smallbiznis/mindshift/internal/xp"
)

const (
	MaxIdempotencyKeyLength = 128

	DefaultHistoryDays = 365
	MaxHistoryDays     = 730

	// EarlyBeforeHour and LateFromHour bound the early and late practice
	// windows, in local hours of the service time zone.
	EarlyBeforeHour = 7
	LateFromHour    = 22
)

func IsEarly(hour int) bool { return hour < EarlyBeforeHour }

func IsLate(hour int) bool { return hour >= LateFromHour }

type SubmitRequest struct {
	AffirmationID   string `json:"affirmation_id"`
	Repetitions     int    `json:"repetitions"`
	DurationSeconds int    `json:"duration_seconds"`
	// IdempotencyKey is optional. A repeated key replays the first result.
	IdempotencyKey string `json:"idempotency_key"`
}

// Result summarizes one committed practice event.
type Result struct {
	PracticeID       snowflake.ID             `json:"practice_id"`
	AffirmationID    snowflake.ID             `json:"affirmation_id"`
	PracticedAt      time.Time                `json:"practiced_at"`
	XPEarned         int64                    `json:"xp_earned"`
	Breakdown        xp.Breakdown             `json:"breakdown"`
	TotalXP          int64                    `json:"total_xp"`
	OldLevel         int                      `json:"old_level"`
	NewLevel         int                      `json:"new_level"`
	OldTier          level.Tier               `json:"old_tier"`
	NewTier          level.Tier               `json:"new_tier"`
	LeveledUp        bool                     `json:"leveled_up"`
	TierChanged      bool                     `json:"tier_changed"`
	CurrentStreak    int                      `json:"current_streak"`
	LongestStreak    int                      `json:"longest_streak"`
	UsedStreakShield bool                     `json:"used_streak_shield"`
	NewBadges        []badgedomain.Definition `json:"new_badges"`
	Celebration      celebration.Type         `json:"celebration"`
	Milestone        *level.Milestone         `json:"milestone,omitempty"`
	Progress         level.Progress           `json:"progress"`
	Replayed         bool                     `json:"replayed"`
}

type TodayProgress struct {
	Date             string `json:"date"`
	PracticeCount    int64  `json:"practice_count"`
	DailyGoal        int    `json:"daily_goal"`
	GoalMet          bool   `json:"goal_met"`
	StreakMaintained bool   `json:"streak_maintained"`
	CurrentStreak    int    `json:"current_streak"`
	XPEarnedToday    int64  `json:"xp_earned_today"`
}

type Stats struct {
	TotalXP              int64          `json:"total_xp"`
	Progress             level.Progress `json:"progress"`
	Tier                 level.TierInfo `json:"tier"`
	CurrentStreak        int            `json:"current_streak"`
	LongestStreak        int            `json:"longest_streak"`
	TotalPractices       int64          `json:"total_practices"`
	TotalRepetitions     int64          `json:"total_repetitions"`
	AffirmationsCreated  int64          `json:"affirmations_created"`
	ActiveAffirmations   int64          `json:"active_affirmations"`
	ArchivedAffirmations int64          `json:"archived_affirmations"`
	EarlyPractices       int64          `json:"early_practices"`
	LatePractices        int64          `json:"late_practices"`
	UniqueAffirmations   int64          `json:"unique_affirmations"`
	PracticesToday       int64          `json:"practices_today"`
	BadgesEarned         int64          `json:"badges_earned"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Result, error)
	TodayProgress(ctx context.Context) (TodayProgress, error)
	History(ctx context.Context, days int) ([]DaySummary, error)
	Stats(ctx context.Context) (Stats, error)
}

var (
	ErrInvalidRepetitions  = errors.New("invalid_repetitions")
	ErrInvalidDuration     = errors.New("invalid_duration")
	ErrInvalidAffirmation  = errors.New("invalid_affirmation")
	ErrInvalidIdempotency  = errors.New("invalid_idempotency_key")
	ErrInvalidPracticeDate = errors.New("invalid_practice_date")
	ErrAffirmationNotFound = errors.New("affirmation_not_found")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrTooManyRequests     = errors.New("too_many_requests")
	ErrBusy                = errors.New("submission_in_progress")
	ErrRetryable           = errors.New("retryable_storage_error")
)
