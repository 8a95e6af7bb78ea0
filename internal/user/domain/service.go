package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/level"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type EnsureUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type UpdateSettingsRequest struct {
	DailyPracticeGoal *int    `json:"daily_practice_goal"`
	ReminderEnabled   *bool   `json:"reminder_enabled"`
	ReminderTime      *string `json:"reminder_time"`
	AnonymousMode     *bool   `json:"anonymous_mode"`
}

// UpdateProfileRequest changes the public username. An empty string clears it.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
}

type UpdateSubscriptionRequest struct {
	Tier                 SubscriptionTier `json:"tier"`
	Status               string           `json:"status"`
	StripeCustomerID     string           `json:"stripe_customer_id"`
	StripeSubscriptionID string           `json:"stripe_subscription_id"`
	EndsAt               *time.Time       `json:"ends_at"`
}

// Profile is the authenticated user's view of themselves.
type Profile struct {
	User
	Progress level.Progress `json:"progress"`
	Tier     level.TierInfo `json:"tier"`
}

type LeaderboardEntry struct {
	Rank          int          `json:"rank"`
	UserID        snowflake.ID `json:"user_id"`
	DisplayName   string       `json:"display_name"`
	TotalXP       int64        `json:"total_xp"`
	Level         int          `json:"level"`
	CurrentStreak int          `json:"current_streak"`
	IsCurrentUser bool         `json:"is_current_user"`
}

type RankInfo struct {
	Rank             int64  `json:"rank"`
	TotalUsers       int64  `json:"total_users"`
	Percentile       int64  `json:"percentile"`
	XPToNextRank     int64  `json:"xp_to_next_rank"`
	NextRankUsername string `json:"next_rank_username,omitempty"`
}

type Service interface {
	EnsureUser(ctx context.Context, req EnsureUserRequest) (User, error)
	Me(ctx context.Context) (Profile, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (User, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (User, error)
	UpdateSubscription(ctx context.Context, externalID string, req UpdateSubscriptionRequest) (User, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	RankInfo(ctx context.Context) (RankInfo, error)
	// Resolve maps the authenticated subject on ctx to the internal user id.
	Resolve(ctx context.Context) (snowflake.ID, error)
	ResolveExternalID(ctx context.Context, externalID string) (snowflake.ID, error)
	Get(ctx context.Context, id snowflake.ID) (User, error)
}

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrNotFound                = errors.New("user_not_found")
	ErrInvalidEmail            = errors.New("invalid_email")
	ErrInvalidDailyGoal        = errors.New("invalid_daily_practice_goal")
	ErrInvalidReminderTime     = errors.New("invalid_reminder_time")
	ErrInvalidUsername         = errors.New("invalid_username")
	ErrUsernameRequiresPro     = errors.New("username_requires_pro")
	ErrUsernameTaken           = errors.New("username_taken")
	ErrInvalidSubscriptionTier = errors.New("invalid_subscription_tier")
)
