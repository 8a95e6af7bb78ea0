package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionTier string

const (
	TierFree  SubscriptionTier = "free"
	TierPro   SubscriptionTier = "pro"
	TierElite SubscriptionTier = "elite"
)

// Valid reports whether t is a known subscription tier.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierElite:
		return true
	}
	return false
}

// IsPaid reports whether t unlocks paid features such as the streak shield.
func (t SubscriptionTier) IsPaid() bool {
	return t == TierPro || t == TierElite
}

const (
	DefaultDailyPracticeGoal = 1
	DefaultReminderTime      = "09:00"
)

// User holds identity, settings, progression state and the lifetime
// aggregates badge rules are evaluated against.
type User struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID string       `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_id"`
	Email      string       `gorm:"not null" json:"email"`
	Name       string       `json:"name,omitempty"`
	ImageURL   string       `json:"image_url,omitempty"`
	Username   *string      `gorm:"type:varchar(64);uniqueIndex" json:"username,omitempty"`

	TotalXP              int64      `gorm:"not null" json:"total_xp"`
	Level                int        `gorm:"not null" json:"level"`
	CurrentStreak        int        `gorm:"not null" json:"current_streak"`
	LongestStreak        int        `gorm:"not null" json:"longest_streak"`
	LastPracticeDate     *string    `gorm:"type:varchar(10)" json:"last_practice_date,omitempty"`
	LastStreakShieldUsed *time.Time `json:"last_streak_shield_used,omitempty"`

	DailyPracticeGoal int    `gorm:"not null" json:"daily_practice_goal"`
	ReminderEnabled   bool   `gorm:"not null" json:"reminder_enabled"`
	ReminderTime      string `gorm:"type:varchar(5)" json:"reminder_time"`
	AnonymousMode     bool   `gorm:"not null" json:"anonymous_mode"`

	SubscriptionTier     SubscriptionTier `gorm:"type:varchar(16);not null;index" json:"subscription_tier"`
	SubscriptionStatus   string           `json:"subscription_status,omitempty"`
	StripeCustomerID     string           `json:"-"`
	StripeSubscriptionID string           `json:"-"`
	SubscriptionEndsAt   *time.Time       `json:"subscription_ends_at,omitempty"`

	PracticeCount       int64 `gorm:"not null" json:"practice_count"`
	TotalRepetitions    int64 `gorm:"not null" json:"total_repetitions"`
	AffirmationsCreated int64 `gorm:"not null" json:"affirmations_created"`
	EarlyPractices      int64 `gorm:"not null" json:"early_practices"`
	LatePractices       int64 `gorm:"not null" json:"late_practices"`
	UniqueAffirmations  int64 `gorm:"not null" json:"unique_affirmations"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// IsPro reports whether the user is on a paid tier.
func (u User) IsPro() bool {
	return u.SubscriptionTier.IsPaid()
}

// DisplayName is the public name used on the leaderboard.
func (u User) DisplayName() string {
	if u.AnonymousMode {
		id := u.ID.String()
		if len(id) > 4 {
			id = id[len(id)-4:]
		}
		return "Player" + id
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	if u.Name != "" {
		return u.Name
	}
	return "Anonymous"
}
