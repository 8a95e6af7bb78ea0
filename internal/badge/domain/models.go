package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Badge records that a user earned a badge type. At most one row exists per
// (user_id, badge_type).
type Badge struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_badges_user_type,priority:1" json:"user_id"`
	BadgeType string       `gorm:"type:varchar(64);not null;uniqueIndex:ux_badges_user_type,priority:2" json:"badge_type"`
	EarnedAt  time.Time    `gorm:"not null" json:"earned_at"`
}

func (Badge) TableName() string { return "badges" }
