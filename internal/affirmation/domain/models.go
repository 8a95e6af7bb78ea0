package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Affirmation is a reframed thought owned by one user. The practice
// counters only ever grow through recorded practice events.
type Affirmation struct {
	ID                   snowflake.ID                `gorm:"primaryKey" json:"id"`
	UserID               snowflake.ID                `gorm:"not null;index:idx_affirmations_user_archived,priority:1" json:"user_id"`
	OriginalThought      string                      `gorm:"type:text;not null" json:"original_thought"`
	AffirmationText      string                      `gorm:"type:text;not null" json:"affirmation_text"`
	DetectedLevel        *int                        `json:"detected_level,omitempty"`
	CognitiveDistortions datatypes.JSONSlice[string] `json:"cognitive_distortions,omitempty"`
	ThemeCategory        string                      `gorm:"type:varchar(64)" json:"theme_category,omitempty"`
	ChosenLevel          *int                        `json:"chosen_level,omitempty"`
	UserEdited           bool                        `gorm:"not null" json:"user_edited"`
	Archived             bool                        `gorm:"not null;index:idx_affirmations_user_archived,priority:2" json:"archived"`
	TimesPracticed       int64                       `gorm:"not null" json:"times_practiced"`
	TotalRepetitions     int64                       `gorm:"not null" json:"total_repetitions"`
	LastPracticedAt      *time.Time                  `json:"last_practiced_at,omitempty"`
	CreatedAt            time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Affirmation) TableName() string { return "affirmations" }
