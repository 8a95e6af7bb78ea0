// Package celebration classifies a completed practice for the presentation
// layer. The result is advisory and never persisted.
package celebration

import "github.com/smallbiznis/mindshift/internal/level"

type Type string

const (
	None       Type = "none"
	Standard   Type = "standard"
	LevelUp    Type = "levelUp"
	Milestone  Type = "milestone"
	TierChange Type = "tierChange"
)

// MilestoneInterval is the level spacing of milestone celebrations.
const MilestoneInterval = 5

// Classify picks the single celebration for a level transition, highest
// precedence first: tierChange, milestone, levelUp, standard. Levels below 1
// or a decreasing level are not a valid completion and yield None.
func Classify(oldLevel, newLevel int, oldTier, newTier level.Tier) Type {
	if oldLevel < 1 || newLevel < oldLevel {
		return None
	}
	switch {
	case oldTier != newTier:
		return TierChange
	case newLevel > oldLevel && newLevel%MilestoneInterval == 0:
		return Milestone
	case newLevel > oldLevel:
		return LevelUp
	default:
		return Standard
	}
}

// ForLevels derives both tiers from the levels before classifying.
func ForLevels(oldLevel, newLevel int) Type {
	return Classify(oldLevel, newLevel, level.TierForLevel(oldLevel), level.TierForLevel(newLevel))
}
