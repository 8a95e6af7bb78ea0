package rules

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/mindshift/internal/badge/domain"
)

var ErrNoCriteria = errors.New("badge_without_criteria")

type UnknownCriterionError struct {
	Key string
}

func (e *UnknownCriterionError) Error() string {
	return fmt.Sprintf("unknown badge criterion %q", e.Key)
}

// Evaluate returns the ids of badges in defs that stats satisfies and that
// are not already in earned, in catalog order.
func Evaluate(defs []domain.Definition, stats domain.Stats, earned []string) []string {
	owned := make(map[string]struct{}, len(earned))
	for _, id := range earned {
		owned[id] = struct{}{}
	}

	var out []string
	for _, def := range defs {
		if _, ok := owned[def.ID]; ok {
			continue
		}
		if !Meets(def.Criteria, stats) {
			continue
		}
		owned[def.ID] = struct{}{}
		out = append(out, def.ID)
	}
	return out
}

// Meets reports whether every declared criterion holds for stats.
func Meets(c domain.Criteria, stats domain.Stats) bool {
	if c.Empty() {
		return false
	}
	return meetsThreshold(c.Practices, stats.Practices) &&
		meetsThreshold(c.Streak, stats.Streak) &&
		meetsThreshold(c.TotalReps, stats.TotalReps) &&
		meetsThreshold(c.Affirmations, stats.Affirmations) &&
		meetsThreshold(c.Level, stats.Level) &&
		meetsThreshold(c.EarlyPractices, stats.EarlyPractices) &&
		meetsThreshold(c.LatePractices, stats.LatePractices) &&
		meetsThreshold(c.UniqueAffirmations, stats.UniqueAffirmations)
}

func meetsThreshold(threshold *int64, value int64) bool {
	if threshold == nil {
		return true
	}
	return value >= *threshold
}
