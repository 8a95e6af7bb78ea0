package celebration

import (
	"testing"

	"github.com/smallbiznis/mindshift/internal/level"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		oldLevel int
		newLevel int
		want     Type
	}{
		{name: "no level change", oldLevel: 3, newLevel: 3, want: Standard},
		{name: "level up", oldLevel: 3, newLevel: 4, want: LevelUp},
		{name: "milestone", oldLevel: 4, newLevel: 5, want: Milestone},
		{name: "jump onto milestone", oldLevel: 2, newLevel: 5, want: Milestone},
		{name: "tier boundary that is also a milestone", oldLevel: 10, newLevel: 11, want: TierChange},
		{name: "jump across tier onto a multiple of five", oldLevel: 19, newLevel: 25, want: TierChange},
		{name: "master tier milestone", oldLevel: 44, newLevel: 45, want: Milestone},
		{name: "staying on a multiple of five", oldLevel: 5, newLevel: 5, want: Standard},
		{name: "level decreased", oldLevel: 5, newLevel: 4, want: None},
		{name: "zero level", oldLevel: 0, newLevel: 1, want: None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForLevels(tt.oldLevel, tt.newLevel))
		})
	}
}

func TestClassifyTierChangeTakesPrecedence(t *testing.T) {
	got := Classify(19, 20, level.TierApprentice, level.TierPractitioner)
	assert.Equal(t, TierChange, got)
}
