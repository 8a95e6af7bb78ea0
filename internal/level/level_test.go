package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXPIsMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := int64(0); xp <= 20000; xp++ {
		got := LevelForXP(xp)
		if got < prev {
			t.Fatalf("level decreased at xp %d: %d -> %d", xp, prev, got)
		}
		prev = got
	}
}

func TestRoundTripAtThresholds(t *testing.T) {
	for l := 1; l <= 80; l++ {
		xp := XPRequiredForLevel(l)
		require.Equal(t, l, LevelForXP(xp), "level %d at xp %d", l, xp)
		if l > 1 {
			require.Equal(t, l-1, LevelForXP(xp-1), "level %d at xp %d", l-1, xp-1)
		}
	}
}

func TestXPRequiredForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{level: 0, want: 0},
		{level: 1, want: 0},
		{level: 2, want: 25},
		{level: 10, want: 405},
		{level: 50, want: 7105},
		// 7105 + 220 + 5*51
		{level: 51, want: 7580},
		// 7580 + 220 + 5*52
		{level: 52, want: 8060},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, XPRequiredForLevel(tt.level), "level %d", tt.level)
	}
}

func TestLevelForXPBeyondTable(t *testing.T) {
	assert.Equal(t, 50, LevelForXP(7105))
	assert.Equal(t, 50, LevelForXP(7579))
	assert.Equal(t, 51, LevelForXP(7580))
	assert.Equal(t, 52, LevelForXP(8060))
	assert.Equal(t, 1, LevelForXP(-10))
}

func TestProgressWithinLevel(t *testing.T) {
	earned, needed := ProgressWithinLevel(65, 3)
	assert.Equal(t, int64(10), earned)
	assert.Equal(t, int64(35), needed)

	p := ProgressFor(65)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, int64(25), p.XPToNext)
	assert.InDelta(t, 28.57, p.Percent, 0.01)
}

func TestTierForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  Tier
	}{
		{1, TierNovice},
		{10, TierNovice},
		{11, TierApprentice},
		{20, TierApprentice},
		{21, TierPractitioner},
		{31, TierExpert},
		{40, TierExpert},
		{41, TierMaster},
		{120, TierMaster},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForLevel(tt.level), "level %d", tt.level)
	}
	assert.Equal(t, "Master", TierMaster.Info().Name)
}

func TestMilestoneFor(t *testing.T) {
	m, ok := MilestoneFor(20)
	require.True(t, ok)
	assert.Equal(t, "Apprentice Complete!", m.Title)

	_, ok = MilestoneFor(25)
	assert.False(t, ok)
}
