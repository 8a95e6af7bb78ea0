package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	instant := time.Date(2026, 3, 1, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-01", DateOf(instant, time.UTC).String())
	assert.Equal(t, "2026-03-02", DateOf(instant, loc).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.AddDays(1).String())
	assert.Equal(t, "2024-02-28", d.AddDays(-1).String())

	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDaysUntil(t *testing.T) {
	a, _ := ParseDate("2026-10-01")
	b, _ := ParseDate("2026-10-11")
	assert.Equal(t, 10, a.DaysUntil(b))
	assert.Equal(t, -10, b.DaysUntil(a))
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(26 * time.Hour)
	assert.Equal(t, start.Add(26*time.Hour), c.Now())
}
