// Package xp computes the experience points awarded for one practice event.
package xp

import "math"

const (
	PerRep              = 1.5
	FirstTodayBonus     = 10
	FullSessionBonus    = 5
	FullSessionReps     = 10
	ExtendedBonus       = 15
	ExtendedReps        = 20
	NewAffirmationBonus = 25
	MorningBonus        = 10

	// MorningCutoffHour is exclusive: practices before 10:00 earn the bonus.
	MorningCutoffHour = 10

	MaxStreakMultiplier = 2.0
)

// Input describes a single practice event.
type Input struct {
	Repetitions    int
	Streak         int
	FirstToday     bool
	NewAffirmation bool
	Morning        bool
}

// Breakdown itemises an award.
type Breakdown struct {
	Base           float64 `json:"base"`
	FirstToday     int     `json:"first_today"`
	FullSession    int     `json:"full_session"`
	Extended       int     `json:"extended_session"`
	NewAffirmation int     `json:"new_affirmation"`
	Morning        int     `json:"morning"`
	Subtotal       float64 `json:"subtotal"`
	Multiplier     float64 `json:"multiplier"`
	Total          int64   `json:"total"`
}

// StreakMultiplier is a step function of the streak length.
func StreakMultiplier(streak int) float64 {
	switch {
	case streak >= 30:
		return MaxStreakMultiplier
	case streak >= 14:
		return 1.75
	case streak >= 7:
		return 1.5
	case streak >= 2:
		return 1.2
	default:
		return 1.0
	}
}

// IsMorning reports whether hour earns the morning bonus.
func IsMorning(hour int) bool {
	return hour >= 0 && hour < MorningCutoffHour
}

// Award returns the rounded, non-negative XP for in.
func Award(in Input) int64 {
	return Compute(in).Total
}

// Compute sums every bonus before applying the streak multiplier once.
func Compute(in Input) Breakdown {
	reps := in.Repetitions
	if reps < 0 {
		reps = 0
	}

	b := Breakdown{Base: float64(reps) * PerRep}
	if in.FirstToday {
		b.FirstToday = FirstTodayBonus
	}
	if reps >= FullSessionReps {
		b.FullSession = FullSessionBonus
	}
	if reps >= ExtendedReps {
		b.Extended = ExtendedBonus
	}
	if in.NewAffirmation {
		b.NewAffirmation = NewAffirmationBonus
	}
	if in.Morning {
		b.Morning = MorningBonus
	}

	b.Subtotal = b.Base + float64(b.FirstToday+b.FullSession+b.Extended+b.NewAffirmation+b.Morning)
	b.Multiplier = StreakMultiplier(in.Streak)

	total := math.Round(b.Subtotal * b.Multiplier)
	if total < 0 {
		total = 0
	}
	b.Total = int64(total)
	return b
}
