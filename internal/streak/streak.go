// Package streak computes consecutive-day practice streaks.
package streak

import (
	"errors"
	"time"

	"github.com/smallbiznis/mindshift/internal/clock"
)

// ShieldCooldown is the minimum time between two streak shields.
const ShieldCooldown = 7 * 24 * time.Hour

var (
	ErrInvalidDates  = errors.New("invalid_dates")
	ErrInvalidStreak = errors.New("invalid_streak")
)

// Input is the state the next streak value is computed from.
type Input struct {
	// LastPracticeDate is nil when the user never practiced.
	LastPracticeDate *clock.Date
	Today            clock.Date
	CurrentStreak    int
	IsPro            bool
	LastShieldUsed   *time.Time
	Now              time.Time
}

type Result struct {
	Streak         int
	ShieldConsumed bool
}

// Validate rejects inputs the state machine is not defined for.
func (in Input) Validate() error {
	if in.Today.IsZero() {
		return ErrInvalidDates
	}
	if in.CurrentStreak < 0 {
		return ErrInvalidStreak
	}
	if in.LastPracticeDate != nil {
		if in.LastPracticeDate.IsZero() || in.Today.Before(*in.LastPracticeDate) {
			return ErrInvalidDates
		}
	}
	return nil
}

// Next returns the streak after a practice on in.Today.
func Next(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	if in.LastPracticeDate == nil {
		return Result{Streak: 1}, nil
	}

	switch in.LastPracticeDate.DaysUntil(in.Today) {
	case 0:
		if in.CurrentStreak == 0 {
			return Result{Streak: 1}, nil
		}
		return Result{Streak: in.CurrentStreak}, nil
	case 1:
		return Result{Streak: in.CurrentStreak + 1}, nil
	}

	if ShieldAvailable(in.IsPro, in.CurrentStreak, in.LastShieldUsed, in.Now) {
		return Result{Streak: in.CurrentStreak + 1, ShieldConsumed: true}, nil
	}
	return Result{Streak: 1}, nil
}

// ShieldAvailable reports whether a paid account can spend a shield at now.
func ShieldAvailable(isPro bool, currentStreak int, lastUsed *time.Time, now time.Time) bool {
	if !isPro || currentStreak <= 0 {
		return false
	}
	if lastUsed == nil {
		return true
	}
	return now.Sub(*lastUsed) >= ShieldCooldown
}

// Longest keeps the running maximum.
func Longest(longest, current int) int {
	if current > longest {
		return current
	}
	return longest
}
