// Package level maps accumulated XP onto levels and tiers.
package level

// MaxTabulated is the last level covered by the fixed threshold table.
const MaxTabulated = 50

// extrapolationBase is the constant part of the per-level increment past level 50.
const extrapolationBase = 220

// thresholds[i] is the cumulative XP required to reach level i+1.
var thresholds = [MaxTabulated]int64{
	0, 25, 55, 90, 130, 175, 225, 280, 340, 405,
	475, 550, 630, 715, 805, 900, 1000, 1105, 1215, 1330,
	1450, 1575, 1705, 1840, 1980, 2125, 2275, 2430, 2590, 2755,
	2925, 3100, 3280, 3465, 3655, 3850, 4050, 4255, 4465, 4680,
	4900, 5125, 5355, 5590, 5830, 6075, 6325, 6580, 6840, 7105,
}

// Progress describes where a total XP value sits inside its level.
type Progress struct {
	Level         int     `json:"level"`
	TotalXP       int64   `json:"total_xp"`
	EarnedInLevel int64   `json:"earned_in_level"`
	NeededInLevel int64   `json:"needed_in_level"`
	XPToNext      int64   `json:"xp_to_next"`
	Percent       float64 `json:"percent"`
}

// XPRequiredForLevel returns the cumulative XP needed to reach level.
func XPRequiredForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= MaxTabulated {
		return thresholds[level-1]
	}

	xp := thresholds[MaxTabulated-1]
	for l := MaxTabulated + 1; l <= level; l++ {
		xp += increment(l)
	}
	return xp
}

// LevelForXP returns the highest level whose threshold is <= totalXP.
func LevelForXP(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}

	if totalXP < thresholds[MaxTabulated-1] {
		lo, hi := 0, MaxTabulated-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if thresholds[mid] <= totalXP {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo + 1
	}

	level := MaxTabulated
	next := thresholds[MaxTabulated-1] + increment(level+1)
	for next <= totalXP {
		level++
		next += increment(level + 1)
	}
	return level
}

// ProgressWithinLevel returns the XP earned since reaching level and the
// span of XP between level and level+1.
func ProgressWithinLevel(totalXP int64, level int) (earned, needed int64) {
	if level < 1 {
		level = 1
	}
	if totalXP < 0 {
		totalXP = 0
	}
	floor := XPRequiredForLevel(level)
	ceil := XPRequiredForLevel(level + 1)
	earned = totalXP - floor
	if earned < 0 {
		earned = 0
	}
	return earned, ceil - floor
}

// ProgressFor computes the level and in-level progress for totalXP.
func ProgressFor(totalXP int64) Progress {
	if totalXP < 0 {
		totalXP = 0
	}
	lvl := LevelForXP(totalXP)
	earned, needed := ProgressWithinLevel(totalXP, lvl)

	percent := 0.0
	if needed > 0 {
		percent = float64(earned) / float64(needed) * 100
	}
	return Progress{
		Level:         lvl,
		TotalXP:       totalXP,
		EarnedInLevel: earned,
		NeededInLevel: needed,
		XPToNext:      needed - earned,
		Percent:       percent,
	}
}

func increment(level int) int64 {
	return int64(extrapolationBase + 5*level)
}
