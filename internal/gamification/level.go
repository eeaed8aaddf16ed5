package gamification

// XPPerLevelUnit scales the quadratic level curve.
const XPPerLevelUnit = 500

// LevelForXP returns floor(sqrt(totalXP / 500)) + 1. Negative XP is treated as 0.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return isqrt(totalXP/XPPerLevelUnit) + 1
}

// XPRequiredForLevel returns level² × 500.
func XPRequiredForLevel(level int) int {
	return level * level * XPPerLevelUnit
}

// XPToNextLevel reports the threshold for the given level itself, not for
// level+1. Clients already depend on this value.
func XPToNextLevel(level int) int {
	return XPRequiredForLevel(level)
}

// LevelProgress is the fraction of the way from the start of the current
// level to the start of the next one, in [0, 1).
func LevelProgress(totalXP int) float64 {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelForXP(totalXP)
	floor := XPRequiredForLevel(level - 1)
	ceil := XPRequiredForLevel(level)
	return float64(totalXP-floor) / float64(ceil-floor)
}

// isqrt returns floor(sqrt(n)) for n >= 0 without float rounding surprises.
func isqrt(n int) int {
	if n < 2 {
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
