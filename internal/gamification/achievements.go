package gamification

import "deepfocus/internal/models"

// Totals are the cumulative figures achievements are measured against.
type Totals struct {
	TasksCompleted int
	FocusSessions  int
	FocusMinutes   int
	StreakDays     int
	Level          int
}

// TotalsFromStats fills Totals from UserStats plus the completed session count.
func TotalsFromStats(stats *models.UserStats, completedSessions int) Totals {
	return Totals{
		TasksCompleted: stats.TotalTasksCompleted,
		FocusSessions:  completedSessions,
		FocusMinutes:   stats.TotalFocusTime,
		StreakDays:     stats.LongestStreak,
		Level:          stats.Level,
	}
}

// AchievementProgress returns the value of the statistic the achievement
// measures, capped at its criteria value. Unknown criteria report 0.
func AchievementProgress(a models.Achievement, t Totals) int {
	var v int
	switch a.CriteriaType {
	case models.CriteriaTasksCompleted:
		v = t.TasksCompleted
	case models.CriteriaFocusSessions:
		v = t.FocusSessions
	case models.CriteriaFocusTime:
		v = t.FocusMinutes
	case models.CriteriaStreakDays:
		v = t.StreakDays
	case models.CriteriaLevel:
		v = t.Level
	}
	if v > a.CriteriaValue {
		v = a.CriteriaValue
	}
	return v
}

// AchievementUnlocked reports whether the totals meet the achievement's criteria.
func AchievementUnlocked(a models.Achievement, t Totals) bool {
	return a.CriteriaValue > 0 && AchievementProgress(a, t) >= a.CriteriaValue
}
