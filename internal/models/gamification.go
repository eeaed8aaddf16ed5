package models

import "time"

// UserStats holds a user's cumulative progress. Exactly one row per user.
type UserStats struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	TotalXP             int        `json:"total_xp"`
	Level               int        `json:"level"`
	TotalPoints         int        `json:"total_points"`
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	LastActivityAt      *time.Time `json:"last_activity_at"`
	LastStreakDate      *string    `json:"last_streak_date"`
	TotalTasksCompleted int        `json:"total_tasks_completed"`
	TotalFocusTime      int        `json:"total_focus_time"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// SessionType distinguishes focus blocks from breaks
type SessionType string

const (
	SessionFocus      SessionType = "focus"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

// ValidSessionType reports whether t is a known session type.
func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionFocus, SessionShortBreak, SessionLongBreak:
		return true
	}
	return false
}

// FocusSession is a timed work block, optionally linked to a task
type FocusSession struct {
	ID                     int64       `json:"id"`
	UserID                 int64       `json:"user_id"`
	TaskID                 *int64      `json:"task_id"`
	StartTime              time.Time   `json:"start_time"`
	EndTime                *time.Time  `json:"end_time"`
	DurationMinutes        int         `json:"duration_minutes"`
	SessionType            SessionType `json:"session_type"`
	PlannedDuration        int         `json:"planned_duration"`
	WasCompleted           bool        `json:"was_completed"`
	TaskCompletedInSession bool        `json:"task_completed_in_session"`
	XPEarned               int         `json:"xp_earned"`
	Interruptions          int         `json:"interruptions"`
	FlowRating             *int        `json:"flow_rating"`
	CreatedAt              time.Time   `json:"created_at"`
}

// CriteriaType names the statistic an achievement is measured against
type CriteriaType string

const (
	CriteriaTasksCompleted CriteriaType = "tasks_completed"
	CriteriaFocusSessions  CriteriaType = "focus_sessions"
	CriteriaFocusTime      CriteriaType = "focus_time"
	CriteriaStreakDays     CriteriaType = "streak_days"
	CriteriaLevel          CriteriaType = "level"
)

// Achievement is a catalog entry
type Achievement struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Icon          string       `json:"icon"`
	CriteriaType  CriteriaType `json:"criteria_type"`
	CriteriaValue int          `json:"criteria_value"`
	XPReward      int          `json:"xp_reward"`
	Tier          string       `json:"tier"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// UserAchievement records a user's progress toward, and unlock of, an achievement
type UserAchievement struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	AchievementID int64      `json:"achievement_id"`
	Progress      int        `json:"progress"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AchievementStatus is the per-user view of a catalog entry
type AchievementStatus struct {
	Achievement
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at"`
}

// DailyStats is the per-user per-date aggregate row
type DailyStats struct {
	ID                     int64     `json:"id"`
	UserID                 int64     `json:"user_id"`
	Date                   string    `json:"date"`
	TasksCreated           int       `json:"tasks_created"`
	TasksCompleted         int       `json:"tasks_completed"`
	TasksPostponed         int       `json:"tasks_postponed"`
	FocusSessionsCount     int       `json:"focus_sessions_count"`
	TotalFocusMinutes      int       `json:"total_focus_minutes"`
	CompletedFocusSessions int       `json:"completed_focus_sessions"`
	XPEarned               int       `json:"xp_earned"`
	AchievementsUnlocked   int       `json:"achievements_unlocked"`
	CompletionRate         int       `json:"completion_rate"`
	FlowRatingSum          int       `json:"-"`
	FlowRatingCount        int       `json:"-"`
	DailyGoalMet           bool      `json:"daily_goal_met"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// AverageFlowRating returns the mean flow rating of the day's rated sessions.
func (d *DailyStats) AverageFlowRating() *float64 {
	if d.FlowRatingCount == 0 {
		return nil
	}
	avg := float64(d.FlowRatingSum) / float64(d.FlowRatingCount)
	return &avg
}

// DailyDelta is an additive change to a DailyStats row. Zero fields leave
// the counter untouched.
type DailyDelta struct {
	TasksCreated           int
	TasksCompleted         int
	TasksPostponed         int
	FocusSessionsCount     int
	TotalFocusMinutes      int
	CompletedFocusSessions int
	XPEarned               int
	AchievementsUnlocked   int
	FlowRatingSum          int
	FlowRatingCount        int
}
