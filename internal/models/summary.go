package models

// StatsView is UserStats plus the derived level figures
type StatsView struct {
	UserStats
	XPToNextLevel int     `json:"xp_to_next_level"`
	LevelProgress float64 `json:"level_progress"`
}

// DashboardSummary is the gamification overview for the home screen
type DashboardSummary struct {
	Stats              StatsView           `json:"stats"`
	Today              DailyStats          `json:"today"`
	RecentAchievements []AchievementStatus `json:"recent_achievements"`
	TasksDueToday      int                 `json:"tasks_due_today"`
	TasksDoneToday     int                 `json:"tasks_done_today"`
	OverdueTasks       int                 `json:"overdue_tasks"`
}

// TimeBudget is the result of the daily plan arithmetic
type TimeBudget struct {
	AvailableMinutes int `json:"available_minutes"`
	PlannedMinutes   int `json:"planned_minutes"`
	WastedMinutes    int `json:"wasted_minutes"`
}

// PlanWithBudget is the detail view of a plan
type PlanWithBudget struct {
	Plan
	Budget TimeBudget `json:"budget"`
}
