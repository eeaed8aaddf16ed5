package models

import "time"

// HistoryEvent is the kind of task lifecycle event recorded in TaskHistory
type HistoryEvent string

const (
	EventCreated       HistoryEvent = "created"
	EventUpdated       HistoryEvent = "updated"
	EventStatusChanged HistoryEvent = "status_changed"
	EventCompleted     HistoryEvent = "completed"
	EventPostponed     HistoryEvent = "postponed"
	EventRescheduled   HistoryEvent = "rescheduled"
	EventDeleted       HistoryEvent = "deleted"
)

// TaskHistory is an append-only task lifecycle entry
type TaskHistory struct {
	ID        int64        `json:"id"`
	TaskID    int64        `json:"task_id"`
	UserID    int64        `json:"user_id"`
	EventType HistoryEvent `json:"event_type"`
	OldStatus *Status      `json:"old_status"`
	NewStatus *Status      `json:"new_status"`
	Changes   string       `json:"changes,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// HistoryFilter narrows history listings
type HistoryFilter struct {
	TaskID    int64
	EventType HistoryEvent
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// StreakDay is one cell of the activity calendar
type StreakDay struct {
	Date           string `json:"date"`
	CompletionRate int    `json:"completion_rate"`
	TasksCompleted int    `json:"tasks_completed"`
	FocusMinutes   int    `json:"focus_minutes"`
	XPEarned       int    `json:"xp_earned"`
	HasActivity    bool   `json:"has_activity"`
	Qualified      bool   `json:"qualified"`
}

// StreakDetails summarises a user's streak state
type StreakDetails struct {
	CurrentStreak    int         `json:"current_streak"`
	LongestStreak    int         `json:"longest_streak"`
	BestStreak       int         `json:"best_streak"`
	Threshold        float64     `json:"threshold"`
	LastActivityDate *string     `json:"last_activity_date"`
	Calendar         []StreakDay `json:"activity_calendar"`
}
