package models

import "time"

// Task is a unit of work owned by a single user
type Task struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	DueDate       *string    `json:"due_date"`
	EstimatedTime *int       `json:"estimated_time"`
	ActualTime    *int       `json:"actual_time"`
	PointsValue   int        `json:"points_value"`
	CompletedAt   *time.Time `json:"completed_at"`
	UserID        int64      `json:"user_id"`
	GroupID       *int64     `json:"group_id"`
	TeamID        *int64     `json:"team_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Subtask belongs to exactly one task
type Subtask struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsDone    bool      `json:"is_done"`
	SortOrder int       `json:"sort_order"`
	TaskID    int64     `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status maps the done flag onto the shared vocabulary.
func (s *Subtask) Status() Status {
	if s.IsDone {
		return StatusDone
	}
	return StatusNotStarted
}

// TaskWithSubtasks is the detail view of a task
type TaskWithSubtasks struct {
	Task
	Subtasks []Subtask `json:"subtasks"`
	Progress float64   `json:"progress"`
}

// TaskFilter narrows task listings. Zero values mean no filter.
type TaskFilter struct {
	Status   Status
	DueDate  string
	DueFrom  string
	DueTo    string
	GroupID  int64
	Priority Priority
	Limit    int
	Offset   int
}
