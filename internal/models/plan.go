package models

import "time"

// Plan is a user's time budget for one calendar date
type Plan struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	SleepTime   float64   `json:"sleep_time"`
	CommuteTime float64   `json:"commute_time"`
	WorkTime    float64   `json:"work_time"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
