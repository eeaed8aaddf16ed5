package models

import "time"

// PlanID identifies a subscription tier
type PlanID string

const (
	PlanFree PlanID = "free"
	PlanPro  PlanID = "pro"
	PlanTeam PlanID = "team"
)

// Subscription is a user's billing tier
type Subscription struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	PlanID           PlanID     `json:"plan_id"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PlanLimits are the quotas granted by a plan. A negative value is unlimited.
type PlanLimits struct {
	MaxBoards int  `json:"max_boards"`
	Teams     bool `json:"teams"`
}

// Unlimited reports whether the board quota is unbounded.
func (l PlanLimits) Unlimited() bool {
	return l.MaxBoards < 0
}

// AuditLog is an append-only record of a sensitive action
type AuditLog struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   *int64    `json:"target_id"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
