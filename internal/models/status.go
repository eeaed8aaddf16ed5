package models

import "strings"

// Status is the lifecycle state shared by tasks, subtasks and parts.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusPostponed  Status = "postponed"
)

// ParseStatus accepts the canonical values as well as the display labels
// ("Not Started", "Doing", "In Progress", "Done", "Postponed").
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_started", "not started", "todo":
		return StatusNotStarted, true
	case "in_progress", "in progress", "doing":
		return StatusInProgress, true
	case "done", "completed":
		return StatusDone, true
	case "postponed":
		return StatusPostponed, true
	}
	return "", false
}

// IsTerminal reports whether the status counts as complete.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// Label returns the human readable form used by the dashboard.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusInProgress:
		return "Doing"
	case StatusDone:
		return "Done"
	case StatusPostponed:
		return "Postponed"
	}
	return string(s)
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
