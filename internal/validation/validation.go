package validation

import (
	"fmt"
	"regexp"
	"strings"

	"deepfocus/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

const (
	MaxTaskNameLength  = 500
	MaxBoardNameLength = 200
	MaxGroupNameLength = 100
	MaxTeamNameLength  = 100
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 characters"}
	}
	return nil
}

// ValidateName checks if a person's name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateTitle checks a required free-text title such as a task or board name
func ValidateTitle(field, value string, maxLen int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if len(value) > maxLen {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, maxLen)}
	}
	return nil
}

// ValidateStatus parses a task status, accepting display labels too
func ValidateStatus(s string) (models.Status, error) {
	status, ok := models.ParseStatus(s)
	if !ok {
		return "", ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
	}
	return status, nil
}

// ValidatePriority checks a task priority
func ValidatePriority(p models.Priority) error {
	if !models.ValidPriority(p) {
		return ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", p)}
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD calendar date
func ValidateDate(field, value string) error {
	if _, err := models.ParseDate(value); err != nil {
		return ValidationError{Field: field, Message: "date must be formatted YYYY-MM-DD"}
	}
	return nil
}

// ValidateFlowRating checks a focus session flow rating
func ValidateFlowRating(rating int) error {
	if rating < 1 || rating > 5 {
		return ValidationError{Field: "flow_rating", Message: "flow rating must be between 1 and 5"}
	}
	return nil
}

// ValidateHours checks a number of hours within one day
func ValidateHours(field string, hours float64) error {
	if hours < 0 || hours > 24 {
		return ValidationError{Field: field, Message: "hours must be between 0 and 24"}
	}
	return nil
}

// ValidateNonNegative checks counters and durations
func ValidateNonNegative(field string, v int) error {
	if v < 0 {
		return ValidationError{Field: field, Message: field + " must not be negative"}
	}
	return nil
}

// ValidateColor checks a #rrggbb hex color
func ValidateColor(color string) error {
	if !colorRegex.MatchString(color) {
		return ValidationError{Field: "color", Message: "color must be a hex value like #579bfc"}
	}
	return nil
}

// ValidateRole checks a team role
func ValidateRole(role models.TeamRole) error {
	if !models.ValidRole(role) {
		return ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	return nil
}

// ValidateSessionType checks a focus session type
func ValidateSessionType(t models.SessionType) error {
	if !models.ValidSessionType(t) {
		return ValidationError{Field: "session_type", Message: fmt.Sprintf("unknown session type %q", t)}
	}
	return nil
}
