package service

import (
	"context"
	"encoding/json"
	"log"

	"deepfocus/internal/clock"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
)

// AuditService records sensitive actions. Recording never fails the caller.
type AuditService struct {
	repo  *repository.AuditRepository
	clock clock.Clock
}

// NewAuditService creates a new audit service
func NewAuditService(repo *repository.AuditRepository, c clock.Clock) *AuditService {
	return &AuditService{repo: repo, clock: c}
}

// Record appends an audit entry; failures are logged and dropped
func (s *AuditService) Record(ctx context.Context, userID int64, action, targetType string, targetID *int64, details map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedAt:  s.clock.Now(),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		log.Printf("Error writing audit log %s for user %d: %v", action, userID, err)
	}
}

// List returns the user's most recent audit entries
func (s *AuditService) List(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListForUser(ctx, userID, limit)
}
