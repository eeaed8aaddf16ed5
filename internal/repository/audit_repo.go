package repository

import (
	"context"
	"fmt"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// AuditRepository appends and reads the audit log
type AuditRepository struct {
	db database.Querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db database.Querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes an audit entry
func (r *AuditRepository) Append(ctx context.Context, l *models.AuditLog) error {
	createdAt, err := stamp(l.CreatedAt)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_logs (user_id, action, target_type, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, l.UserID, l.Action, l.TargetType, l.TargetID, nullString(l.Details), createdAt)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	l.ID = id
	return nil
}

// ListForUser returns the user's audit entries, newest first
func (r *AuditRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, target_type, target_id, COALESCE(details, ''), created_at
		FROM audit_logs
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.TargetType, &l.TargetID, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
