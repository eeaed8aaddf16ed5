package repository

import (
	"context"
	"fmt"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// HistoryRepository appends and reads the task lifecycle log
type HistoryRepository struct {
	db database.Querier
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db database.Querier) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *HistoryRepository) WithTx(tx database.Querier) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Append writes a history entry
func (r *HistoryRepository) Append(ctx context.Context, h *models.TaskHistory) error {
	createdAt, err := stamp(h.CreatedAt)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO task_history (task_id, user_id, event_type, old_status, new_status, changes, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		h.TaskID, h.UserID, h.EventType, h.OldStatus, h.NewStatus, nullString(h.Changes), nullString(h.Notes), createdAt)
	if err != nil {
		return fmt.Errorf("failed to append task history: %w", err)
	}
	h.ID = id
	return nil
}

// List returns the user's history entries matching filter, newest first
func (r *HistoryRepository) List(ctx context.Context, userID int64, filter models.HistoryFilter) ([]models.TaskHistory, error) {
	query := `
		SELECT id, task_id, user_id, event_type, old_status, new_status, COALESCE(changes, ''), COALESCE(notes, ''), created_at
		FROM task_history
		WHERE user_id = ?`
	args := []interface{}{userID}
	if filter.TaskID != 0 {
		query += " AND task_id = ?"
		args = append(args, filter.TaskID)
	}
	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filter.EventType)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += " AND created_at < ?"
		args = append(args, *filter.Until)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	defer rows.Close()

	history := []models.TaskHistory{}
	for rows.Next() {
		var h models.TaskHistory
		if err := rows.Scan(&h.ID, &h.TaskID, &h.UserID, &h.EventType, &h.OldStatus, &h.NewStatus,
			&h.Changes, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
