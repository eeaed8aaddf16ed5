package repository

import (
	"context"
	"database/sql"
	"fmt"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// FocusSessionRepository handles database operations for focus sessions
type FocusSessionRepository struct {
	db database.Querier
}

// NewFocusSessionRepository creates a new focus session repository
func NewFocusSessionRepository(db database.Querier) *FocusSessionRepository {
	return &FocusSessionRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *FocusSessionRepository) WithTx(tx database.Querier) *FocusSessionRepository {
	return &FocusSessionRepository{db: tx}
}

const sessionColumns = `id, user_id, task_id, start_time, end_time, duration_minutes, session_type, planned_duration,
	was_completed, task_completed_in_session, xp_earned, interruptions, flow_rating, created_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*models.FocusSession, error) {
	s := &models.FocusSession{}
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TaskID,
		&s.StartTime,
		&s.EndTime,
		&s.DurationMinutes,
		&s.SessionType,
		&s.PlannedDuration,
		&s.WasCompleted,
		&s.TaskCompletedInSession,
		&s.XPEarned,
		&s.Interruptions,
		&s.FlowRating,
		&s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan focus session: %w", err)
	}
	return s, nil
}

// Create inserts a session and fills in its ID
func (r *FocusSessionRepository) Create(ctx context.Context, s *models.FocusSession) error {
	createdAt, err := stamp(s.CreatedAt)
	if err != nil {
		return err
	}
	if s.StartTime.IsZero() {
		s.StartTime = createdAt
	}

	query := `
		INSERT INTO focus_sessions (user_id, task_id, start_time, session_type, planned_duration, flow_rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		s.UserID, s.TaskID, s.StartTime, s.SessionType, s.PlannedDuration, s.FlowRating, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create focus session: %w", err)
	}
	s.ID = id
	return nil
}

// GetByID retrieves a session owned by userID
func (r *FocusSessionRepository) GetByID(ctx context.Context, id, userID int64) (*models.FocusSession, error) {
	query := "SELECT " + sessionColumns + " FROM focus_sessions WHERE id = ? AND user_id = ?"
	return scanSession(r.db.QueryRowContext(ctx, query, id, userID))
}

// Update writes the mutable fields of a session
func (r *FocusSessionRepository) Update(ctx context.Context, s *models.FocusSession) error {
	query := `
		UPDATE focus_sessions
		SET end_time = ?, duration_minutes = ?, was_completed = ?, task_completed_in_session = ?,
			xp_earned = ?, interruptions = ?, flow_rating = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		s.EndTime,
		s.DurationMinutes,
		s.WasCompleted,
		s.TaskCompletedInSession,
		s.XPEarned,
		s.Interruptions,
		s.FlowRating,
		s.ID,
		s.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update focus session: %w", err)
	}
	return nil
}

// List returns the user's most recent sessions
func (r *FocusSessionRepository) List(ctx context.Context, userID int64, limit int) ([]models.FocusSession, error) {
	query := "SELECT " + sessionColumns + " FROM focus_sessions WHERE user_id = ? ORDER BY start_time DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list focus sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.FocusSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// CountCompleted counts the user's completed sessions
func (r *FocusSessionRepository) CountCompleted(ctx context.Context, userID int64) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM focus_sessions WHERE user_id = ? AND was_completed = ?"
	if err := r.db.QueryRowContext(ctx, query, userID, true).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count focus sessions: %w", err)
	}
	return count, nil
}
