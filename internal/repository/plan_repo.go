package repository

import (
	"context"
	"database/sql"
	"fmt"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// PlanRepository handles database operations for daily plans
type PlanRepository struct {
	db database.Querier
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db database.Querier) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, plan_date, sleep_time, commute_time, work_time, user_id, created_at, updated_at`

func scanPlan(row interface{ Scan(...interface{}) error }) (*models.Plan, error) {
	p := &models.Plan{}
	err := row.Scan(&p.ID, &p.Date, &p.SleepTime, &p.CommuteTime, &p.WorkTime, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	return p, nil
}

// Create inserts a plan. A second plan for the same user and date violates
// the unique constraint; check with database.IsUniqueViolation.
func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	createdAt, err := stamp(p.CreatedAt)
	if err != nil {
		return err
	}
	p.UpdatedAt = createdAt

	query := `
		INSERT INTO plans (plan_date, sleep_time, commute_time, work_time, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, p.Date, p.SleepTime, p.CommuteTime, p.WorkTime, p.UserID, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	p.ID = id
	return nil
}

// GetByDate retrieves the user's plan for date
func (r *PlanRepository) GetByDate(ctx context.Context, userID int64, date string) (*models.Plan, error) {
	query := "SELECT " + planColumns + " FROM plans WHERE user_id = ? AND plan_date = ?"
	return scanPlan(r.db.QueryRowContext(ctx, query, userID, date))
}

// List returns the user's plans between from and to (inclusive, either may
// be empty), newest first
func (r *PlanRepository) List(ctx context.Context, userID int64, from, to string, limit, offset int) ([]models.Plan, error) {
	query := "SELECT " + planColumns + " FROM plans WHERE user_id = ?"
	args := []interface{}{userID}
	if from != "" {
		query += " AND plan_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND plan_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY plan_date DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// Update writes the time fields of a plan
func (r *PlanRepository) Update(ctx context.Context, p *models.Plan) error {
	query := `UPDATE plans SET sleep_time = ?, commute_time = ?, work_time = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, p.SleepTime, p.CommuteTime, p.WorkTime, p.UpdatedAt, p.ID, p.UserID); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

// Delete removes the user's plan for date
func (r *PlanRepository) Delete(ctx context.Context, userID int64, date string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM plans WHERE user_id = ? AND plan_date = ?", userID, date)
	if err != nil {
		return false, fmt.Errorf("failed to delete plan: %w", err)
	}
	return rowsAffected(res)
}
