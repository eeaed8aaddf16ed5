package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// SubscriptionRepository handles billing tier records
type SubscriptionRepository struct {
	db database.Querier
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db database.Querier) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByUser returns the user's subscription, or nil for users on the implicit free plan
func (r *SubscriptionRepository) GetByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	s := &models.Subscription{}
	query := `SELECT id, user_id, plan_id, status, current_period_end, created_at, updated_at FROM subscriptions WHERE user_id = ?`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return s, nil
}

// Upsert sets the user's plan, creating the subscription row if needed
func (r *SubscriptionRepository) Upsert(ctx context.Context, userID int64, plan models.PlanID, status string, periodEnd *time.Time, at time.Time) error {
	insert := r.db.GetDialect().InsertIgnore(
		"INSERT INTO subscriptions (user_id, plan_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, insert, userID, plan, status, at, at); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	query := `UPDATE subscriptions SET plan_id = ?, status = ?, current_period_end = ?, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, plan, status, periodEnd, at, userID); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}
