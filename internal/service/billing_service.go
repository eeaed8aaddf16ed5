package service

import (
	"context"
	"fmt"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
)

// BillingService resolves a user's plan and the quotas it grants
type BillingService struct {
	subs           *repository.SubscriptionRepository
	audit          *AuditService
	clock          clock.Clock
	freeBoardLimit int
}

// NewBillingService creates a new billing service
func NewBillingService(subs *repository.SubscriptionRepository, audit *AuditService, c clock.Clock, freeBoardLimit int) *BillingService {
	return &BillingService{subs: subs, audit: audit, clock: c, freeBoardLimit: freeBoardLimit}
}

// Subscription returns the user's subscription. Users without one are on
// the free plan.
func (s *BillingService) Subscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &models.Subscription{UserID: userID, PlanID: models.PlanFree, Status: "active"}, nil
	}
	if sub.CurrentPeriodEnd != nil && s.clock.Now().After(*sub.CurrentPeriodEnd) {
		sub.PlanID = models.PlanFree
		sub.Status = "expired"
	}
	return sub, nil
}

// Limits returns the quotas granted by plan
func (s *BillingService) Limits(plan models.PlanID) models.PlanLimits {
	switch plan {
	case models.PlanPro:
		return models.PlanLimits{MaxBoards: -1}
	case models.PlanTeam:
		return models.PlanLimits{MaxBoards: -1, Teams: true}
	default:
		return models.PlanLimits{MaxBoards: s.freeBoardLimit}
	}
}

// CheckBoardQuota fails with ErrQuotaExceeded when a user who already owns
// owned boards may not create another
func (s *BillingService) CheckBoardQuota(ctx context.Context, userID int64, owned int) error {
	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return err
	}
	limits := s.Limits(sub.PlanID)
	if !limits.Unlimited() && owned >= limits.MaxBoards {
		return fmt.Errorf("%w: the %s plan allows %d boards", ErrQuotaExceeded, sub.PlanID, limits.MaxBoards)
	}
	return nil
}

// SetPlan moves the user to plan. periodEnd may be nil for open-ended plans.
func (s *BillingService) SetPlan(ctx context.Context, userID int64, plan models.PlanID, periodEnd *time.Time) (*models.Subscription, error) {
	switch plan {
	case models.PlanFree, models.PlanPro, models.PlanTeam:
	default:
		return nil, fmt.Errorf("unknown plan %q", plan)
	}
	if err := s.subs.Upsert(ctx, userID, plan, "active", periodEnd, s.clock.Now()); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "billing.set_plan", "subscription", nil, map[string]interface{}{"plan": plan})
	return s.subs.GetByUser(ctx, userID)
}
