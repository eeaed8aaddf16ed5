package service

import (
	"context"
	"fmt"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/gamification"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/validation"
)

// PlanService handles daily time budgets
type PlanService struct {
	plans *repository.PlanRepository
	tasks *repository.TaskRepository
	clock clock.Clock
}

// NewPlanService creates a new plan service
func NewPlanService(plans *repository.PlanRepository, tasks *repository.TaskRepository, c clock.Clock) *PlanService {
	return &PlanService{plans: plans, tasks: tasks, clock: c}
}

// PlanInput is the create payload. An empty date means today.
type PlanInput struct {
	Date        string  `json:"date"`
	SleepTime   float64 `json:"sleep_time"`
	CommuteTime float64 `json:"commute_time"`
	WorkTime    float64 `json:"work_time"`
}

// PlanUpdate is a partial update of a plan
type PlanUpdate struct {
	SleepTime   *float64 `json:"sleep_time"`
	CommuteTime *float64 `json:"commute_time"`
	WorkTime    *float64 `json:"work_time"`
}

func validatePlanHours(p *models.Plan) error {
	if err := validation.ValidateHours("sleep_time", p.SleepTime); err != nil {
		return err
	}
	if err := validation.ValidateHours("commute_time", p.CommuteTime); err != nil {
		return err
	}
	return validation.ValidateHours("work_time", p.WorkTime)
}

// Create adds the plan for a date. Each date has at most one plan.
func (s *PlanService) Create(ctx context.Context, userID int64, in PlanInput) (*models.PlanWithBudget, error) {
	if in.Date == "" {
		in.Date = models.FormatDate(s.clock.Now())
	}
	if err := validation.ValidateDate("date", in.Date); err != nil {
		return nil, err
	}
	plan := &models.Plan{
		Date:        in.Date,
		SleepTime:   in.SleepTime,
		CommuteTime: in.CommuteTime,
		WorkTime:    in.WorkTime,
		UserID:      userID,
		CreatedAt:   s.clock.Now(),
	}
	if err := validatePlanHours(plan); err != nil {
		return nil, err
	}

	existing, err := s.plans.GetByDate(ctx, userID, in.Date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a plan for %s", ErrConflict, in.Date)
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a plan for %s", ErrConflict, in.Date)
		}
		return nil, err
	}
	return s.withBudget(ctx, plan)
}

func (s *PlanService) withBudget(ctx context.Context, plan *models.Plan) (*models.PlanWithBudget, error) {
	minutes, err := s.tasks.SumEstimatedDueOn(ctx, plan.UserID, plan.Date)
	if err != nil {
		return nil, err
	}
	return &models.PlanWithBudget{Plan: *plan, Budget: gamification.Budget(*plan, minutes)}, nil
}

func (s *PlanService) get(ctx context.Context, userID int64, date string) (*models.Plan, error) {
	if err := validation.ValidateDate("date", date); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrNotFound
	}
	return plan, nil
}

// Get returns the plan for date with its time budget
func (s *PlanService) Get(ctx context.Context, userID int64, date string) (*models.PlanWithBudget, error) {
	plan, err := s.get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return s.withBudget(ctx, plan)
}

// List returns the user's plans, newest first
func (s *PlanService) List(ctx context.Context, userID int64, from, to string, limit, offset int) ([]models.Plan, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.plans.List(ctx, userID, from, to, limit, offset)
}

// Update applies a partial update to the plan for date
func (s *PlanService) Update(ctx context.Context, userID int64, date string, in PlanUpdate) (*models.PlanWithBudget, error) {
	plan, err := s.get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if in.SleepTime != nil {
		plan.SleepTime = *in.SleepTime
	}
	if in.CommuteTime != nil {
		plan.CommuteTime = *in.CommuteTime
	}
	if in.WorkTime != nil {
		plan.WorkTime = *in.WorkTime
	}
	if err := validatePlanHours(plan); err != nil {
		return nil, err
	}
	plan.UpdatedAt = s.clock.Now()
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	return s.withBudget(ctx, plan)
}

// Delete removes the plan for date
func (s *PlanService) Delete(ctx context.Context, userID int64, date string) error {
	if err := validation.ValidateDate("date", date); err != nil {
		return err
	}
	deleted, err := s.plans.Delete(ctx, userID, date)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
