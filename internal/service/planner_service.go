package service

import (
	"context"
	"fmt"
	"log"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
)

// PlannerService moves unfinished work forward
type PlannerService struct {
	db      *database.DB
	tasks   *repository.TaskRepository
	history *repository.HistoryRepository
	stats   *StatsService
	clock   clock.Clock
}

// NewPlannerService creates a new planner service
func NewPlannerService(db *database.DB, stats *StatsService, c clock.Clock) *PlannerService {
	return &PlannerService{
		db:      db,
		tasks:   repository.NewTaskRepository(db),
		history: repository.NewHistoryRepository(db),
		stats:   stats,
		clock:   c,
	}
}

// RescheduleOverdue moves every unfinished task of userID that was due
// before today to today, and returns the moved tasks. The batch commits
// as a whole or not at all.
func (s *PlannerService) RescheduleOverdue(ctx context.Context, userID int64) ([]models.Task, error) {
	now := s.clock.Now()
	today := models.FormatDate(now)

	var moved []models.Task
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		tasks := s.tasks.WithTx(tx)
		history := s.history.WithTx(tx)

		overdue, err := tasks.ListOverdue(ctx, userID, today)
		if err != nil {
			return err
		}
		for i := range overdue {
			task := &overdue[i]
			from := *task.DueDate
			if err := tasks.SetDueDate(ctx, task.ID, today, now); err != nil {
				return err
			}
			task.DueDate = &today
			task.UpdatedAt = now

			status := task.Status
			if err := history.Append(ctx, &models.TaskHistory{
				TaskID:    task.ID,
				UserID:    userID,
				EventType: models.EventRescheduled,
				OldStatus: &status,
				NewStatus: &status,
				Changes:   fmt.Sprintf(`{"due_date":{"from":%q,"to":%q}}`, from, today),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		if len(overdue) > 0 {
			if err := s.stats.RefreshDay(ctx, tx, userID, today); err != nil {
				return err
			}
		}
		moved = overdue
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule overdue tasks: %w", err)
	}

	if len(moved) > 0 {
		log.Printf("Rescheduled %d overdue tasks to %s for user %d", len(moved), today, userID)
	}
	return moved, nil
}

// CountOverdue returns how many tasks RescheduleOverdue would move
func (s *PlannerService) CountOverdue(ctx context.Context, userID int64) (int, error) {
	return s.tasks.CountOverdue(ctx, userID, models.FormatDate(s.clock.Now()))
}
