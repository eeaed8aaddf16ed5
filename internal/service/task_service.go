package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/gamification"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/validation"
)

// TaskService handles tasks and subtasks. Every lifecycle change is written
// to the task history and fed to the stats service in the same transaction.
type TaskService struct {
	db      *database.DB
	tasks   *repository.TaskRepository
	history *repository.HistoryRepository
	stats   *StatsService
	boards  *BoardService
	audit   *AuditService
	clock   clock.Clock
}

// NewTaskService creates a new task service
func NewTaskService(db *database.DB, stats *StatsService, boards *BoardService, audit *AuditService, c clock.Clock) *TaskService {
	return &TaskService{
		db:      db,
		tasks:   repository.NewTaskRepository(db),
		history: repository.NewHistoryRepository(db),
		stats:   stats,
		boards:  boards,
		audit:   audit,
		clock:   c,
	}
}

// TaskInput is the create payload
type TaskInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Priority      string  `json:"priority"`
	DueDate       *string `json:"due_date"`
	EstimatedTime *int    `json:"estimated_time"`
	ActualTime    *int    `json:"actual_time"`
	PointsValue   int     `json:"points_value"`
	GroupID       *int64  `json:"group_id"`
	TeamID        *int64  `json:"team_id"`
}

// TaskUpdate is a partial update; nil fields are left alone. An empty
// DueDate clears the due date and a zero GroupID removes the task from its group.
type TaskUpdate struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Status        *string `json:"status"`
	Priority      *string `json:"priority"`
	DueDate       *string `json:"due_date"`
	EstimatedTime *int    `json:"estimated_time"`
	ActualTime    *int    `json:"actual_time"`
	PointsValue   *int    `json:"points_value"`
	GroupID       *int64  `json:"group_id"`
	Notes         string  `json:"notes"`
}

// SubtaskInput is the create payload for a subtask
type SubtaskInput struct {
	Name      string `json:"name"`
	IsDone    bool   `json:"is_done"`
	SortOrder *int   `json:"sort_order"`
}

// SubtaskUpdate is a partial update of a subtask
type SubtaskUpdate struct {
	Name      *string `json:"name"`
	IsDone    *bool   `json:"is_done"`
	SortOrder *int    `json:"sort_order"`
}

func (s *TaskService) today() string {
	return models.FormatDate(s.clock.Now())
}

// Create adds a task for userID
func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (*models.TaskWithSubtasks, error) {
	task := &models.Task{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Status:        models.StatusNotStarted,
		Priority:      models.PriorityMedium,
		EstimatedTime: in.EstimatedTime,
		ActualTime:    in.ActualTime,
		PointsValue:   in.PointsValue,
		UserID:        userID,
		GroupID:       in.GroupID,
		TeamID:        in.TeamID,
		CreatedAt:     s.clock.Now(),
	}
	if err := validation.ValidateTitle("name", task.Name, validation.MaxTaskNameLength); err != nil {
		return nil, err
	}
	if in.Status != "" {
		st, err := validation.ValidateStatus(in.Status)
		if err != nil {
			return nil, err
		}
		task.Status = st
	}
	if in.Priority != "" {
		task.Priority = models.Priority(in.Priority)
		if err := validation.ValidatePriority(task.Priority); err != nil {
			return nil, err
		}
	}
	if in.DueDate != nil && *in.DueDate != "" {
		if err := validation.ValidateDate("due_date", *in.DueDate); err != nil {
			return nil, err
		}
		task.DueDate = in.DueDate
	}
	if err := validateTaskNumbers(task); err != nil {
		return nil, err
	}
	if task.GroupID != nil {
		if err := s.boards.AuthorizeGroup(ctx, userID, *task.GroupID); err != nil {
			return nil, err
		}
	}
	if task.Status == models.StatusDone {
		completedAt := task.CreatedAt
		task.CompletedAt = &completedAt
	}

	today := s.today()
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return err
		}
		newStatus := task.Status
		if err := s.history.WithTx(tx).Append(ctx, &models.TaskHistory{
			TaskID:    task.ID,
			UserID:    userID,
			EventType: models.EventCreated,
			NewStatus: &newStatus,
			CreatedAt: task.CreatedAt,
		}); err != nil {
			return err
		}
		if err := s.stats.RecordTaskCreated(ctx, tx, userID, task.ID, today); err != nil {
			return err
		}
		if task.Status == models.StatusDone {
			if err := s.stats.RecordTaskCompleted(ctx, tx, task, today); err != nil {
				return err
			}
		}
		return s.refreshIfDueToday(ctx, tx, userID, today, task.DueDate)
	})
	if err != nil {
		return nil, err
	}
	return s.withSubtasks(ctx, task)
}

func validateTaskNumbers(task *models.Task) error {
	if task.EstimatedTime != nil {
		if err := validation.ValidateNonNegative("estimated_time", *task.EstimatedTime); err != nil {
			return err
		}
	}
	if task.ActualTime != nil {
		if err := validation.ValidateNonNegative("actual_time", *task.ActualTime); err != nil {
			return err
		}
	}
	return validation.ValidateNonNegative("points_value", task.PointsValue)
}

// refreshIfDueToday updates today's completion rate when any of dates is today.
// Past days are left as recorded.
func (s *TaskService) refreshIfDueToday(ctx context.Context, q database.Querier, userID int64, today string, dates ...*string) error {
	for _, d := range dates {
		if d != nil && *d == today {
			return s.stats.RefreshDay(ctx, q, userID, today)
		}
	}
	return nil
}

// Get returns a task with its subtasks and progress
func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (*models.TaskWithSubtasks, error) {
	task, err := s.owned(ctx, s.tasks, userID, taskID)
	if err != nil {
		return nil, err
	}
	return s.withSubtasks(ctx, task)
}

func (s *TaskService) owned(ctx context.Context, repo *repository.TaskRepository, userID, taskID int64) (*models.Task, error) {
	task, err := repo.GetByID(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *TaskService) withSubtasks(ctx context.Context, task *models.Task) (*models.TaskWithSubtasks, error) {
	subtasks, err := s.tasks.ListSubtasks(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return &models.TaskWithSubtasks{
		Task:     *task,
		Subtasks: subtasks,
		Progress: gamification.TaskProgress(task, subtasks),
	}, nil
}

// List returns the user's tasks matching filter
func (s *TaskService) List(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error) {
	if filter.Status != "" {
		st, err := validation.ValidateStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.tasks.List(ctx, userID, filter)
}

// Update applies a partial update. A change of status records the matching
// history event; moving to done credits the completion exactly once per day.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, in TaskUpdate) (*models.TaskWithSubtasks, error) {
	var task *models.Task
	today := s.today()

	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		tasks := s.tasks.WithTx(tx)
		var err error
		task, err = s.owned(ctx, tasks, userID, taskID)
		if err != nil {
			return err
		}

		oldStatus := task.Status
		oldDue := task.DueDate
		changes, err := s.applyUpdate(ctx, userID, task, in)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		task.UpdatedAt = now

		if task.Status != oldStatus {
			if task.Status == models.StatusDone {
				task.CompletedAt = &now
			} else if oldStatus == models.StatusDone {
				task.CompletedAt = nil
			}
		}
		if err := tasks.Update(ctx, task); err != nil {
			return err
		}

		history := s.history.WithTx(tx)
		if task.Status != oldStatus {
			event := models.EventStatusChanged
			switch task.Status {
			case models.StatusDone:
				event = models.EventCompleted
			case models.StatusPostponed:
				event = models.EventPostponed
			}
			oldS, newS := oldStatus, task.Status
			if err := history.Append(ctx, &models.TaskHistory{
				TaskID:    task.ID,
				UserID:    userID,
				EventType: event,
				OldStatus: &oldS,
				NewStatus: &newS,
				Notes:     in.Notes,
				CreatedAt: now,
			}); err != nil {
				return err
			}

			switch task.Status {
			case models.StatusDone:
				if err := s.stats.RecordTaskCompleted(ctx, tx, task, today); err != nil {
					return err
				}
			case models.StatusPostponed:
				if err := s.stats.RecordTaskPostponed(ctx, tx, userID, task.ID, today); err != nil {
					return err
				}
			}
		}
		if len(changes) > 0 {
			raw, err := encodeChanges(changes)
			if err != nil {
				return err
			}
			if err := history.Append(ctx, &models.TaskHistory{
				TaskID:    task.ID,
				UserID:    userID,
				EventType: models.EventUpdated,
				Changes:   raw,
				Notes:     in.Notes,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		return s.refreshIfDueToday(ctx, tx, userID, today, oldDue, task.DueDate)
	})
	if err != nil {
		return nil, err
	}
	return s.withSubtasks(ctx, task)
}

// encodeChanges renders the changed fields of an update for the history log
func encodeChanges(changes map[string]interface{}) (string, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("failed to encode task changes: %w", err)
	}
	return string(raw), nil
}

// applyUpdate validates in and copies it onto task. It returns the changed
// fields other than status, keyed by name.
func (s *TaskService) applyUpdate(ctx context.Context, userID int64, task *models.Task, in TaskUpdate) (map[string]interface{}, error) {
	changes := map[string]interface{}{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateTitle("name", name, validation.MaxTaskNameLength); err != nil {
			return nil, err
		}
		if name != task.Name {
			changes["name"] = name
			task.Name = name
		}
	}
	if in.Description != nil && *in.Description != task.Description {
		changes["description"] = *in.Description
		task.Description = *in.Description
	}
	if in.Status != nil {
		st, err := validation.ValidateStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		task.Status = st
	}
	if in.Priority != nil {
		p := models.Priority(*in.Priority)
		if err := validation.ValidatePriority(p); err != nil {
			return nil, err
		}
		if p != task.Priority {
			changes["priority"] = p
			task.Priority = p
		}
	}
	if in.DueDate != nil {
		var due *string
		if *in.DueDate != "" {
			if err := validation.ValidateDate("due_date", *in.DueDate); err != nil {
				return nil, err
			}
			v := *in.DueDate
			due = &v
		}
		if !equalStrPtr(due, task.DueDate) {
			changes["due_date"] = due
			task.DueDate = due
		}
	}
	if in.EstimatedTime != nil {
		changes["estimated_time"] = *in.EstimatedTime
		task.EstimatedTime = in.EstimatedTime
	}
	if in.ActualTime != nil {
		changes["actual_time"] = *in.ActualTime
		task.ActualTime = in.ActualTime
	}
	if in.PointsValue != nil && *in.PointsValue != task.PointsValue {
		changes["points_value"] = *in.PointsValue
		task.PointsValue = *in.PointsValue
	}
	if in.GroupID != nil {
		if *in.GroupID == 0 {
			if task.GroupID != nil {
				changes["group_id"] = nil
			}
			task.GroupID = nil
		} else if task.GroupID == nil || *task.GroupID != *in.GroupID {
			if err := s.boards.AuthorizeGroup(ctx, userID, *in.GroupID); err != nil {
				return nil, err
			}
			id := *in.GroupID
			changes["group_id"] = id
			task.GroupID = &id
		}
	}
	if err := validateTaskNumbers(task); err != nil {
		return nil, err
	}
	return changes, nil
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete removes a task. Its history goes with it, so the deletion itself
// is kept in the audit log.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	today := s.today()
	var task *models.Task
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		tasks := s.tasks.WithTx(tx)
		var err error
		task, err = s.owned(ctx, tasks, userID, taskID)
		if err != nil {
			return err
		}
		if _, err := tasks.Delete(ctx, taskID, userID); err != nil {
			return err
		}
		return s.refreshIfDueToday(ctx, tx, userID, today, task.DueDate)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, userID, "task."+string(models.EventDeleted), "task", &task.ID, map[string]interface{}{
		"name":   task.Name,
		"status": task.Status,
	})
	return nil
}

// AddSubtask appends a subtask to one of the user's tasks
func (s *TaskService) AddSubtask(ctx context.Context, userID, taskID int64, in SubtaskInput) (*models.Subtask, error) {
	task, err := s.owned(ctx, s.tasks, userID, taskID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateTitle("name", name, validation.MaxTaskNameLength); err != nil {
		return nil, err
	}

	sub := &models.Subtask{Name: name, IsDone: in.IsDone, TaskID: task.ID, CreatedAt: s.clock.Now()}
	if in.SortOrder != nil {
		sub.SortOrder = *in.SortOrder
	} else {
		next, err := s.tasks.NextSubtaskOrder(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		sub.SortOrder = next
	}
	if err := s.tasks.CreateSubtask(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubtasks returns the subtasks of one of the user's tasks
func (s *TaskService) ListSubtasks(ctx context.Context, userID, taskID int64) ([]models.Subtask, error) {
	if _, err := s.owned(ctx, s.tasks, userID, taskID); err != nil {
		return nil, err
	}
	return s.tasks.ListSubtasks(ctx, taskID)
}

// UpdateSubtask applies a partial update to a subtask
func (s *TaskService) UpdateSubtask(ctx context.Context, userID, taskID, subtaskID int64, in SubtaskUpdate) (*models.Subtask, error) {
	if _, err := s.owned(ctx, s.tasks, userID, taskID); err != nil {
		return nil, err
	}
	sub, err := s.tasks.GetSubtask(ctx, subtaskID, taskID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateTitle("name", name, validation.MaxTaskNameLength); err != nil {
			return nil, err
		}
		sub.Name = name
	}
	if in.IsDone != nil {
		sub.IsDone = *in.IsDone
	}
	if in.SortOrder != nil {
		sub.SortOrder = *in.SortOrder
	}
	sub.UpdatedAt = s.clock.Now()
	if err := s.tasks.UpdateSubtask(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubtask removes a subtask
func (s *TaskService) DeleteSubtask(ctx context.Context, userID, taskID, subtaskID int64) error {
	if _, err := s.owned(ctx, s.tasks, userID, taskID); err != nil {
		return err
	}
	deleted, err := s.tasks.DeleteSubtask(ctx, subtaskID, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
