package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// TaskRepository handles database operations for tasks and subtasks
type TaskRepository struct {
	db database.Querier
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db database.Querier) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *TaskRepository) WithTx(tx database.Querier) *TaskRepository {
	return &TaskRepository{db: tx}
}

const taskColumns = `id, name, COALESCE(description, ''), status, priority, due_date, estimated_time, actual_time,
	points_value, completed_at, user_id, group_id, team_id, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.EstimatedTime,
		&task.ActualTime,
		&task.PointsValue,
		&task.CompletedAt,
		&task.UserID,
		&task.GroupID,
		&task.TeamID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// Create inserts a task and fills in its ID
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	createdAt, err := stamp(task.CreatedAt)
	if err != nil {
		return err
	}
	task.UpdatedAt = createdAt

	query := `
		INSERT INTO tasks (name, description, status, priority, due_date, estimated_time, actual_time,
			points_value, completed_at, user_id, group_id, team_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		task.Name,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.EstimatedTime,
		task.ActualTime,
		task.PointsValue,
		task.CompletedAt,
		task.UserID,
		task.GroupID,
		task.TeamID,
		createdAt,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	task.ID = id
	return nil
}

// GetByID retrieves a task owned by userID
func (r *TaskRepository) GetByID(ctx context.Context, id, userID int64) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ? AND user_id = ?"
	return scanTask(r.db.QueryRowContext(ctx, query, id, userID))
}

// List returns the user's tasks matching filter, soonest due first
func (r *TaskRepository) List(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error) {
	where := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.DueDate != "" {
		where = append(where, "due_date = ?")
		args = append(args, filter.DueDate)
	}
	if filter.DueFrom != "" {
		where = append(where, "due_date >= ?")
		args = append(args, filter.DueFrom)
	}
	if filter.DueTo != "" {
		where = append(where, "due_date <= ?")
		args = append(args, filter.DueTo)
	}
	if filter.GroupID != 0 {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE " + strings.Join(where, " AND ") +
		" ORDER BY CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return r.queryTasks(ctx, query, args...)
}

// Update writes every mutable field of task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET name = ?, description = ?, status = ?, priority = ?, due_date = ?, estimated_time = ?,
			actual_time = ?, points_value = ?, completed_at = ?, group_id = ?, team_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		task.Name,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.EstimatedTime,
		task.ActualTime,
		task.PointsValue,
		task.CompletedAt,
		task.GroupID,
		task.TeamID,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes a task owned by userID. Subtasks and history cascade.
func (r *TaskRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return rowsAffected(res)
}

// ListOverdue returns the user's unfinished tasks due strictly before today
func (r *TaskRepository) ListOverdue(ctx context.Context, userID int64, today string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks
		WHERE user_id = ? AND status <> ? AND due_date IS NOT NULL AND due_date < ?
		ORDER BY due_date, id`
	return r.queryTasks(ctx, query, userID, models.StatusDone, today)
}

// CountOverdue counts the user's unfinished tasks due strictly before today
func (r *TaskRepository) CountOverdue(ctx context.Context, userID int64, today string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE user_id = ? AND status <> ? AND due_date IS NOT NULL AND due_date < ?`
	if err := r.db.QueryRowContext(ctx, query, userID, models.StatusDone, today).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return count, nil
}

// SetDueDate moves a single task to date
func (r *TaskRepository) SetDueDate(ctx context.Context, id int64, date string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE tasks SET due_date = ?, updated_at = ? WHERE id = ?", date, at, id)
	if err != nil {
		return fmt.Errorf("failed to set due date: %w", err)
	}
	return nil
}

// CountDueOn returns how many of the user's tasks are due on date and how
// many of those are done
func (r *TaskRepository) CountDueOn(ctx context.Context, userID int64, date string) (total, done int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE user_id = ? AND due_date = ?
	`
	if err := r.db.QueryRowContext(ctx, query, models.StatusDone, userID, date).Scan(&total, &done); err != nil {
		return 0, 0, fmt.Errorf("failed to count tasks due: %w", err)
	}
	return total, done, nil
}

// SumEstimatedDueOn totals the estimated minutes of tasks due on date
func (r *TaskRepository) SumEstimatedDueOn(ctx context.Context, userID int64, date string) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(estimated_time), 0) FROM tasks WHERE user_id = ? AND due_date = ?`
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum estimates: %w", err)
	}
	return total, nil
}

const subtaskColumns = `id, name, is_done, sort_order, task_id, created_at, updated_at`

func scanSubtask(row interface{ Scan(...interface{}) error }) (*models.Subtask, error) {
	s := &models.Subtask{}
	err := row.Scan(&s.ID, &s.Name, &s.IsDone, &s.SortOrder, &s.TaskID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subtask: %w", err)
	}
	return s, nil
}

// CreateSubtask inserts a subtask and fills in its ID
func (r *TaskRepository) CreateSubtask(ctx context.Context, s *models.Subtask) error {
	createdAt, err := stamp(s.CreatedAt)
	if err != nil {
		return err
	}
	s.UpdatedAt = createdAt

	query := `
		INSERT INTO subtasks (name, is_done, sort_order, task_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, s.Name, s.IsDone, s.SortOrder, s.TaskID, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create subtask: %w", err)
	}
	s.ID = id
	return nil
}

// ListSubtasks returns a task's subtasks in display order
func (r *TaskRepository) ListSubtasks(ctx context.Context, taskID int64) ([]models.Subtask, error) {
	query := "SELECT " + subtaskColumns + " FROM subtasks WHERE task_id = ? ORDER BY sort_order, id"
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	subtasks := []models.Subtask{}
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, *s)
	}
	return subtasks, rows.Err()
}

// GetSubtask retrieves a subtask of taskID
func (r *TaskRepository) GetSubtask(ctx context.Context, id, taskID int64) (*models.Subtask, error) {
	query := "SELECT " + subtaskColumns + " FROM subtasks WHERE id = ? AND task_id = ?"
	return scanSubtask(r.db.QueryRowContext(ctx, query, id, taskID))
}

// NextSubtaskOrder returns the sort order for a subtask appended to taskID
func (r *TaskRepository) NextSubtaskOrder(ctx context.Context, taskID int64) (int, error) {
	var next int
	query := `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM subtasks WHERE task_id = ?`
	if err := r.db.QueryRowContext(ctx, query, taskID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get subtask order: %w", err)
	}
	return next, nil
}

// UpdateSubtask writes the mutable fields of a subtask
func (r *TaskRepository) UpdateSubtask(ctx context.Context, s *models.Subtask) error {
	query := `UPDATE subtasks SET name = ?, is_done = ?, sort_order = ?, updated_at = ? WHERE id = ? AND task_id = ?`
	if _, err := r.db.ExecContext(ctx, query, s.Name, s.IsDone, s.SortOrder, s.UpdatedAt, s.ID, s.TaskID); err != nil {
		return fmt.Errorf("failed to update subtask: %w", err)
	}
	return nil
}

// DeleteSubtask removes a subtask of taskID
func (r *TaskRepository) DeleteSubtask(ctx context.Context, id, taskID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM subtasks WHERE id = ? AND task_id = ?", id, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete subtask: %w", err)
	}
	return rowsAffected(res)
}
