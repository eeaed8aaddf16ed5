package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"deepfocus/internal/models"
	"deepfocus/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskServiceCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "create@example.com")

	tests := []struct {
		name    string
		input   TaskInput
		wantErr bool
		status  models.Status
	}{
		{name: "defaults", input: TaskInput{Name: "Write report"}, status: models.StatusNotStarted},
		{name: "legacy status label", input: TaskInput{Name: "Legacy", Status: "Doing"}, status: models.StatusInProgress},
		{name: "blank name", input: TaskInput{Name: "   "}, wantErr: true},
		{name: "unknown status", input: TaskInput{Name: "x", Status: "archived"}, wantErr: true},
		{name: "bad due date", input: TaskInput{Name: "x", DueDate: strPtr("10/03/2026")}, wantErr: true},
		{name: "negative estimate", input: TaskInput{Name: "x", EstimatedTime: intPtr(-5)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := env.tasks.Create(ctx, userID, tt.input)
			if tt.wantErr {
				var verr validation.ValidationError
				assert.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, task.Status)
			assert.Equal(t, models.PriorityMedium, task.Priority)
		})
	}

	day := env.dailyStats(t, userID, env.today())
	assert.Equal(t, 2, day.TasksCreated)
}

func TestTaskCompletionCountedOncePerDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "once@example.com")
	task := env.createTask(t, userID, "toggle me", "", strPtr(env.today()))

	for _, status := range []string{"done", "in_progress", "done"} {
		_, err := env.tasks.Update(ctx, userID, task.ID, TaskUpdate{Status: strPtr(status)})
		require.NoError(t, err)
	}

	day := env.dailyStats(t, userID, env.today())
	assert.Equal(t, 1, day.TasksCompleted)
	assert.Equal(t, 100, day.CompletionRate)
	assert.True(t, day.DailyGoalMet)

	us, err := env.stats.UserStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, us.TotalTasksCompleted)

	got, err := env.tasks.Get(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, float64(1), got.Progress)

	t.Run("next day counts again", func(t *testing.T) {
		env.advanceDays(1)
		_, err := env.tasks.Update(ctx, userID, task.ID, TaskUpdate{Status: strPtr("in_progress")})
		require.NoError(t, err)
		_, err = env.tasks.Update(ctx, userID, task.ID, TaskUpdate{Status: strPtr("done")})
		require.NoError(t, err)

		day := env.dailyStats(t, userID, env.today())
		assert.Equal(t, 1, day.TasksCompleted)
	})
}

func TestTaskUpdateHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "history@example.com")
	task := env.createTask(t, userID, "history", "", nil)

	_, err := env.tasks.Update(ctx, userID, task.ID, TaskUpdate{Status: strPtr("postponed"), Notes: "tomorrow"})
	require.NoError(t, err)
	_, err = env.tasks.Update(ctx, userID, task.ID, TaskUpdate{Name: strPtr("renamed"), Priority: strPtr("high")})
	require.NoError(t, err)

	entries, err := env.history.TaskHistory(ctx, userID, models.HistoryFilter{TaskID: task.ID})
	require.NoError(t, err)

	events := map[models.HistoryEvent]models.TaskHistory{}
	for _, h := range entries {
		events[h.EventType] = h
	}
	require.Contains(t, events, models.EventCreated)
	require.Contains(t, events, models.EventPostponed)
	require.Contains(t, events, models.EventUpdated)
	assert.Equal(t, "tomorrow", events[models.EventPostponed].Notes)
	assert.Contains(t, events[models.EventUpdated].Changes, `"name":"renamed"`)

	day := env.dailyStats(t, userID, env.today())
	assert.Equal(t, 1, day.TasksPostponed)
}

func TestTaskOwnership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ownerID := env.user(t, "owner@example.com")
	strangerID := env.user(t, "stranger@example.com")
	task := env.createTask(t, ownerID, "private", "", nil)

	_, err := env.tasks.Get(ctx, strangerID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.tasks.Update(ctx, strangerID, task.ID, TaskUpdate{Name: strPtr("mine now")})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, env.tasks.Delete(ctx, strangerID, task.ID), ErrNotFound)
	require.NoError(t, env.tasks.Delete(ctx, ownerID, task.ID))
	assert.ErrorIs(t, env.tasks.Delete(ctx, ownerID, task.ID), ErrNotFound)

	logs, err := env.audit.List(ctx, ownerID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "task.deleted", logs[0].Action)
}

func TestSubtaskProgress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "subtasks@example.com")
	task := env.createTask(t, userID, "parent", "", nil)

	first, err := env.tasks.AddSubtask(ctx, userID, task.ID, SubtaskInput{Name: "one"})
	require.NoError(t, err)
	second, err := env.tasks.AddSubtask(ctx, userID, task.ID, SubtaskInput{Name: "two"})
	require.NoError(t, err)
	assert.Equal(t, first.SortOrder+1, second.SortOrder)

	_, err = env.tasks.UpdateSubtask(ctx, userID, task.ID, first.ID, SubtaskUpdate{IsDone: boolPtr(true)})
	require.NoError(t, err)

	got, err := env.tasks.Get(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Len(t, got.Subtasks, 2)
	assert.InDelta(t, 0.5, got.Progress, 1e-9)

	require.NoError(t, env.tasks.DeleteSubtask(ctx, userID, task.ID, second.ID))
	got, err = env.tasks.Get(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.Progress, 1e-9)
}

func TestEncodeChanges(t *testing.T) {
	raw, err := encodeChanges(map[string]interface{}{"name": "renamed", "estimated_time": 30})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"renamed","estimated_time":30}`, raw)

	_, err = encodeChanges(map[string]interface{}{"score": math.NaN()})
	assert.ErrorContains(t, err, "failed to encode task changes")
}
