package service

import (
	"context"
	"errors"
	"testing"

	"deepfocus/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "plans@example.com")
	today := env.today()

	_, err := env.tasks.Create(ctx, userID, TaskInput{Name: "estimate", DueDate: strPtr(today), EstimatedTime: intPtr(90)})
	require.NoError(t, err)

	plan, err := env.plans.Create(ctx, userID, PlanInput{SleepTime: 8, CommuteTime: 1, WorkTime: 8})
	require.NoError(t, err)
	assert.Equal(t, today, plan.Date)
	assert.Equal(t, 15*60, plan.Budget.AvailableMinutes)
	assert.Equal(t, 8*60+90, plan.Budget.PlannedMinutes)
	assert.Equal(t, 15*60-8*60-90, plan.Budget.WastedMinutes)

	t.Run("duplicate date conflicts", func(t *testing.T) {
		_, err := env.plans.Create(ctx, userID, PlanInput{Date: today, SleepTime: 7})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("other users may plan the same date", func(t *testing.T) {
		otherID := env.user(t, "other-planner@example.com")
		_, err := env.plans.Create(ctx, otherID, PlanInput{Date: today, SleepTime: 7})
		require.NoError(t, err)
	})

	t.Run("partial update", func(t *testing.T) {
		updated, err := env.plans.Update(ctx, userID, today, PlanUpdate{WorkTime: floatPtr(4)})
		require.NoError(t, err)
		assert.Equal(t, 8.0, updated.SleepTime)
		assert.Equal(t, 4.0, updated.WorkTime)
	})

	t.Run("list", func(t *testing.T) {
		_, err := env.plans.Create(ctx, userID, PlanInput{Date: env.dateOffset(1), SleepTime: 7})
		require.NoError(t, err)

		plans, err := env.plans.List(ctx, userID, "", "", 0, 0)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, env.dateOffset(1), plans[0].Date)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.plans.Delete(ctx, userID, today))
		assert.ErrorIs(t, env.plans.Delete(ctx, userID, today), ErrNotFound)
		_, err := env.plans.Get(ctx, userID, today)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPlanValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "plan-validation@example.com")

	tests := []struct {
		name  string
		input PlanInput
		field string
	}{
		{name: "sleep over a day", input: PlanInput{SleepTime: 25}, field: "sleep_time"},
		{name: "negative commute", input: PlanInput{CommuteTime: -1}, field: "commute_time"},
		{name: "bad date", input: PlanInput{Date: "2026-13-01"}, field: "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.plans.Create(ctx, userID, tt.input)
			var verr validation.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func floatPtr(f float64) *float64 { return &f }
