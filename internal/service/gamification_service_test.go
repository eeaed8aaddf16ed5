package service

import (
	"context"
	"testing"

	"deepfocus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionXPAwardedOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "focus@example.com")
	task := env.createTask(t, userID, "deep work", "", nil)

	session, err := env.gamification.StartSession(ctx, userID, SessionInput{TaskID: &task.ID, FlowRating: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, models.SessionFocus, session.SessionType)
	assert.Equal(t, 25, session.PlannedDuration)
	assert.Zero(t, session.XPEarned)

	finished, err := env.gamification.UpdateSession(ctx, userID, session.ID, SessionUpdate{
		WasCompleted:           boolPtr(true),
		TaskCompletedInSession: boolPtr(true),
		DurationMinutes:        intPtr(25),
	})
	require.NoError(t, err)
	assert.Equal(t, 40, finished.XPEarned)
	assert.NotNil(t, finished.EndTime)

	again, err := env.gamification.UpdateSession(ctx, userID, session.ID, SessionUpdate{
		WasCompleted:  boolPtr(true),
		Interruptions: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 40, again.XPEarned)
	assert.Equal(t, 2, again.Interruptions)

	day := env.dailyStats(t, userID, env.today())
	assert.Equal(t, 1, day.CompletedFocusSessions)
	assert.Equal(t, 1, day.FocusSessionsCount)
	assert.Equal(t, 25, day.TotalFocusMinutes)
	require.NotNil(t, day.AverageFlowRating())
	assert.Equal(t, 5.0, *day.AverageFlowRating())

	// 40 for the session and 50 for unlocking the first-session achievement
	assert.Equal(t, 90, day.XPEarned)
	assert.Equal(t, 1, day.AchievementsUnlocked)

	stats, err := env.gamification.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 90, stats.TotalXP)
	assert.Equal(t, 25, stats.TotalFocusTime)
	assert.Equal(t, 1, stats.Level)
}

func TestSessionNotCompletedEarnsNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "abandon@example.com")

	session, err := env.gamification.StartSession(ctx, userID, SessionInput{SessionType: "short_break", PlannedDuration: 5})
	require.NoError(t, err)

	updated, err := env.gamification.UpdateSession(ctx, userID, session.ID, SessionUpdate{FlowRating: intPtr(2)})
	require.NoError(t, err)
	assert.Zero(t, updated.XPEarned)
	assert.Nil(t, updated.EndTime)

	rows, err := env.stats.DailyStats(ctx, userID, "", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSessionValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "invalid@example.com")
	otherID := env.user(t, "someone@example.com")
	foreign := env.createTask(t, otherID, "theirs", "", nil)

	tests := []struct {
		name  string
		input SessionInput
		want  error
	}{
		{name: "flow rating too high", input: SessionInput{FlowRating: intPtr(6)}},
		{name: "unknown type", input: SessionInput{SessionType: "nap"}},
		{name: "negative duration", input: SessionInput{PlannedDuration: -1}},
		{name: "foreign task", input: SessionInput{TaskID: &foreign.ID}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gamification.StartSession(ctx, userID, tt.input)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	_, err := env.gamification.UpdateSession(ctx, userID, 9999, SessionUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAchievementsListing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "badges@example.com")

	unlocked, err := env.gamification.Achievements(ctx, userID, false)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	all, err := env.gamification.Achievements(ctx, userID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	task := env.createTask(t, userID, "first", "", nil)
	_, err = env.tasks.Update(ctx, userID, task.ID, TaskUpdate{Status: strPtr("done")})
	require.NoError(t, err)

	unlocked, err = env.gamification.Achievements(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "First Step", unlocked[0].Name)
	assert.NotNil(t, unlocked[0].UnlockedAt)
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "summary@example.com")

	env.createTask(t, userID, "overdue", "", strPtr(env.dateOffset(-3)))
	env.createTask(t, userID, "due", "", strPtr(env.today()))
	env.createTask(t, userID, "finished", "done", strPtr(env.today()))

	summary, err := env.gamification.Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TasksDueToday)
	assert.Equal(t, 1, summary.TasksDoneToday)
	assert.Equal(t, 1, summary.OverdueTasks)
	assert.Equal(t, env.today(), summary.Today.Date)
	assert.Equal(t, 50, summary.Today.CompletionRate)
	assert.Len(t, summary.RecentAchievements, 1)
}
