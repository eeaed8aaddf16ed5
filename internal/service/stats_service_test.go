package service

import (
	"context"
	"testing"

	"deepfocus/internal/database"
	"deepfocus/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyStatsOneRowPerDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "daily@example.com")
	today := env.today()

	for taskID := int64(1); taskID <= 3; taskID++ {
		err := env.db.InTx(ctx, func(tx *database.Tx) error {
			return env.stats.RecordTaskCreated(ctx, tx, userID, taskID, today)
		})
		require.NoError(t, err)
	}

	t.Run("replayed event is ignored", func(t *testing.T) {
		err := env.db.InTx(ctx, func(tx *database.Tx) error {
			return env.stats.RecordTaskCreated(ctx, tx, userID, 2, today)
		})
		require.NoError(t, err)
	})

	rows, err := env.stats.DailyStats(ctx, userID, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, today, rows[0].Date)
	assert.Equal(t, 3, rows[0].TasksCreated)
}

func TestDailyStatsRolledBackWithEvent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "rollback@example.com")

	err := env.db.InTx(ctx, func(tx *database.Tx) error {
		if err := env.stats.RecordTaskCreated(ctx, tx, userID, 7, env.today()); err != nil {
			return err
		}
		return ErrConflict
	})
	require.ErrorIs(t, err, ErrConflict)

	rows, err := env.stats.DailyStats(ctx, userID, "", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// completeTaskDueToday finishes a fresh task due on the clock's current day
func completeTaskDueToday(t *testing.T, env *testEnv, userID int64) {
	t.Helper()
	task := env.createTask(t, userID, "daily work "+env.today(), "", strPtr(env.today()))
	_, err := env.tasks.Update(context.Background(), userID, task.ID, TaskUpdate{Status: strPtr("done")})
	require.NoError(t, err)
}

func TestStreakTracking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "streak@example.com")

	completeTaskDueToday(t, env, userID)
	env.advanceDays(1)
	completeTaskDueToday(t, env, userID)
	env.advanceDays(1)
	completeTaskDueToday(t, env, userID)

	us, err := env.stats.UserStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, us.CurrentStreak)
	assert.Equal(t, 3, us.LongestStreak)
	require.NotNil(t, us.LastStreakDate)
	assert.Equal(t, env.today(), *us.LastStreakDate)

	t.Run("missed days break the run", func(t *testing.T) {
		env.advanceDays(2)
		view := env.stats.StatsView(us)
		assert.Equal(t, 0, view.CurrentStreak)

		completeTaskDueToday(t, env, userID)
		us, err := env.stats.UserStats(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 1, us.CurrentStreak)
		assert.Equal(t, 3, us.LongestStreak)
	})

	t.Run("below threshold does not count", func(t *testing.T) {
		env.advanceDays(1)
		completeTaskDueToday(t, env, userID)
		assertStreak(t, env, userID, 2, 3)

		open := env.createTask(t, userID, "left open", "", strPtr(env.today()))
		day := env.dailyStats(t, userID, env.today())
		assert.Equal(t, 50, day.CompletionRate)
		assert.False(t, day.DailyGoalMet)
		assertStreak(t, env, userID, 1, 3)
		assertStreakMatchesRecompute(t, env, userID)

		_, err := env.tasks.Update(ctx, userID, open.ID, TaskUpdate{Status: strPtr("done")})
		require.NoError(t, err)
		assertStreak(t, env, userID, 2, 3)
		assertStreakMatchesRecompute(t, env, userID)
	})

	t.Run("streak achievement unlocked", func(t *testing.T) {
		statuses, err := env.gamification.Achievements(ctx, userID, false)
		require.NoError(t, err)
		names := map[string]bool{}
		for _, a := range statuses {
			names[a.Name] = a.Unlocked
		}
		assert.True(t, names["On a Roll"])
		assert.True(t, names["First Step"])
	})
}

// assertStreak checks the stored incremental streak
func assertStreak(t *testing.T, env *testEnv, userID int64, current, longest int) {
	t.Helper()
	us, err := env.stats.UserStats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, current, us.CurrentStreak, "current streak")
	assert.Equal(t, longest, us.LongestStreak, "longest streak")
}

// assertStreakMatchesRecompute checks that rebuilding the streak from the
// daily rows leaves the incremental values unchanged
func assertStreakMatchesRecompute(t *testing.T, env *testEnv, userID int64) {
	t.Helper()
	ctx := context.Background()
	before, err := env.stats.UserStats(ctx, userID)
	require.NoError(t, err)
	after, err := env.stats.RecomputeStreaks(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, after.CurrentStreak, before.CurrentStreak, "current streak")
	assert.Equal(t, after.LongestStreak, before.LongestStreak, "longest streak")
	assert.Equal(t, after.LastStreakDate, before.LastStreakDate, "last streak date")
}

func TestStreakDayWithdrawn(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "withdrawn@example.com")

	completeTaskDueToday(t, env, userID)
	assertStreak(t, env, userID, 1, 1)

	open := env.createTask(t, userID, "one more", "", strPtr(env.today()))
	assertStreak(t, env, userID, 0, 0)
	assertStreakMatchesRecompute(t, env, userID)

	us, err := env.stats.UserStats(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, us.LastStreakDate)
	assert.Equal(t, 0, env.stats.StatsView(us).CurrentStreak)

	details, err := env.history.Streak(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, details.LongestStreak)
	assert.Equal(t, 0, details.BestStreak)

	t.Run("qualifies again on the same day", func(t *testing.T) {
		_, err := env.tasks.Update(ctx, userID, open.ID, TaskUpdate{Status: strPtr("done")})
		require.NoError(t, err)
		assertStreak(t, env, userID, 1, 1)
		assertStreakMatchesRecompute(t, env, userID)
	})
}

func TestStreakAchievementKeptAfterWithdrawal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "kept@example.com")

	completeTaskDueToday(t, env, userID)
	env.advanceDays(1)
	completeTaskDueToday(t, env, userID)
	env.advanceDays(1)
	completeTaskDueToday(t, env, userID)
	assertStreak(t, env, userID, 3, 3)

	env.createTask(t, userID, "late addition", "", strPtr(env.today()))
	assertStreak(t, env, userID, 2, 2)
	assertStreakMatchesRecompute(t, env, userID)

	statuses, err := env.gamification.Achievements(ctx, userID, false)
	require.NoError(t, err)
	unlocked := map[string]bool{}
	for _, a := range statuses {
		unlocked[a.Name] = a.Unlocked
	}
	assert.True(t, unlocked["On a Roll"], "unlocked achievements are never withdrawn")
}

func TestRecomputeStreaks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "recompute@example.com")

	completeTaskDueToday(t, env, userID)
	env.advanceDays(1)
	completeTaskDueToday(t, env, userID)

	drift := "2020-01-01"
	require.NoError(t, repository.NewStatsRepository(env.db).SetStreak(ctx, userID, 9, 9, &drift, env.clock.Now()))

	us, err := env.stats.RecomputeStreaks(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, us.CurrentStreak)
	assert.Equal(t, 2, us.LongestStreak)
	require.NotNil(t, us.LastStreakDate)
	assert.Equal(t, env.today(), *us.LastStreakDate)

	count, err := env.stats.RecomputeAllStreaks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatsViewLevels(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "levels@example.com")
	_, err := env.stats.UserStats(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, repository.NewStatsRepository(env.db).IncrementUserStats(ctx, userID,
		repository.UserStatsDelta{XP: 2000}, env.clock.Now()))
	us, err := env.stats.UserStats(ctx, userID)
	require.NoError(t, err)

	view := env.stats.StatsView(us)
	assert.Equal(t, 3, view.Level)
	assert.Equal(t, 4500, view.XPToNextLevel)
}
