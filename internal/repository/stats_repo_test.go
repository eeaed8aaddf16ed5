package repository

import (
	"context"
	"testing"
	"time"

	"deepfocus/internal/database/databasetest"
	"deepfocus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDailyStatsCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	db := databasetest.New(t)
	userID := databasetest.CreateUser(t, db, "daily@example.com")
	repo := NewStatsRepository(db)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first, err := repo.EnsureDailyStats(ctx, userID, "2026-03-01", at)
	require.NoError(t, err)
	second, err := repo.EnsureDailyStats(ctx, userID, "2026-03-01", at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, at.Equal(second.CreatedAt), "created_at comes from the caller, got %v", second.CreatedAt)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM daily_stats WHERE user_id = ? AND stat_date = ?", userID, "2026-03-01").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestApplyDailyDelta(t *testing.T) {
	ctx := context.Background()
	db := databasetest.New(t)
	userID := databasetest.CreateUser(t, db, "delta@example.com")
	repo := NewStatsRepository(db)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.EnsureDailyStats(ctx, userID, "2026-03-01", at)
	require.NoError(t, err)

	delta := models.DailyDelta{FocusSessionsCount: 1, CompletedFocusSessions: 1, TotalFocusMinutes: 25, XPEarned: 40, FlowRatingSum: 5, FlowRatingCount: 1}
	require.NoError(t, repo.ApplyDailyDelta(ctx, userID, "2026-03-01", delta, at))
	require.NoError(t, repo.ApplyDailyDelta(ctx, userID, "2026-03-01", models.DailyDelta{TasksCompleted: 2}, at))

	got, err := repo.GetDailyStats(ctx, userID, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FocusSessionsCount)
	assert.Equal(t, 25, got.TotalFocusMinutes)
	assert.Equal(t, 40, got.XPEarned)
	assert.Equal(t, 2, got.TasksCompleted)
	require.NotNil(t, got.AverageFlowRating())
	assert.Equal(t, 5.0, *got.AverageFlowRating())
}

func TestEnsureUserStatsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := databasetest.New(t)
	userID := databasetest.CreateUser(t, db, "stats@example.com")
	repo := NewStatsRepository(db)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	s1, err := repo.EnsureUserStats(ctx, userID, at)
	require.NoError(t, err)
	assert.Equal(t, 1, s1.Level)
	assert.True(t, at.Equal(s1.CreatedAt), "created_at comes from the caller, got %v", s1.CreatedAt)

	require.NoError(t, repo.IncrementUserStats(ctx, userID, UserStatsDelta{XP: 40, FocusMinutes: 25}, at))

	s2, err := repo.EnsureUserStats(ctx, userID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)
	assert.Equal(t, 40, s2.TotalXP)
	assert.Equal(t, 25, s2.TotalFocusTime)
	require.NotNil(t, s2.LastActivityAt)
	assert.True(t, at.Equal(*s2.LastActivityAt))
}

func TestMarkEventApplied(t *testing.T) {
	ctx := context.Background()
	db := databasetest.New(t)
	userID := databasetest.CreateUser(t, db, "events@example.com")
	repo := NewStatsRepository(db)
	at := time.Now().UTC()

	applied, err := repo.MarkEventApplied(ctx, userID, "focus_session:1", at)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.MarkEventApplied(ctx, userID, "focus_session:1", at)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.MarkEventApplied(ctx, userID, "focus_session:2", at)
	require.NoError(t, err)
	assert.True(t, applied)
}
