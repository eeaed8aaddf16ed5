package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// StatsRepository handles UserStats, DailyStats and the applied event ledger
type StatsRepository struct {
	db database.Querier
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.Querier) *StatsRepository {
	return &StatsRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *StatsRepository) WithTx(tx database.Querier) *StatsRepository {
	return &StatsRepository{db: tx}
}

const userStatsColumns = `id, user_id, total_xp, level, total_points, current_streak, longest_streak,
	last_activity_at, last_streak_date, total_tasks_completed, total_focus_time, created_at, updated_at`

// GetUserStats returns the user's stats row, or nil if none exists yet
func (r *StatsRepository) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	s := &models.UserStats{}
	err := r.db.QueryRowContext(ctx, "SELECT "+userStatsColumns+" FROM user_stats WHERE user_id = ?", userID).Scan(
		&s.ID,
		&s.UserID,
		&s.TotalXP,
		&s.Level,
		&s.TotalPoints,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.LastActivityAt,
		&s.LastStreakDate,
		&s.TotalTasksCompleted,
		&s.TotalFocusTime,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return s, nil
}

// EnsureUserStats creates the user's stats row if missing and returns it.
// Concurrent first calls race on the unique user_id and only one row survives.
func (r *StatsRepository) EnsureUserStats(ctx context.Context, userID int64, at time.Time) (*models.UserStats, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO user_stats (user_id, level, created_at, updated_at) VALUES (?, 1, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, userID, at, at); err != nil {
		return nil, fmt.Errorf("failed to create user stats: %w", err)
	}
	s, err := r.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("user stats for user %d missing after insert", userID)
	}
	return s, nil
}

// UserStatsDelta is an additive change to the cumulative counters
type UserStatsDelta struct {
	XP             int
	Points         int
	TasksCompleted int
	FocusMinutes   int
}

// IncrementUserStats adds delta to the counters in a single statement and
// stamps the activity time
func (r *StatsRepository) IncrementUserStats(ctx context.Context, userID int64, d UserStatsDelta, at time.Time) error {
	query := `
		UPDATE user_stats
		SET total_xp = total_xp + ?,
			total_points = total_points + ?,
			total_tasks_completed = total_tasks_completed + ?,
			total_focus_time = total_focus_time + ?,
			last_activity_at = ?,
			updated_at = ?
		WHERE user_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, d.XP, d.Points, d.TasksCompleted, d.FocusMinutes, at, at, userID); err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	return nil
}

// SetLevel stores a recalculated level
func (r *StatsRepository) SetLevel(ctx context.Context, userID int64, level int) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE user_stats SET level = ? WHERE user_id = ?", level, userID); err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	return nil
}

// SetStreak stores the incrementally maintained streak
func (r *StatsRepository) SetStreak(ctx context.Context, userID int64, current, longest int, lastDate *string, at time.Time) error {
	query := `UPDATE user_stats SET current_streak = ?, longest_streak = ?, last_streak_date = ?, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, current, longest, lastDate, at, userID); err != nil {
		return fmt.Errorf("failed to set streak: %w", err)
	}
	return nil
}

// ListUserIDsWithStats returns every user that has a stats row
func (r *StatsRepository) ListUserIDsWithStats(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT user_id FROM user_stats ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list stats users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const dailyStatsColumns = `id, user_id, stat_date, tasks_created, tasks_completed, tasks_postponed,
	focus_sessions_count, total_focus_minutes, completed_focus_sessions, xp_earned, achievements_unlocked,
	completion_rate, flow_rating_sum, flow_rating_count, daily_goal_met, created_at, updated_at`

func scanDailyStats(row interface{ Scan(...interface{}) error }) (*models.DailyStats, error) {
	d := &models.DailyStats{}
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Date,
		&d.TasksCreated,
		&d.TasksCompleted,
		&d.TasksPostponed,
		&d.FocusSessionsCount,
		&d.TotalFocusMinutes,
		&d.CompletedFocusSessions,
		&d.XPEarned,
		&d.AchievementsUnlocked,
		&d.CompletionRate,
		&d.FlowRatingSum,
		&d.FlowRatingCount,
		&d.DailyGoalMet,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily stats: %w", err)
	}
	return d, nil
}

// GetDailyStats returns the (user, date) aggregate, or nil
func (r *StatsRepository) GetDailyStats(ctx context.Context, userID int64, date string) (*models.DailyStats, error) {
	query := "SELECT " + dailyStatsColumns + " FROM daily_stats WHERE user_id = ? AND stat_date = ?"
	return scanDailyStats(r.db.QueryRowContext(ctx, query, userID, date))
}

// EnsureDailyStats finds or creates the (user, date) aggregate. The unique
// key guarantees a single row however many callers race here.
func (r *StatsRepository) EnsureDailyStats(ctx context.Context, userID int64, date string, at time.Time) (*models.DailyStats, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO daily_stats (user_id, stat_date, created_at, updated_at) VALUES (?, ?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, userID, date, at, at); err != nil {
		return nil, fmt.Errorf("failed to create daily stats: %w", err)
	}
	d, err := r.GetDailyStats(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("daily stats for user %d on %s missing after insert", userID, date)
	}
	return d, nil
}

// ApplyDailyDelta adds delta to the (user, date) row, which must exist
func (r *StatsRepository) ApplyDailyDelta(ctx context.Context, userID int64, date string, d models.DailyDelta, at time.Time) error {
	query := `
		UPDATE daily_stats
		SET tasks_created = tasks_created + ?,
			tasks_completed = tasks_completed + ?,
			tasks_postponed = tasks_postponed + ?,
			focus_sessions_count = focus_sessions_count + ?,
			total_focus_minutes = total_focus_minutes + ?,
			completed_focus_sessions = completed_focus_sessions + ?,
			xp_earned = xp_earned + ?,
			achievements_unlocked = achievements_unlocked + ?,
			flow_rating_sum = flow_rating_sum + ?,
			flow_rating_count = flow_rating_count + ?,
			updated_at = ?
		WHERE user_id = ? AND stat_date = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		d.TasksCreated,
		d.TasksCompleted,
		d.TasksPostponed,
		d.FocusSessionsCount,
		d.TotalFocusMinutes,
		d.CompletedFocusSessions,
		d.XPEarned,
		d.AchievementsUnlocked,
		d.FlowRatingSum,
		d.FlowRatingCount,
		at,
		userID,
		date,
	)
	if err != nil {
		return fmt.Errorf("failed to apply daily stats delta: %w", err)
	}
	return nil
}

// SetCompletionRate stores the day's completion percentage and goal flag
func (r *StatsRepository) SetCompletionRate(ctx context.Context, userID int64, date string, rate int, goalMet bool, at time.Time) error {
	query := `UPDATE daily_stats SET completion_rate = ?, daily_goal_met = ?, updated_at = ? WHERE user_id = ? AND stat_date = ?`
	if _, err := r.db.ExecContext(ctx, query, rate, goalMet, at, userID, date); err != nil {
		return fmt.Errorf("failed to set completion rate: %w", err)
	}
	return nil
}

// ListDailyStats returns the user's aggregates between from and to
// (inclusive, either may be empty) in ascending date order
func (r *StatsRepository) ListDailyStats(ctx context.Context, userID int64, from, to string) ([]models.DailyStats, error) {
	query := "SELECT " + dailyStatsColumns + " FROM daily_stats WHERE user_id = ?"
	args := []interface{}{userID}
	if from != "" {
		query += " AND stat_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND stat_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY stat_date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}
	defer rows.Close()

	stats := []models.DailyStats{}
	for rows.Next() {
		d, err := scanDailyStats(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, *d)
	}
	return stats, rows.Err()
}

// MarkEventApplied records that eventKey has been folded into the user's
// aggregates. It returns false when the key was already recorded.
func (r *StatsRepository) MarkEventApplied(ctx context.Context, userID int64, eventKey string, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO applied_events (user_id, event_key, applied_at) VALUES (?, ?, ?)")
	res, err := r.db.ExecContext(ctx, query, userID, eventKey, at)
	if err != nil {
		return false, fmt.Errorf("failed to record applied event: %w", err)
	}
	return rowsAffected(res)
}
