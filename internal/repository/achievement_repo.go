package repository

import (
	"context"
	"fmt"
	"time"

	"deepfocus/internal/database"
	"deepfocus/internal/models"
)

// AchievementRepository handles the achievement catalog and per-user progress
type AchievementRepository struct {
	db database.Querier
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db database.Querier) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *AchievementRepository) WithTx(tx database.Querier) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

// ListActive returns the active catalog ordered by criteria and threshold
func (r *AchievementRepository) ListActive(ctx context.Context) ([]models.Achievement, error) {
	query := `
		SELECT id, name, description, icon, criteria_type, criteria_value, xp_reward, tier, is_active, created_at
		FROM achievements
		WHERE is_active = ?
		ORDER BY criteria_type, criteria_value, id
	`
	rows, err := r.db.QueryContext(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	achievements := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.CriteriaType, &a.CriteriaValue,
			&a.XPReward, &a.Tier, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// ListForUser returns the user's progress rows keyed by achievement ID
func (r *AchievementRepository) ListForUser(ctx context.Context, userID int64) (map[int64]models.UserAchievement, error) {
	query := `
		SELECT id, user_id, achievement_id, progress, unlocked_at, updated_at
		FROM user_achievements
		WHERE user_id = ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]models.UserAchievement)
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.Progress, &ua.UnlockedAt, &ua.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		result[ua.AchievementID] = ua
	}
	return result, rows.Err()
}

// SetProgress records progress toward a still-locked achievement
func (r *AchievementRepository) SetProgress(ctx context.Context, userID, achievementID int64, progress int, at time.Time) error {
	insert := r.db.GetDialect().InsertIgnore(
		"INSERT INTO user_achievements (user_id, achievement_id, progress, updated_at) VALUES (?, ?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, insert, userID, achievementID, progress, at); err != nil {
		return fmt.Errorf("failed to create user achievement: %w", err)
	}
	query := `
		UPDATE user_achievements SET progress = ?, updated_at = ?
		WHERE user_id = ? AND achievement_id = ? AND unlocked_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, progress, at, userID, achievementID); err != nil {
		return fmt.Errorf("failed to update achievement progress: %w", err)
	}
	return nil
}

// Unlock marks an achievement unlocked. It returns false when it already was,
// so rewards are granted once.
func (r *AchievementRepository) Unlock(ctx context.Context, userID, achievementID int64, progress int, at time.Time) (bool, error) {
	if err := r.SetProgress(ctx, userID, achievementID, progress, at); err != nil {
		return false, err
	}
	query := `
		UPDATE user_achievements SET unlocked_at = ?, updated_at = ?
		WHERE user_id = ? AND achievement_id = ? AND unlocked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, at, at, userID, achievementID)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return rowsAffected(res)
}

// ListRecentUnlocked returns the user's most recently unlocked achievements
func (r *AchievementRepository) ListRecentUnlocked(ctx context.Context, userID int64, limit int) ([]models.AchievementStatus, error) {
	query := `
		SELECT a.id, a.name, a.description, a.icon, a.criteria_type, a.criteria_value, a.xp_reward, a.tier,
			a.is_active, a.created_at, ua.progress, ua.unlocked_at
		FROM user_achievements ua
		INNER JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ? AND ua.unlocked_at IS NOT NULL
		ORDER BY ua.unlocked_at DESC, a.id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent achievements: %w", err)
	}
	defer rows.Close()

	result := []models.AchievementStatus{}
	for rows.Next() {
		var s models.AchievementStatus
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Icon, &s.CriteriaType, &s.CriteriaValue,
			&s.XPReward, &s.Tier, &s.IsActive, &s.CreatedAt, &s.Progress, &s.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		s.Unlocked = true
		result = append(result, s)
	}
	return result, rows.Err()
}
