package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/gamification"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
)

// StatsService owns every write to UserStats, DailyStats and UserAchievement.
// Each recorder takes the Querier of the caller's transaction so the
// aggregate update commits or rolls back with the event that caused it.
type StatsService struct {
	db           *database.DB
	stats        *repository.StatsRepository
	tasks        *repository.TaskRepository
	sessions     *repository.FocusSessionRepository
	achievements *repository.AchievementRepository
	clock        clock.Clock
	threshold    float64
}

// NewStatsService creates a new stats service. A non-positive threshold
// falls back to gamification.DefaultStreakThreshold.
func NewStatsService(db *database.DB, c clock.Clock, threshold float64) *StatsService {
	if threshold <= 0 {
		threshold = gamification.DefaultStreakThreshold
	}
	return &StatsService{
		db:           db,
		stats:        repository.NewStatsRepository(db),
		tasks:        repository.NewTaskRepository(db),
		sessions:     repository.NewFocusSessionRepository(db),
		achievements: repository.NewAchievementRepository(db),
		clock:        c,
		threshold:    threshold,
	}
}

// Threshold is the completion percentage a day needs to count toward a streak
func (s *StatsService) Threshold() float64 {
	return s.threshold
}

// Today is the current UTC date key
func (s *StatsService) Today() string {
	return models.FormatDate(s.clock.Now())
}

// UserStats returns the user's stats row, creating it on first access
func (s *StatsService) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	return s.stats.EnsureUserStats(ctx, userID, s.clock.Now())
}

// applyEvent folds delta into the (user, date) aggregate unless eventKey has
// been applied before. It reports whether the delta was applied.
func (s *StatsService) applyEvent(ctx context.Context, q database.Querier, userID int64, eventKey, date string, delta models.DailyDelta) (bool, error) {
	stats := s.stats.WithTx(q)
	at := s.clock.Now()

	fresh, err := stats.MarkEventApplied(ctx, userID, eventKey, at)
	if err != nil {
		return false, err
	}
	if !fresh {
		return false, nil
	}
	if _, err := stats.EnsureDailyStats(ctx, userID, date, at); err != nil {
		return false, err
	}
	if err := stats.ApplyDailyDelta(ctx, userID, date, delta, at); err != nil {
		return false, err
	}
	return true, nil
}

// RecordTaskCreated counts a new task on the given date
func (s *StatsService) RecordTaskCreated(ctx context.Context, q database.Querier, userID, taskID int64, date string) error {
	key := fmt.Sprintf("task_created:%d", taskID)
	_, err := s.applyEvent(ctx, q, userID, key, date, models.DailyDelta{TasksCreated: 1})
	return err
}

// RecordTaskPostponed counts a postponement, once per task per day
func (s *StatsService) RecordTaskPostponed(ctx context.Context, q database.Querier, userID, taskID int64, date string) error {
	key := fmt.Sprintf("task_postponed:%d:%s", taskID, date)
	_, err := s.applyEvent(ctx, q, userID, key, date, models.DailyDelta{TasksPostponed: 1})
	return err
}

// RecordTaskCompleted counts a completion, once per task per day, and
// credits the task's points to the user.
func (s *StatsService) RecordTaskCompleted(ctx context.Context, q database.Querier, task *models.Task, date string) error {
	key := fmt.Sprintf("task_completed:%d:%s", task.ID, date)
	applied, err := s.applyEvent(ctx, q, task.UserID, key, date, models.DailyDelta{TasksCompleted: 1})
	if err != nil || !applied {
		return err
	}

	stats := s.stats.WithTx(q)
	if _, err := stats.EnsureUserStats(ctx, task.UserID, s.clock.Now()); err != nil {
		return err
	}
	delta := repository.UserStatsDelta{TasksCompleted: 1, Points: task.PointsValue}
	if err := stats.IncrementUserStats(ctx, task.UserID, delta, s.clock.Now()); err != nil {
		return err
	}
	_, err = s.EvaluateAchievements(ctx, q, task.UserID)
	return err
}

// RecordSessionCompleted folds a completed focus session into the user's
// totals and the day's aggregate. A session is only ever counted once.
func (s *StatsService) RecordSessionCompleted(ctx context.Context, q database.Querier, session *models.FocusSession, date string) error {
	delta := models.DailyDelta{
		FocusSessionsCount:     1,
		TotalFocusMinutes:      session.DurationMinutes,
		CompletedFocusSessions: 1,
		XPEarned:               session.XPEarned,
	}
	if session.FlowRating != nil {
		delta.FlowRatingSum = *session.FlowRating
		delta.FlowRatingCount = 1
	}

	key := fmt.Sprintf("focus_session:%d", session.ID)
	applied, err := s.applyEvent(ctx, q, session.UserID, key, date, delta)
	if err != nil || !applied {
		return err
	}

	stats := s.stats.WithTx(q)
	if _, err := stats.EnsureUserStats(ctx, session.UserID, s.clock.Now()); err != nil {
		return err
	}
	userDelta := repository.UserStatsDelta{XP: session.XPEarned, FocusMinutes: session.DurationMinutes}
	if err := stats.IncrementUserStats(ctx, session.UserID, userDelta, s.clock.Now()); err != nil {
		return err
	}
	if err := s.syncLevel(ctx, q, session.UserID); err != nil {
		return err
	}
	_, err = s.EvaluateAchievements(ctx, q, session.UserID)
	return err
}

// RefreshDay recomputes the completion rate of date from the tasks due that
// day and keeps the streak in step with it. A qualifying day after the last
// streak day extends the run. Any other change to whether a day qualifies
// rebuilds the streak from the stored daily rates.
func (s *StatsService) RefreshDay(ctx context.Context, q database.Querier, userID int64, date string) error {
	total, done, err := s.tasks.WithTx(q).CountDueOn(ctx, userID, date)
	if err != nil {
		return err
	}
	rate := gamification.CompletionRate(done, total)
	qualified := gamification.Qualifies(float64(rate), s.threshold)

	stats := s.stats.WithTx(q)
	at := s.clock.Now()
	day, err := stats.EnsureDailyStats(ctx, userID, date, at)
	if err != nil {
		return err
	}
	if day.CompletionRate != rate || day.DailyGoalMet != qualified {
		if err := stats.SetCompletionRate(ctx, userID, date, rate, qualified, at); err != nil {
			return err
		}
	}

	us, err := stats.EnsureUserStats(ctx, userID, at)
	if err != nil {
		return err
	}
	if qualified && (us.LastStreakDate == nil || date > *us.LastStreakDate) {
		return s.advanceStreak(ctx, q, us, date)
	}
	if day.DailyGoalMet == qualified {
		return nil
	}
	_, err = s.rebuildStreak(ctx, q, userID)
	return err
}

func (s *StatsService) advanceStreak(ctx context.Context, q database.Querier, us *models.UserStats, date string) error {
	day, err := models.ParseDate(date)
	if err != nil {
		return fmt.Errorf("invalid stats date %q: %w", date, err)
	}

	before := streakState(us)
	after := before.Advance(day)
	if after.Current == before.Current && after.Longest == before.Longest && sameDate(after.LastDate, before.LastDate) {
		return nil
	}

	last := models.FormatDate(*after.LastDate)
	if err := s.stats.WithTx(q).SetStreak(ctx, us.UserID, after.Current, after.Longest, &last, s.clock.Now()); err != nil {
		return err
	}
	_, err = s.EvaluateAchievements(ctx, q, us.UserID)
	return err
}

// rebuildStreak replaces the stored streak with the one derived from every
// daily completion rate. Achievements already unlocked stay unlocked.
func (s *StatsService) rebuildStreak(ctx context.Context, q database.Querier, userID int64) (gamification.StreakState, error) {
	stats := s.stats.WithTx(q)
	rows, err := stats.ListDailyStats(ctx, userID, "", "")
	if err != nil {
		return gamification.StreakState{}, err
	}

	state := gamification.Recompute(dayCompletions(rows), s.threshold)
	var last *string
	if state.LastDate != nil {
		v := models.FormatDate(*state.LastDate)
		last = &v
	}
	if err := stats.SetStreak(ctx, userID, state.Current, state.Longest, last, s.clock.Now()); err != nil {
		return gamification.StreakState{}, err
	}
	return state, nil
}

// dayCompletions converts daily rows to the engine's input, skipping rows
// whose date cannot be parsed.
func dayCompletions(rows []models.DailyStats) []gamification.DayCompletion {
	days := make([]gamification.DayCompletion, 0, len(rows))
	for _, row := range rows {
		d, err := models.ParseDate(row.Date)
		if err != nil {
			log.Printf("Skipping daily stats row %d with bad date %q", row.ID, row.Date)
			continue
		}
		days = append(days, gamification.DayCompletion{Date: d, Rate: float64(row.CompletionRate)})
	}
	return days
}

func streakState(us *models.UserStats) gamification.StreakState {
	state := gamification.StreakState{Current: us.CurrentStreak, Longest: us.LongestStreak}
	if us.LastStreakDate != nil {
		if d, err := models.ParseDate(*us.LastStreakDate); err == nil {
			state.LastDate = &d
		}
	}
	return state
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// syncLevel stores the level derived from the user's current XP
func (s *StatsService) syncLevel(ctx context.Context, q database.Querier, userID int64) error {
	stats := s.stats.WithTx(q)
	us, err := stats.GetUserStats(ctx, userID)
	if err != nil || us == nil {
		return err
	}
	if level := gamification.LevelForXP(us.TotalXP); level != us.Level {
		return stats.SetLevel(ctx, userID, level)
	}
	return nil
}

// EvaluateAchievements updates progress on every locked achievement and
// unlocks those whose criteria are met, crediting their XP reward. Rewards
// can raise the level, which can unlock level achievements, so evaluation
// repeats until nothing new unlocks.
func (s *StatsService) EvaluateAchievements(ctx context.Context, q database.Querier, userID int64) ([]models.Achievement, error) {
	stats := s.stats.WithTx(q)
	achRepo := s.achievements.WithTx(q)

	catalog, err := achRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	completedSessions, err := s.sessions.WithTx(q).CountCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}

	var unlocked []models.Achievement
	for {
		at := s.clock.Now()
		us, err := stats.EnsureUserStats(ctx, userID, at)
		if err != nil {
			return nil, err
		}
		owned, err := achRepo.ListForUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		totals := gamification.TotalsFromStats(us, completedSessions)
		reward, count := 0, 0
		for _, a := range catalog {
			ua, ok := owned[a.ID]
			if ok && ua.UnlockedAt != nil {
				continue
			}
			progress := gamification.AchievementProgress(a, totals)
			if !gamification.AchievementUnlocked(a, totals) {
				if !ok || ua.Progress != progress {
					if err := achRepo.SetProgress(ctx, userID, a.ID, progress, at); err != nil {
						return nil, err
					}
				}
				continue
			}
			fresh, err := achRepo.Unlock(ctx, userID, a.ID, progress, at)
			if err != nil {
				return nil, err
			}
			if fresh {
				log.Printf("User %d unlocked achievement %q", userID, a.Name)
				unlocked = append(unlocked, a)
				reward += a.XPReward
				count++
			}
		}

		if count == 0 {
			return unlocked, nil
		}

		today := s.Today()
		if _, err := stats.EnsureDailyStats(ctx, userID, today, at); err != nil {
			return nil, err
		}
		if err := stats.ApplyDailyDelta(ctx, userID, today, models.DailyDelta{XPEarned: reward, AchievementsUnlocked: count}, at); err != nil {
			return nil, err
		}
		if err := stats.IncrementUserStats(ctx, userID, repository.UserStatsDelta{XP: reward}, at); err != nil {
			return nil, err
		}
		if err := s.syncLevel(ctx, q, userID); err != nil {
			return nil, err
		}
	}
}

// RecomputeStreaks rebuilds the user's streak from the stored daily
// completion rates, correcting any drift in the incremental values.
func (s *StatsService) RecomputeStreaks(ctx context.Context, userID int64) (*models.UserStats, error) {
	var result *models.UserStats
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		stats := s.stats.WithTx(tx)
		if _, err := stats.EnsureUserStats(ctx, userID, s.clock.Now()); err != nil {
			return err
		}
		if _, err := s.rebuildStreak(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.syncLevel(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := s.EvaluateAchievements(ctx, tx, userID); err != nil {
			return err
		}
		result, err = stats.GetUserStats(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recompute streaks for user %d: %w", userID, err)
	}
	return result, nil
}

// RecomputeAllStreaks runs RecomputeStreaks for every user with stats
func (s *StatsService) RecomputeAllStreaks(ctx context.Context) (int, error) {
	ids, err := s.stats.ListUserIDsWithStats(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.RecomputeStreaks(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// StatsView adds the derived level figures and reports the streak as of
// today: a run whose last day is before yesterday counts as broken.
func (s *StatsService) StatsView(us *models.UserStats) models.StatsView {
	view := models.StatsView{UserStats: *us}
	view.Level = gamification.LevelForXP(us.TotalXP)
	view.CurrentStreak = streakState(us).Effective(s.clock.Now())
	view.XPToNextLevel = gamification.XPToNextLevel(view.Level)
	view.LevelProgress = gamification.LevelProgress(us.TotalXP)
	return view
}

// DailyStats returns the aggregates between from and to inclusive
func (s *StatsService) DailyStats(ctx context.Context, userID int64, from, to string) ([]models.DailyStats, error) {
	return s.stats.ListDailyStats(ctx, userID, from, to)
}
