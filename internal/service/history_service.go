package service

import (
	"context"
	"fmt"
	"log"

	"deepfocus/internal/clock"
	"deepfocus/internal/gamification"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/validation"
)

const (
	DefaultDailyStatsDays = 30
	StreakCalendarDays    = 90
)

// HistoryService serves the read side of task history and daily aggregates
type HistoryService struct {
	history *repository.HistoryRepository
	stats   *StatsService
	clock   clock.Clock
}

// NewHistoryService creates a new history service
func NewHistoryService(history *repository.HistoryRepository, stats *StatsService, c clock.Clock) *HistoryService {
	return &HistoryService{history: history, stats: stats, clock: c}
}

// TaskHistory returns the user's history entries, newest first
func (s *HistoryService) TaskHistory(ctx context.Context, userID int64, filter models.HistoryFilter) ([]models.TaskHistory, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.history.List(ctx, userID, filter)
}

// DailyStats returns the aggregates between from and to inclusive. An empty
// to means today and an empty from means DefaultDailyStatsDays before to.
func (s *HistoryService) DailyStats(ctx context.Context, userID int64, from, to string) ([]models.DailyStats, error) {
	if to == "" {
		to = models.FormatDate(s.clock.Now())
	} else if err := validation.ValidateDate("end_date", to); err != nil {
		return nil, err
	}
	if from == "" {
		end, _ := models.ParseDate(to)
		from = models.FormatDate(end.AddDate(0, 0, -DefaultDailyStatsDays))
	} else if err := validation.ValidateDate("start_date", from); err != nil {
		return nil, err
	}
	if from > to {
		return nil, validation.ValidationError{Field: "start_date", Message: "must not be after end_date"}
	}
	return s.stats.DailyStats(ctx, userID, from, to)
}

// Streak returns the streak figures and a day-by-day activity calendar of
// the last StreakCalendarDays days, gaps filled with empty days. The current
// streak is derived from the daily rates; a mismatch with the stored value is
// logged.
func (s *HistoryService) Streak(ctx context.Context, userID int64) (*models.StreakDetails, error) {
	us, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.stats.DailyStats(ctx, userID, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}

	threshold := s.stats.Threshold()
	days := make([]gamification.DayCompletion, 0, len(rows))
	byDate := make(map[string]models.DailyStats, len(rows))
	for _, row := range rows {
		d, err := models.ParseDate(row.Date)
		if err != nil {
			continue
		}
		days = append(days, gamification.DayCompletion{Date: d, Rate: float64(row.CompletionRate)})
		byDate[row.Date] = row
	}

	today := clock.Today(s.clock)
	current := gamification.CurrentStreak(days, threshold, today)
	if stored := s.stats.StatsView(us).CurrentStreak; stored != current {
		log.Printf("Streak for user %d is %d in user stats but %d from daily stats", userID, stored, current)
	}
	var lastActivity *string
	if us.LastActivityAt != nil {
		v := models.FormatDate(*us.LastActivityAt)
		lastActivity = &v
	}
	details := &models.StreakDetails{
		CurrentStreak:    current,
		LongestStreak:    us.LongestStreak,
		BestStreak:       gamification.BestStreak(days, threshold),
		Threshold:        threshold,
		LastActivityDate: lastActivity,
		Calendar:         make([]models.StreakDay, 0, StreakCalendarDays+1),
	}
	for i := StreakCalendarDays; i >= 0; i-- {
		date := models.FormatDate(today.AddDate(0, 0, -i))
		day := models.StreakDay{Date: date}
		if row, ok := byDate[date]; ok {
			day.CompletionRate = row.CompletionRate
			day.TasksCompleted = row.TasksCompleted
			day.FocusMinutes = row.TotalFocusMinutes
			day.XPEarned = row.XPEarned
			day.HasActivity = row.TasksCompleted > 0 || row.TotalFocusMinutes > 0
			day.Qualified = gamification.Qualifies(float64(row.CompletionRate), threshold)
		}
		details.Calendar = append(details.Calendar, day)
	}
	return details, nil
}
