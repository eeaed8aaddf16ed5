package service

import (
	"context"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/gamification"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/validation"
)

// GamificationService exposes XP, levels, achievements and focus sessions
type GamificationService struct {
	db           *database.DB
	sessions     *repository.FocusSessionRepository
	tasks        *repository.TaskRepository
	achievements *repository.AchievementRepository
	stats        *StatsService
	clock        clock.Clock
}

// NewGamificationService creates a new gamification service
func NewGamificationService(db *database.DB, stats *StatsService, c clock.Clock) *GamificationService {
	return &GamificationService{
		db:           db,
		sessions:     repository.NewFocusSessionRepository(db),
		tasks:        repository.NewTaskRepository(db),
		achievements: repository.NewAchievementRepository(db),
		stats:        stats,
		clock:        c,
	}
}

// SessionInput starts a focus session
type SessionInput struct {
	TaskID          *int64 `json:"task_id"`
	SessionType     string `json:"session_type"`
	PlannedDuration int    `json:"planned_duration"`
	FlowRating      *int   `json:"flow_rating"`
}

// SessionUpdate is a partial update of a running or finished session
type SessionUpdate struct {
	EndTime                *time.Time `json:"end_time"`
	DurationMinutes        *int       `json:"duration_minutes"`
	WasCompleted           *bool      `json:"was_completed"`
	TaskCompletedInSession *bool      `json:"task_completed_in_session"`
	Interruptions          *int       `json:"interruptions"`
	FlowRating             *int       `json:"flow_rating"`
}

// Stats returns the user's stats with the derived level figures
func (s *GamificationService) Stats(ctx context.Context, userID int64) (*models.StatsView, error) {
	us, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := s.stats.StatsView(us)
	return &view, nil
}

// Achievements lists the catalog with the user's progress. Locked entries
// are left out unless includeLocked is set.
func (s *GamificationService) Achievements(ctx context.Context, userID int64, includeLocked bool) ([]models.AchievementStatus, error) {
	catalog, err := s.achievements.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.achievements.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := []models.AchievementStatus{}
	for _, a := range catalog {
		status := models.AchievementStatus{Achievement: a}
		if ua, ok := owned[a.ID]; ok {
			status.Progress = ua.Progress
			status.UnlockedAt = ua.UnlockedAt
			status.Unlocked = ua.UnlockedAt != nil
		}
		if !status.Unlocked && !includeLocked {
			continue
		}
		result = append(result, status)
	}
	return result, nil
}

// StartSession opens a focus session
func (s *GamificationService) StartSession(ctx context.Context, userID int64, in SessionInput) (*models.FocusSession, error) {
	session := &models.FocusSession{
		UserID:          userID,
		TaskID:          in.TaskID,
		StartTime:       s.clock.Now(),
		SessionType:     models.SessionFocus,
		PlannedDuration: 25,
		FlowRating:      in.FlowRating,
		CreatedAt:       s.clock.Now(),
	}
	if in.SessionType != "" {
		session.SessionType = models.SessionType(in.SessionType)
		if err := validation.ValidateSessionType(session.SessionType); err != nil {
			return nil, err
		}
	}
	if in.PlannedDuration != 0 {
		if err := validation.ValidateNonNegative("planned_duration", in.PlannedDuration); err != nil {
			return nil, err
		}
		session.PlannedDuration = in.PlannedDuration
	}
	if in.FlowRating != nil {
		if err := validation.ValidateFlowRating(*in.FlowRating); err != nil {
			return nil, err
		}
	}
	if in.TaskID != nil {
		task, err := s.tasks.GetByID(ctx, *in.TaskID, userID)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, ErrNotFound
		}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSession applies in to a session. The first update that leaves the
// session completed awards its XP; later updates never award again.
func (s *GamificationService) UpdateSession(ctx context.Context, userID, sessionID int64, in SessionUpdate) (*models.FocusSession, error) {
	if in.FlowRating != nil {
		if err := validation.ValidateFlowRating(*in.FlowRating); err != nil {
			return nil, err
		}
	}
	if in.DurationMinutes != nil {
		if err := validation.ValidateNonNegative("duration_minutes", *in.DurationMinutes); err != nil {
			return nil, err
		}
	}
	if in.Interruptions != nil {
		if err := validation.ValidateNonNegative("interruptions", *in.Interruptions); err != nil {
			return nil, err
		}
	}

	var session *models.FocusSession
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		sessions := s.sessions.WithTx(tx)
		var err error
		session, err = sessions.GetByID(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNotFound
		}

		if in.EndTime != nil {
			session.EndTime = in.EndTime
		}
		if in.DurationMinutes != nil {
			session.DurationMinutes = *in.DurationMinutes
		}
		if in.WasCompleted != nil {
			session.WasCompleted = *in.WasCompleted
		}
		if in.TaskCompletedInSession != nil {
			session.TaskCompletedInSession = *in.TaskCompletedInSession
		}
		if in.Interruptions != nil {
			session.Interruptions = *in.Interruptions
		}
		if in.FlowRating != nil {
			session.FlowRating = in.FlowRating
		}

		award := gamification.ShouldAwardSessionXP(session.WasCompleted, session.XPEarned)
		if award {
			now := s.clock.Now()
			if session.EndTime == nil {
				session.EndTime = &now
			}
			if session.DurationMinutes == 0 {
				session.DurationMinutes = int(session.EndTime.Sub(session.StartTime).Minutes())
				if session.DurationMinutes < 0 {
					session.DurationMinutes = 0
				}
			}
			session.XPEarned = gamification.SessionXP(session.TaskCompletedInSession, session.FlowRating)
		}

		if err := sessions.Update(ctx, session); err != nil {
			return err
		}
		if !award {
			return nil
		}
		return s.stats.RecordSessionCompleted(ctx, tx, session, models.FormatDate(s.clock.Now()))
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns one of the user's sessions
func (s *GamificationService) GetSession(ctx context.Context, userID, sessionID int64) (*models.FocusSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	return session, nil
}

// ListSessions returns the user's most recent sessions
func (s *GamificationService) ListSessions(ctx context.Context, userID int64, limit int) ([]models.FocusSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.sessions.List(ctx, userID, limit)
}

// Summary is the dashboard overview
func (s *GamificationService) Summary(ctx context.Context, userID int64) (*models.DashboardSummary, error) {
	view, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &models.DashboardSummary{Stats: *view}

	today := s.stats.Today()
	stats := repository.NewStatsRepository(s.db)
	daily, err := stats.GetDailyStats(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if daily != nil {
		summary.Today = *daily
	} else {
		summary.Today = models.DailyStats{UserID: userID, Date: today}
	}

	if summary.RecentAchievements, err = s.achievements.ListRecentUnlocked(ctx, userID, 5); err != nil {
		return nil, err
	}
	if summary.TasksDueToday, summary.TasksDoneToday, err = s.tasks.CountDueOn(ctx, userID, today); err != nil {
		return nil, err
	}
	if summary.OverdueTasks, err = s.tasks.CountOverdue(ctx, userID, today); err != nil {
		return nil, err
	}
	return summary, nil
}
