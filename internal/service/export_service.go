package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/gamification"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
)

const (
	exportVersion     = "1.0"
	exportPageSize    = 500
	exportMaxSessions = 100000
)

// ExportData is the JSON document written for one user
type ExportData struct {
	Version      string                     `json:"version"`
	ExportedAt   time.Time                  `json:"exported_at"`
	DatabaseType string                     `json:"database_type"`
	User         models.User                `json:"user"`
	Stats        models.StatsView           `json:"stats"`
	Tasks        []models.TaskWithSubtasks  `json:"tasks"`
	Plans        []models.Plan              `json:"plans"`
	Sessions     []models.FocusSession      `json:"focus_sessions"`
	DailyStats   []models.DailyStats        `json:"daily_stats"`
	Achievements []models.AchievementStatus `json:"achievements"`
}

// ExportService dumps a user's planner data
type ExportService struct {
	db           *database.DB
	users        *repository.UserRepository
	tasks        *repository.TaskRepository
	plans        *repository.PlanRepository
	sessions     *repository.FocusSessionRepository
	stats        *StatsService
	gamification *GamificationService
	clock        clock.Clock
}

// NewExportService creates a new export service
func NewExportService(db *database.DB, stats *StatsService, gamification *GamificationService, c clock.Clock) *ExportService {
	return &ExportService{
		db:           db,
		users:        repository.NewUserRepository(db),
		tasks:        repository.NewTaskRepository(db),
		plans:        repository.NewPlanRepository(db),
		sessions:     repository.NewFocusSessionRepository(db),
		stats:        stats,
		gamification: gamification,
		clock:        c,
	}
}

// Collect gathers everything that belongs to userID
func (s *ExportService) Collect(ctx context.Context, userID int64) (*ExportData, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	data := &ExportData{
		Version:      exportVersion,
		ExportedAt:   s.clock.Now(),
		DatabaseType: s.db.GetDialect().DriverName(),
		User:         *user,
	}

	us, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to export stats: %w", err)
	}
	data.Stats = s.stats.StatsView(us)

	if data.Tasks, err = s.exportTasks(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to export tasks: %w", err)
	}
	if data.Plans, err = s.exportPlans(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to export plans: %w", err)
	}
	if data.Sessions, err = s.sessions.List(ctx, userID, exportMaxSessions); err != nil {
		return nil, fmt.Errorf("failed to export focus sessions: %w", err)
	}
	if data.DailyStats, err = s.stats.DailyStats(ctx, userID, "", ""); err != nil {
		return nil, fmt.Errorf("failed to export daily stats: %w", err)
	}
	if data.Achievements, err = s.gamification.Achievements(ctx, userID, false); err != nil {
		return nil, fmt.Errorf("failed to export achievements: %w", err)
	}
	return data, nil
}

func (s *ExportService) exportTasks(ctx context.Context, userID int64) ([]models.TaskWithSubtasks, error) {
	tasks, err := s.tasks.List(ctx, userID, models.TaskFilter{})
	if err != nil {
		return nil, err
	}
	result := make([]models.TaskWithSubtasks, 0, len(tasks))
	for _, task := range tasks {
		subtasks, err := s.tasks.ListSubtasks(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.TaskWithSubtasks{
			Task:     task,
			Subtasks: subtasks,
			Progress: gamification.TaskProgress(&task, subtasks),
		})
	}
	return result, nil
}

func (s *ExportService) exportPlans(ctx context.Context, userID int64) ([]models.Plan, error) {
	all := []models.Plan{}
	for offset := 0; ; offset += exportPageSize {
		page, err := s.plans.List(ctx, userID, "", "", exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

// Export writes the user's data as indented JSON to w
func (s *ExportService) Export(ctx context.Context, userID int64, w io.Writer) error {
	data, err := s.Collect(ctx, userID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	log.Printf("Exported user %d: %d tasks, %d plans, %d sessions, %d daily stats",
		userID, len(data.Tasks), len(data.Plans), len(data.Sessions), len(data.DailyStats))
	return nil
}

// ExportToFile writes the user's data to outputPath
func (s *ExportService) ExportToFile(ctx context.Context, userID int64, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.Export(ctx, userID, file); err != nil {
		return err
	}
	log.Printf("Export written to %s", outputPath)
	return nil
}
