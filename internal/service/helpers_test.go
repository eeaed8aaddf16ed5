package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/database/databasetest"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/security"

	"github.com/stretchr/testify/require"
)

// testEnv wires every service against one migrated SQLite database and a
// clock the test can move.
type testEnv struct {
	db           *database.DB
	clock        *clock.Fixed
	audit        *AuditService
	stats        *StatsService
	billing      *BillingService
	boards       *BoardService
	tasks        *TaskService
	planner      *PlannerService
	gamification *GamificationService
	history      *HistoryService
	plans        *PlanService
	teams        *TeamService
	export       *ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := databasetest.New(t)
	clk := &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	audit := NewAuditService(repository.NewAuditRepository(db), clk)
	stats := NewStatsService(db, clk, 0)
	billing := NewBillingService(repository.NewSubscriptionRepository(db), audit, clk, 3)
	boards := NewBoardService(db, billing, audit, clk)
	gam := NewGamificationService(db, stats, clk)

	return &testEnv{
		db:           db,
		clock:        clk,
		audit:        audit,
		stats:        stats,
		billing:      billing,
		boards:       boards,
		tasks:        NewTaskService(db, stats, boards, audit, clk),
		planner:      NewPlannerService(db, stats, clk),
		gamification: gam,
		history:      NewHistoryService(repository.NewHistoryRepository(db), stats, clk),
		plans:        NewPlanService(repository.NewPlanRepository(db), repository.NewTaskRepository(db), clk),
		teams:        NewTeamService(db, audit, clk),
		export:       NewExportService(db, stats, gam, clk),
	}
}

func (e *testEnv) user(t *testing.T, email string) int64 {
	t.Helper()
	return databasetest.CreateUser(t, e.db, email)
}

func (e *testEnv) today() string {
	return models.FormatDate(e.clock.Now())
}

func (e *testEnv) advanceDays(n int) {
	e.clock.T = e.clock.T.AddDate(0, 0, n)
}

func (e *testEnv) dateOffset(days int) string {
	return models.FormatDate(e.clock.Now().AddDate(0, 0, days))
}

func (e *testEnv) createTask(t *testing.T, userID int64, name, status string, due *string) *models.TaskWithSubtasks {
	t.Helper()
	task, err := e.tasks.Create(context.Background(), userID, TaskInput{Name: name, Status: status, DueDate: due})
	require.NoError(t, err)
	return task
}

func (e *testEnv) dailyStats(t *testing.T, userID int64, date string) *models.DailyStats {
	t.Helper()
	rows, err := e.stats.DailyStats(context.Background(), userID, date, date)
	require.NoError(t, err)
	require.Len(t, rows, 1, "expected one daily stats row for %s", date)
	return &rows[0]
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

// fakeMailer records the tokens it is asked to send
type fakeMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verification: map[string]string{}, reset: map[string]string{}}
}

func (m *fakeMailer) SendVerificationEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[toEmail] = token
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[toEmail] = token
	return nil
}

func (m *fakeMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *fakeMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

func newTestAuthService(t *testing.T, env *testEnv, mailer Mailer) *AuthService {
	t.Helper()
	tokens := security.NewTokenIssuer("test-secret", time.Hour, env.clock.Now)
	return NewAuthService(repository.NewUserRepository(env.db), tokens, mailer, env.audit, env.clock, AuthConfig{
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	})
}
