package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/database"
	"deepfocus/internal/database/databasetest"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/security"
	"deepfocus/internal/service"

	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func (m *recordingMailer) SendVerificationEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[toEmail] = token
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[toEmail] = token
	return nil
}

func (m *recordingMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *recordingMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

type testAPI struct {
	handler http.Handler
	db      *database.DB
	clock   *clock.Fixed
	mailer  *recordingMailer
}

// newTestAPI builds the full router over a fresh database. opts may adjust
// the router config before it is built.
func newTestAPI(t *testing.T, opts ...func(*RouterConfig)) *testAPI {
	t.Helper()
	db := databasetest.New(t)
	clk := &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	mailer := &recordingMailer{verification: map[string]string{}, reset: map[string]string{}}

	audit := service.NewAuditService(repository.NewAuditRepository(db), clk)
	stats := service.NewStatsService(db, clk, 80)
	billing := service.NewBillingService(repository.NewSubscriptionRepository(db), audit, clk, 3)
	boards := service.NewBoardService(db, billing, audit, clk)
	gam := service.NewGamificationService(db, stats, clk)
	tokens := security.NewTokenIssuer("test-secret", time.Hour, clk.Now)

	services := Services{
		Auth: service.NewAuthService(repository.NewUserRepository(db), tokens, mailer, audit, clk, service.AuthConfig{
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		}),
		Tasks:        service.NewTaskService(db, stats, boards, audit, clk),
		Boards:       boards,
		Plans:        service.NewPlanService(repository.NewPlanRepository(db), repository.NewTaskRepository(db), clk),
		Teams:        service.NewTeamService(db, audit, clk),
		Gamification: gam,
		History:      service.NewHistoryService(repository.NewHistoryRepository(db), stats, clk),
		Planner:      service.NewPlannerService(db, stats, clk),
		Billing:      billing,
		Audit:        audit,
		Export:       service.NewExportService(db, stats, gam, clk),
	}
	cfg := RouterConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		FrontendURL:    "http://localhost:3000",
		StateSecret:    "state-secret",
		OAuthProviders: map[string]OAuthProvider{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testAPI{
		handler: NewRouter(services, cfg),
		db:      db,
		clock:   clk,
		mailer:  mailer,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, APIPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// login signs up email and returns a bearer token for it
func (a *testAPI) login(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": email, "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[service.LoginResult](t, rec).AccessToken
}

func (a *testAPI) today() string {
	return models.FormatDate(a.clock.Now())
}

func (a *testAPI) dateOffset(days int) string {
	return models.FormatDate(a.clock.Now().AddDate(0, 0, days))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
