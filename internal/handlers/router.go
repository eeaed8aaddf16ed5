package handlers

import (
	"net/http"
	"strings"

	"deepfocus/internal/security"
	"deepfocus/internal/service"
)

// Services are the dependencies of the API
type Services struct {
	Auth         *service.AuthService
	Tasks        *service.TaskService
	Boards       *service.BoardService
	Plans        *service.PlanService
	Teams        *service.TeamService
	Gamification *service.GamificationService
	History      *service.HistoryService
	Planner      *service.PlannerService
	Billing      *service.BillingService
	Audit        *service.AuditService
	Export       *service.ExportService
}

// RouterConfig carries the HTTP-level settings. AuthLimiter throttles the
// credential endpoints and may be nil.
type RouterConfig struct {
	AllowedOrigins       []string
	FrontendURL          string
	OAuthRedirectBaseURL string
	StateSecret          string
	OAuthProviders       map[string]OAuthProvider
	AuthLimiter          *security.RateLimiter
	TrustProxy           bool
}

// NewRouter registers every /api/v1 route and wraps the mux in the CORS and
// logging middleware
func NewRouter(s Services, cfg RouterConfig) http.Handler {
	mw := NewMiddleware(s.Auth, cfg.AuthLimiter, cfg.AllowedOrigins, cfg.TrustProxy)

	authHandler := NewAuthHandler(s.Auth, cfg.OAuthProviders, security.NewStateSigner(cfg.StateSecret), cfg.FrontendURL, cfg.OAuthRedirectBaseURL)
	taskHandler := NewTaskHandler(s.Tasks)
	boardHandler := NewBoardHandler(s.Boards)
	planHandler := NewPlanHandler(s.Plans)
	teamHandler := NewTeamHandler(s.Teams)
	gamificationHandler := NewGamificationHandler(s.Gamification)
	historyHandler := NewHistoryHandler(s.History)
	plannerHandler := NewPlannerHandler(s.Planner)
	accountHandler := NewAccountHandler(s.Billing, s.Audit, s.Export)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+APIPrefix+path, h)
	}
	auth := mw.RequireAuth
	limited := mw.RateLimit

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Auth
	handle("POST /auth/signup", limited(authHandler.Signup))
	handle("POST /auth/login", limited(authHandler.Login))
	handle("POST /auth/login/json", limited(authHandler.Login))
	handle("GET /auth/me", auth(authHandler.Me))
	handle("PATCH /auth/me", auth(authHandler.UpdateMe))
	handle("POST /auth/verify-email", limited(authHandler.VerifyEmail))
	handle("POST /auth/resend-verification", limited(authHandler.ResendVerification))
	handle("POST /auth/forgot-password", limited(authHandler.ForgotPassword))
	handle("POST /auth/reset-password", limited(authHandler.ResetPassword))
	handle("GET /auth/{provider}/start", authHandler.StartOAuth)
	handle("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Tasks
	handle("GET /tasks", auth(taskHandler.List))
	handle("POST /tasks", auth(taskHandler.Create))
	handle("GET /tasks/{taskID}", auth(taskHandler.Get))
	handle("PATCH /tasks/{taskID}", auth(taskHandler.Update))
	handle("DELETE /tasks/{taskID}", auth(taskHandler.Delete))
	handle("GET /tasks/{taskID}/subtasks", auth(taskHandler.ListSubtasks))
	handle("POST /tasks/{taskID}/subtasks", auth(taskHandler.CreateSubtask))
	handle("PATCH /tasks/{taskID}/subtasks/{subtaskID}", auth(taskHandler.UpdateSubtask))
	handle("DELETE /tasks/{taskID}/subtasks/{subtaskID}", auth(taskHandler.DeleteSubtask))

	// Boards
	handle("GET /boards", auth(boardHandler.List))
	handle("POST /boards", auth(boardHandler.Create))
	handle("GET /boards/{boardID}", auth(boardHandler.Get))
	handle("PATCH /boards/{boardID}", auth(boardHandler.Update))
	handle("DELETE /boards/{boardID}", auth(boardHandler.Delete))
	handle("GET /boards/{boardID}/groups", auth(boardHandler.ListGroups))
	handle("POST /boards/{boardID}/groups", auth(boardHandler.CreateGroup))
	handle("PATCH /boards/groups/{groupID}", auth(boardHandler.UpdateGroup))
	handle("DELETE /boards/groups/{groupID}", auth(boardHandler.DeleteGroup))

	// Plans
	handle("GET /plans", auth(planHandler.List))
	handle("POST /plans", auth(planHandler.Create))
	handle("GET /plans/{date}", auth(planHandler.Get))
	handle("PATCH /plans/{date}", auth(planHandler.Update))
	handle("DELETE /plans/{date}", auth(planHandler.Delete))

	// Teams
	handle("GET /teams", auth(teamHandler.List))
	handle("POST /teams", auth(teamHandler.Create))
	handle("GET /teams/{teamID}", auth(teamHandler.Get))
	handle("POST /teams/{teamID}/members", auth(teamHandler.AddMember))
	handle("DELETE /teams/{teamID}/members/{userID}", auth(teamHandler.RemoveMember))

	// Gamification
	handle("GET /gamification/stats", auth(gamificationHandler.Stats))
	handle("GET /gamification/achievements", auth(gamificationHandler.Achievements))
	handle("GET /gamification/sessions", auth(gamificationHandler.ListSessions))
	handle("POST /gamification/sessions", auth(gamificationHandler.StartSession))
	handle("GET /gamification/sessions/{sessionID}", auth(gamificationHandler.GetSession))
	handle("PATCH /gamification/sessions/{sessionID}", auth(gamificationHandler.UpdateSession))
	handle("GET /gamification/summary", auth(gamificationHandler.Summary))

	// History
	handle("GET /history/tasks", auth(historyHandler.Tasks))
	handle("GET /history/daily-stats", auth(historyHandler.DailyStats))
	handle("GET /history/streak", auth(historyHandler.Streak))

	// Planner
	handle("POST /planner/reschedule-overdue", auth(plannerHandler.RescheduleOverdue))
	handle("GET /planner/overdue", auth(plannerHandler.OverdueCount))

	// Account
	handle("GET /billing/subscription", auth(accountHandler.Subscription))
	handle("GET /account/audit-log", auth(accountHandler.AuditLog))
	handle("GET /account/export", auth(accountHandler.Export))

	return Logging(mw.CORS(mux))
}
