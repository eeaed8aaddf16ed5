package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/config"
	"deepfocus/internal/database"
	"deepfocus/internal/handlers"
	"deepfocus/internal/repository"
	"deepfocus/internal/security"
	"deepfocus/internal/service"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.FrontendURL, cfg.EmailDebug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	clk := clock.System{}

	// Initialize services
	auditService := service.NewAuditService(repository.NewAuditRepository(db), clk)
	statsService := service.NewStatsService(db, clk, cfg.StreakThreshold)
	billingService := service.NewBillingService(repository.NewSubscriptionRepository(db), auditService, clk, cfg.FreeBoardLimit)
	boardService := service.NewBoardService(db, billingService, auditService, clk)
	gamificationService := service.NewGamificationService(db, statsService, clk)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, clk.Now)

	services := handlers.Services{
		Auth: service.NewAuthService(repository.NewUserRepository(db), tokens, emailService, auditService, clk, service.AuthConfig{
			VerificationTTL: cfg.EmailVerificationTTL,
			ResetTTL:        cfg.PasswordResetTTL,
		}),
		Tasks:        service.NewTaskService(db, statsService, boardService, auditService, clk),
		Boards:       boardService,
		Plans:        service.NewPlanService(repository.NewPlanRepository(db), repository.NewTaskRepository(db), clk),
		Teams:        service.NewTeamService(db, auditService, clk),
		Gamification: gamificationService,
		History:      service.NewHistoryService(repository.NewHistoryRepository(db), statsService, clk),
		Planner:      service.NewPlannerService(db, statsService, clk),
		Billing:      billingService,
		Audit:        auditService,
		Export:       service.NewExportService(db, statsService, gamificationService, clk),
	}

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			JWKSURL:     "https://www.googleapis.com/oauth2/v3/certs",
			Issuers:     []string{"https://accounts.google.com", "accounts.google.com"},
		},
	}

	authLimiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer authLimiter.Close()

	handler := handlers.NewRouter(services, handlers.RouterConfig{
		AllowedOrigins:       cfg.AllowedOrigins,
		FrontendURL:          cfg.FrontendURL,
		OAuthRedirectBaseURL: cfg.OAuthRedirectBaseURL,
		StateSecret:          cfg.JWTSecret,
		OAuthProviders:       oauthProviders,
		AuthLimiter:          authLimiter,
		TrustProxy:           cfg.TrustProxy,
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	go reconcileStreaks(jobsCtx, statsService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// reconcileStreaks periodically rebuilds every user's streak from the daily
// aggregates, so a day that stopped qualifying after the fact is corrected
func reconcileStreaks(ctx context.Context, statsService *service.StatsService) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := statsService.RecomputeAllStreaks(ctx)
			if err != nil {
				log.Printf("Error reconciling streaks: %v", err)
				continue
			}
			log.Printf("Reconciled streaks for %d users", n)
		}
	}
}
