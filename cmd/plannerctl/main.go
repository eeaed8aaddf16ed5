package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"deepfocus/internal/clock"
	"deepfocus/internal/config"
	"deepfocus/internal/database"
	"deepfocus/internal/models"
	"deepfocus/internal/repository"
	"deepfocus/internal/service"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}

// toolkit is the slice of the service layer the CLI needs
type toolkit struct {
	db       *database.DB
	users    *repository.UserRepository
	stats    *service.StatsService
	planner  *service.PlannerService
	billing  *service.BillingService
	exporter *service.ExportService
}

func newToolkit(db *database.DB, cfg *config.Config) *toolkit {
	clk := clock.System{}
	audit := service.NewAuditService(repository.NewAuditRepository(db), clk)
	stats := service.NewStatsService(db, clk, cfg.StreakThreshold)
	return &toolkit{
		db:       db,
		users:    repository.NewUserRepository(db),
		stats:    stats,
		planner:  service.NewPlannerService(db, stats, clk),
		billing:  service.NewBillingService(repository.NewSubscriptionRepository(db), audit, clk, cfg.FreeBoardLimit),
		exporter: service.NewExportService(db, stats, service.NewGamificationService(db, stats, clk), clk),
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ContinueOnError)

	rescheduleCmd := flag.NewFlagSet("reschedule", flag.ContinueOnError)
	rescheduleUser := rescheduleCmd.Int64("user", 0, "User ID (required)")

	recomputeCmd := flag.NewFlagSet("recompute-streaks", flag.ContinueOnError)
	recomputeUser := recomputeCmd.Int64("user", 0, "User ID (default: every user)")

	setPlanCmd := flag.NewFlagSet("set-plan", flag.ContinueOnError)
	setPlanUser := setPlanCmd.Int64("user", 0, "User ID (required)")
	setPlanPlan := setPlanCmd.String("plan", "", "Plan: free, pro or team (required)")
	setPlanUntil := setPlanCmd.String("until", "", "Last day of the billing period, YYYY-MM-DD (default: open-ended)")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportUser := exportCmd.Int64("user", 0, "User ID (required)")
	exportOutput := exportCmd.String("output", "", "Output file path, or - for stdout (default: export_<user>_YYYYMMDD_HHMMSS.json)")

	var fs *flag.FlagSet
	switch args[0] {
	case "migrate":
		fs = migrateCmd
	case "reschedule":
		fs = rescheduleCmd
	case "recompute-streaks":
		fs = recomputeCmd
	case "set-plan":
		fs = setPlanCmd
	case "export":
		fs = exportCmd
	default:
		return errUsage
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	// Load configuration
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	tk := newToolkit(db, cfg)

	switch args[0] {
	case "migrate":
		fmt.Fprintf(stdout, "Migrations applied (%s)\n", db.GetDialect().DriverName())
		return nil
	case "reschedule":
		if err := tk.requireUser(ctx, *rescheduleUser); err != nil {
			return err
		}
		return tk.reschedule(ctx, stdout, *rescheduleUser)
	case "recompute-streaks":
		return tk.recomputeStreaks(ctx, stdout, *recomputeUser)
	case "set-plan":
		if err := tk.requireUser(ctx, *setPlanUser); err != nil {
			return err
		}
		return tk.setPlan(ctx, stdout, *setPlanUser, *setPlanPlan, *setPlanUntil)
	default:
		if err := tk.requireUser(ctx, *exportUser); err != nil {
			return err
		}
		return tk.export(ctx, stdout, *exportUser, *exportOutput)
	}
}

func (tk *toolkit) requireUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return errors.New("-user is required")
	}
	user, err := tk.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

func (tk *toolkit) reschedule(ctx context.Context, stdout io.Writer, userID int64) error {
	moved, err := tk.planner.RescheduleOverdue(ctx, userID)
	if err != nil {
		return err
	}
	for _, task := range moved {
		fmt.Fprintf(stdout, "  #%d %s\n", task.ID, task.Name)
	}
	fmt.Fprintf(stdout, "Rescheduled %d overdue tasks to today\n", len(moved))
	return nil
}

func (tk *toolkit) recomputeStreaks(ctx context.Context, stdout io.Writer, userID int64) error {
	if userID == 0 {
		n, err := tk.stats.RecomputeAllStreaks(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Recomputed streaks for %d users\n", n)
		return nil
	}

	if err := tk.requireUser(ctx, userID); err != nil {
		return err
	}
	us, err := tk.stats.RecomputeStreaks(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "User %d: current streak %d, longest %d\n", userID, us.CurrentStreak, us.LongestStreak)
	return nil
}

func (tk *toolkit) setPlan(ctx context.Context, stdout io.Writer, userID int64, plan, until string) error {
	if plan == "" {
		return errors.New("-plan is required")
	}
	var periodEnd *time.Time
	if until != "" {
		day, err := models.ParseDate(until)
		if err != nil {
			return fmt.Errorf("invalid -until date %q", until)
		}
		end := day.Add(24*time.Hour - time.Second)
		periodEnd = &end
	}

	sub, err := tk.billing.SetPlan(ctx, userID, models.PlanID(plan), periodEnd)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "User %d is now on the %s plan\n", userID, sub.PlanID)
	return nil
}

func (tk *toolkit) export(ctx context.Context, stdout io.Writer, userID int64, outputPath string) error {
	if outputPath == "-" {
		return tk.exporter.Export(ctx, userID, stdout)
	}

	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("export_%d_%s.json", userID, timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := tk.exporter.ExportToFile(ctx, userID, outputPath); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported user %d to %s (%.1f KB)\n", userID, outputPath, float64(fileInfo.Size())/1024)
	return nil
}

func printUsage() {
	fmt.Println("Deep Focus Planner maintenance tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  plannerctl <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate                               Apply database migrations")
	fmt.Println("  reschedule -user N                    Move a user's overdue tasks to today")
	fmt.Println("  recompute-streaks [-user N]           Rebuild streaks from daily stats")
	fmt.Println("  set-plan -user N -plan P [-until D]   Change a user's subscription plan")
	fmt.Println("  export -user N [-output file]         Write a user's data as JSON")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./planner.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
