package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/lexfield/regscout/internal/api/handlers"
	"github.com/lexfield/regscout/internal/config"
	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/scheduler"
	"github.com/lexfield/regscout/internal/search"
	"github.com/lexfield/regscout/internal/server"
	"github.com/lexfield/regscout/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and drain worker",
		Long:  "Start the regscout API server with the background crawl queue worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Disable the background drain worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var worker *scheduler.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		worker = scheduler.NewWorker(a.scheduler, cfg.PollInterval, cfg.DrainBatchSize)
		go worker.Start(ctx)
		log.Println("drain worker started")
	}

	jobHandler := handlers.NewJobHandler(a.scheduler, a.jobs)

	var searchHandler *handlers.SearchHandler
	if a.search != nil {
		searchHandler = handlers.NewSearchHandler(a.search)
	} else {
		searchHandler = handlers.NewSearchHandler(&noOpSearchService{})
	}

	auditHandler := handlers.NewAuditHandler(a.scraper.Audit())

	router := server.NewRouter(server.RouterConfig{
		JobHandler:    jobHandler,
		SearchHandler: searchHandler,
		AuditHandler:  auditHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noOpSearchService struct{}

func (s *noOpSearchService) SemanticSearch(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Result, error) {
	return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "search not configured: OPENAI_API_KEY required")
}

func (s *noOpSearchService) HybridSearch(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Result, error) {
	return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "search not configured: OPENAI_API_KEY required")
}

func (s *noOpSearchService) FindSimilar(ctx context.Context, chunkID string, limit int) ([]search.ChunkMatch, error) {
	return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "search not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Println("migrations applied")
	return nil
}
