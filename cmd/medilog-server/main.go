package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medilog/medilog-api/internal/config"
	"github.com/medilog/medilog-api/internal/domain/access"
	"github.com/medilog/medilog-api/internal/domain/assistant"
	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/domain/portal"
	"github.com/medilog/medilog-api/internal/domain/prescription"
	"github.com/medilog/medilog-api/internal/domain/records"
	"github.com/medilog/medilog-api/internal/platform/auth"
	"github.com/medilog/medilog-api/internal/platform/db"
	"github.com/medilog/medilog-api/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medilog-server",
		Short: "Clinical records portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Session tokens
	issuer, err := auth.NewTokenIssuer(cfg.SessionSigningKey, cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token issuer")
	}

	// Repositories and services
	doctorRepo := identity.NewDoctorRepoPG(pool)
	patientRepo := identity.NewPatientRepoPG(pool)
	grantRepo := access.NewRepoPG(pool)
	prescriptionRepo := prescription.NewRepoPG(pool)
	medicalRecordRepo := records.NewMedicalRecordRepoPG(pool)
	prescriptionRecordRepo := records.NewPrescriptionRecordRepoPG(pool)

	txRunner := db.NewTxRunner(pool)

	identitySvc := identity.NewService(doctorRepo, patientRepo, txRunner)
	accessSvc := access.NewService(identitySvc, grantRepo)
	prescriptionSvc := prescription.NewService(identitySvc, accessSvc, prescriptionRepo, txRunner)
	recordsSvc := records.NewService(identitySvc, medicalRecordRepo, prescriptionRecordRepo, txRunner, cfg.MaxUploadBytes)

	assistantClient := assistant.NewHTTPClient(cfg.AssistantURL, cfg.AssistantAPIKey, cfg.AssistantTimeout)
	assistantSvc := assistant.NewService(assistantClient, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	// Upload endpoints get the attachment cap plus multipart framing
	// headroom; everything else is plain JSON and stays small.
	e.Use(middleware.BodyLimit(1<<20, cfg.MaxUploadBytes+(64<<10)))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	portalHandler := portal.NewHandler(identitySvc, accessSvc, prescriptionSvc, recordsSvc, issuer)

	// Credential endpoints stay outside the session guard but behind a
	// tighter rate limit.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(middleware.LoginRateLimitConfig()))
	portalHandler.RegisterPublicRoutes(public)

	protected := e.Group("/api/v1")
	if cfg.IsDev() {
		protected.Use(auth.DevMiddleware(issuer))
	} else {
		protected.Use(auth.Middleware(issuer))
	}
	portalHandler.RegisterRoutes(protected)

	assistantHandler := assistant.NewHandler(assistantSvc)
	assistantHandler.RegisterRoutes(protected)

	// Start with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
