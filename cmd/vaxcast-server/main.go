package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaxcast/vaxcast/internal/config"
	"github.com/vaxcast/vaxcast/internal/domain/dose"
	"github.com/vaxcast/vaxcast/internal/domain/evaluation"
	"github.com/vaxcast/vaxcast/internal/domain/patient"
	"github.com/vaxcast/vaxcast/internal/engine"
	"github.com/vaxcast/vaxcast/internal/platform/auth"
	"github.com/vaxcast/vaxcast/internal/platform/cache"
	"github.com/vaxcast/vaxcast/internal/platform/db"
	"github.com/vaxcast/vaxcast/internal/platform/middleware"
	"github.com/vaxcast/vaxcast/internal/rules"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vaxcast-server",
		Short: "Immunization schedule evaluation server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rulesCmd())

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

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with rule catalogue files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rule catalogue file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rs, err := rules.Decode(doc)
			if err != nil {
				return fmt.Errorf("invalid rule set: %w", err)
			}
			for _, code := range rs.SeriesCodes() {
				fmt.Println(code)
			}
			fmt.Printf("OK: %d series\n", len(rs.SeriesCodes()))
			return nil
		},
	})

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a rule catalogue file as a new stored version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			activate, _ := cmd.Flags().GetBool("activate")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

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

			svc := rules.NewService(rules.NewRepoPG(pool), rules.NewProvider(rules.Default(), "builtin"))
			rec, err := svc.Import(ctx, name, doc)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s version %d (%s)\n", rec.Name, rec.Version, rec.ID)

			if activate {
				if _, err := svc.Activate(ctx, rec.ID); err != nil {
					return err
				}
				fmt.Println("Activated.")
			}
			return nil
		},
	}
	importCmd.Flags().String("name", "", "Catalogue name")
	importCmd.Flags().Bool("activate", false, "Activate the imported version")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print the built-in default catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rules.Encode(rules.Default())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(doc, '\n'))
			return err
		},
	})

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
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Evaluation cache (optional)
	var evalCache *cache.Cache
	if cfg.RedisURL != "" {
		evalCache, err = cache.New(ctx, cfg.RedisURL, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer evalCache.Close()
		logger.Info().Msg("connected to redis")
	} else {
		logger.Info().Msg("REDIS_URL not set, evaluation caching disabled")
	}

	// Rule catalogue: built-in defaults, then a file override when
	// RULESET_PATH is set, then the persisted active catalogue.
	provider := rules.NewProvider(rules.Default(), "builtin")
	if cfg.RuleSetPath != "" {
		doc, err := os.ReadFile(cfg.RuleSetPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RuleSetPath).Msg("failed to read rule set file")
		}
		rs, err := rules.Decode(doc)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RuleSetPath).Msg("rule set file is invalid")
		}
		provider.Swap(rs, "file:"+filepath.Base(cfg.RuleSetPath))
		logger.Info().Str("path", cfg.RuleSetPath).Msg("loaded rule set from file")
	}

	rulesRepo := rules.NewRepoPG(pool)
	rulesSvc := rules.NewService(rulesRepo, provider)
	if restored, err := rulesSvc.RestoreActive(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to restore active rule set")
	} else if restored {
		version, _ := rulesSvc.ActiveSummary()
		logger.Info().Str("version", version).Msg("restored active rule set from database")
	}

	// Engine
	eng := engine.New(engine.Options{HorizonMonths: cfg.ForecastHorizonMonths})

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// API groups
	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	fhirGroup.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := db.Health(c.Request().Context(), pool); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"db":     err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Domain wiring
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1, fhirGroup)

	doseRepo := dose.NewRepoPG(pool)
	doseSvc := dose.NewService(doseRepo)
	doseHandler := dose.NewHandler(doseSvc)
	doseHandler.RegisterRoutes(apiV1, fhirGroup)

	rulesHandler := rules.NewHandler(rulesSvc)
	rulesHandler.RegisterRoutes(apiV1)

	evalSvc := evaluation.NewService(patientSvc, doseSvc, provider, eng, evalCache, logger)
	evalHandler := evaluation.NewHandler(evalSvc)
	evalHandler.RegisterRoutes(apiV1, fhirGroup)

	// Demographic and history changes invalidate cached evaluations.
	patientSvc.SetChangeListener(evalSvc)
	doseSvc.SetChangeListener(evalSvc)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
