package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/medcalc/medcalc/internal/config"
	"github.com/medcalc/medcalc/internal/domain/auditevent"
	"github.com/medcalc/medcalc/internal/domain/fhirdata"
	"github.com/medcalc/medcalc/internal/domain/provenance"
	"github.com/medcalc/medcalc/internal/domain/securitylabel"
	"github.com/medcalc/medcalc/internal/domain/terminology"
	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/db"
	"github.com/medcalc/medcalc/internal/platform/jobs"
	"github.com/medcalc/medcalc/internal/platform/middleware"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "medcalc",
		Short:         "Medical calculator FHIR data service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(populateCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(securityCmd())
	root.AddCommand(provenanceCmd())
	root.AddCommand(migrateCmd())
	return root
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

func runServer() error {
	logger := newLogger(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise services")
	}
	defer a.Close()
	if a.fhir == nil {
		logger.Warn().Msg("FHIR_BASE_URL is not set, observation endpoints will return 503")
	}

	e := newServer(a)

	// Background flush of the local audit and provenance queues
	sched := jobs.New(logger)
	if err := addFlushJobs(sched, a); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule flush jobs")
	}
	sched.Start()
	defer sched.Stop()
	if cfg.AuditServerURL != "" {
		a.audit.SetOnline(ctx, true)
	}
	if a.fhir != nil {
		a.provenance.SetOnline(ctx, true)
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
	if n, err := a.audit.FlushPendingEvents(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("final audit flush failed")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("flushed pending audit events")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the router with the global middleware chain and every
// domain handler registered.
func newServer(a *app) *echo.Echo {
	cfg, logger := a.cfg, a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(a.metrics.MetricsMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader, middleware.BreakGlassHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, securitylabel.BreakGlassGrantedHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.PopulateLimit, "/api/v1/populate"))

	// Access log wraps auth so refused requests are recorded too
	e.Use(middleware.Audit(logger, a.audit))

	// Auth middleware
	if cfg.AuthSigningKey == "" && cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	e.Use(middleware.BreakGlass(logger))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if a.conn != nil {
		e.GET("/health/db", db.HealthHandler(a.conn))
	}
	e.GET("/metrics", a.metrics.PrometheusHandler())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	limiter := middleware.RateLimit(rateLimitCfg)

	apiV1 := e.Group("/api/v1", limiter, middleware.RequestTimeout(cfg.RequestTimeout))
	fhirGroup := e.Group("/fhir", limiter, middleware.RequestTimeout(cfg.RequestTimeout))

	auditevent.NewHandler(a.audit).RegisterRoutes(apiV1)
	provenance.NewHandler(a.provenance).RegisterRoutes(apiV1)
	securitylabel.NewHandler(a.security).RegisterRoutes(apiV1)
	terminology.NewHandler(terminology.NewDefaultService()).RegisterRoutes(apiV1, fhirGroup)
	fhirdata.NewHandler(a.fhirdata, a.clients()).RegisterRoutes(apiV1)

	return e
}

func addFlushJobs(sched *jobs.Scheduler, a *app) error {
	schedule := a.cfg.AuditFlushSchedule
	if schedule == "" {
		return nil
	}
	if err := sched.Add(jobs.Task{
		Name:     "audit-flush",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := a.audit.FlushPendingEvents(ctx)
			return err
		},
	}); err != nil {
		return err
	}
	return sched.Add(jobs.Task{
		Name:     "provenance-flush",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := a.provenance.FlushPendingRecords(ctx)
			return err
		},
	})
}
