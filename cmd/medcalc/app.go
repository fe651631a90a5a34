package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/config"
	"github.com/medcalc/medcalc/internal/domain/auditevent"
	"github.com/medcalc/medcalc/internal/domain/feedback"
	"github.com/medcalc/medcalc/internal/domain/fhirdata"
	"github.com/medcalc/medcalc/internal/domain/provenance"
	"github.com/medcalc/medcalc/internal/domain/securitylabel"
	"github.com/medcalc/medcalc/internal/domain/staleness"
	"github.com/medcalc/medcalc/internal/platform/cache"
	"github.com/medcalc/medcalc/internal/platform/db"
	"github.com/medcalc/medcalc/internal/platform/fhirclient"
	"github.com/medcalc/medcalc/internal/platform/hipaa"
	"github.com/medcalc/medcalc/internal/platform/store"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
)

const version = "0.1.0"

// app holds the services shared by serve and the maintenance commands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	conn    *sql.DB
	backend store.Store
	closers []func() error

	fhir       *fhirclient.Client
	audit      *auditevent.Service
	provenance *provenance.Service
	security   *securitylabel.Service
	cache      *cache.Manager
	feedback   *feedback.Feedback
	fhirdata   *fhirdata.Service
}

func newLogger(w *os.File) zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		metrics: telemetry.New(telemetry.TelemetryConfig{
			ServiceName:    "medcalc",
			ServiceVersion: version,
			Environment:    cfg.Env,
			RuntimeMetrics: true,
		}),
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	keys, err := hipaa.NewEncryptionService(cfg.HIPAAEncryptionKey, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	secure := func(purpose string) (*store.Secure, error) {
		enc, err := keys.ForPurpose(purpose)
		if err != nil {
			return nil, fmt.Errorf("derive %s key: %w", purpose, err)
		}
		return store.NewSecure(a.backend, enc), nil
	}

	if cfg.FHIRBaseURL != "" {
		a.fhir, err = fhirclient.New(fhirclient.Config{
			BaseURL:         cfg.FHIRBaseURL,
			Timeout:         cfg.FHIRTimeout,
			RateLimitRPS:    cfg.FHIRRateLimitRPS,
			RateLimitBurst:  cfg.FHIRRateLimitBurst,
			BreakerFailures: cfg.FHIRBreakerFailures,
		}, logger, a.metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	if err := a.buildServices(secure); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.audit.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to restore pending audit events")
	}
	if err := a.provenance.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to restore pending provenance records")
	}
	return a, nil
}

// openStore opens the CACHE_BACKEND the encrypted local store sits on.
func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.CacheBackend {
	case "memory":
		a.backend = store.NewMemory()
	case "redis":
		r, err := store.NewRedis(ctx, a.cfg.RedisURL, "medcalc:")
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.backend = r
		a.closers = append(a.closers, r.Close)
		a.logger.Info().Msg("connected to redis")
	default:
		conn, err := db.Open(ctx, a.cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
		a.conn = conn
		a.backend = store.NewSQLite(conn)
		a.closers = append(a.closers, conn.Close)
		a.logger.Info().Str("path", a.cfg.StorePath).Msg("opened local store")
	}
	return nil
}

func (a *app) buildServices(secure func(purpose string) (*store.Secure, error)) error {
	cfg := a.cfg

	auditStore, err := secure("audit")
	if err != nil {
		return err
	}
	auditOpts := []auditevent.Option{
		auditevent.WithPendingRepo(auditevent.NewPendingRepoStore(auditStore)),
		auditevent.WithMetrics(a.metrics),
	}
	if cfg.AuditServerURL != "" {
		fwd, err := fhirclient.New(fhirclient.Config{BaseURL: cfg.AuditServerURL, Timeout: cfg.FHIRTimeout}, a.logger, a.metrics)
		if err != nil {
			return err
		}
		auditOpts = append(auditOpts, auditevent.WithForwarder(fwd))
	}
	a.audit = auditevent.NewService(auditevent.Config{
		ApplicationID:      cfg.AuditApplicationID,
		ApplicationName:    cfg.AuditApplicationName,
		ApplicationVersion: cfg.AuditApplicationVersion,
		SiteID:             cfg.AuditSiteID,
		Origin:             "http://localhost:" + cfg.Port,
		EnableLocalStorage: cfg.AuditEnableLocalStorage,
		MaxLocalEvents:     cfg.AuditMaxLocalEvents,
		EnableDebugLogging: cfg.AuditDebug,
	}, a.logger, auditOpts...)

	provStore, err := secure("provenance")
	if err != nil {
		return err
	}
	provOpts := []provenance.Option{
		provenance.WithPendingRepo(provenance.NewPendingRepoStore(provStore)),
	}
	if a.fhir != nil {
		provOpts = append(provOpts, provenance.WithForwarder(a.fhir))
	}
	provCfg := provenance.DefaultConfig()
	provCfg.ApplicationID = cfg.AuditApplicationID
	provCfg.ApplicationName = cfg.AuditApplicationName
	provCfg.ApplicationVersion = cfg.AuditApplicationVersion
	provCfg.EnableLocalStorage = cfg.AuditEnableLocalStorage
	provCfg.MaxLocalRecords = cfg.ProvenanceMaxLocalRecords
	provCfg.EnableDebugLogging = cfg.AuditDebug
	a.provenance = provenance.NewService(provCfg, a.logger, provOpts...)

	a.security = securitylabel.NewService(securitylabel.Config{
		EnableMasking:          cfg.SecurityEnableMasking,
		EnableWarnings:         cfg.SecurityEnableWarnings,
		DefaultConfidentiality: cfg.SecurityDefaultConfidentiality,
		LogSensitiveAccess:     cfg.SecurityLogSensitiveAccess,
		EnableBreakTheGlass:    cfg.SecurityEnableBreakTheGlass,
		MaskCharacter:          cfg.SecurityMaskCharacter,
		Language:               cfg.SecurityLanguage,
		EnableDebugLogging:     cfg.SecurityDebug,
	}, a.logger, securitylabel.WithAlerter(a.audit), securitylabel.WithMetrics(a.metrics))

	cacheStore, err := secure("cache")
	if err != nil {
		return err
	}
	a.cache = cache.New(a.logger,
		cache.WithStore(cacheStore),
		cache.WithTTL(cfg.CacheTTL),
		cache.WithMetrics(a.metrics),
	)

	a.feedback = feedback.New(a.logger)
	a.fhirdata = fhirdata.NewService(a.logger,
		fhirdata.WithCache(a.cache),
		fhirdata.WithAuditor(a.audit),
		fhirdata.WithReporter(a.feedback),
		fhirdata.WithProvenance(a.provenance),
		fhirdata.WithMetrics(a.metrics),
		fhirdata.WithStalenessOptions(
			staleness.WithThreshold(cfg.StalenessThreshold()),
			staleness.WithLogger(a.logger),
			staleness.WithMetrics(a.metrics),
		),
	)
	return nil
}

// clients binds the shared FHIR client to a patient. It returns nil when
// FHIR_BASE_URL is unset.
func (a *app) clients() fhirdata.ClientFactory {
	return func(patientID string) fhirdata.Client {
		if a.fhir == nil {
			return nil
		}
		return a.fhir.WithPatient(patientID)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
