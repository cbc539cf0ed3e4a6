package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
	"github.com/mfgops/ledger/internal/infrastructure/cache"
	"github.com/mfgops/ledger/internal/infrastructure/config"
	"github.com/mfgops/ledger/internal/infrastructure/logger"
	"github.com/mfgops/ledger/internal/infrastructure/migration"
	"github.com/mfgops/ledger/internal/infrastructure/persistence"
	"github.com/mfgops/ledger/internal/infrastructure/persistence/models"
	"github.com/mfgops/ledger/internal/infrastructure/scheduler"
	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
	"github.com/mfgops/ledger/internal/interfaces/http/handler"
	"github.com/mfgops/ledger/internal/interfaces/http/router"
	"github.com/mfgops/ledger/migrations"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = baseLog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signals, err := telemetry.Setup(ctx, telemetry.Options{
		Collector: telemetry.Collector{
			Endpoint:       cfg.Telemetry.CollectorEndpoint,
			Insecure:       cfg.Telemetry.Insecure,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version,
		},
		Traces:          cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		Metrics:         cfg.Telemetry.MetricsEnabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		Logs:            cfg.Telemetry.LogsEnabled,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := signals.Logger(baseLog, zapcore.InfoLevel)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileMutex:    true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		signals.EnableSpanProfiles()
	}

	log.Info("Starting materials ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("advisory_lock", cfg.Ledger.AdvisoryLock),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem(cfg.Database.Driver),
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := migrateSchema(cfg, db, log); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}
	log.Info("Database ready", zap.Bool("row_locks", db.SupportsRowLocks()))

	// Idempotency store and allocation guard
	components, err := cache.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize cache components", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Warn("Error closing cache components", zap.Error(err))
		}
	}()

	ledgerMetrics, err := telemetry.NewLedgerMetrics(signals.Meter("ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Application services
	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, cfg.Ledger.LockTimeout)
	reportRepo := persistence.NewGormReportRepository(db.DB)

	allocationService := appledger.NewAllocationService(repos, scope,
		appledger.WithAllocationGuard(components.Guard),
		appledger.WithIdempotencyStore(components.Idempotency, cfg.Ledger.IdempotencyTTL),
		appledger.WithAllocationLogger(log.Named("allocation")),
		appledger.WithLedgerMetrics(ledgerMetrics),
	)
	movementService := appledger.NewMovementService(repos, scope, components.Guard, log.Named("movement"))
	movementService.SetLedgerMetrics(ledgerMetrics)
	batchService := appledger.NewBatchService(repos, scope, components.Guard)
	catalogService := appledger.NewCatalogService(repos)
	reportService := appledger.NewReportService(repos, reportRepo)
	auditService := appledger.NewAuditService(reportRepo, log.Named("audit"))
	auditService.SetLedgerMetrics(ledgerMetrics)

	// Scheduled invariant audit. On-demand passes go through the scheduler
	// when it runs so the two never overlap.
	var auditScheduler *scheduler.AuditScheduler
	var auditRunner handler.AuditRunner = auditService
	if cfg.Ledger.AuditEnabled {
		auditScheduler, err = scheduler.NewAuditScheduler(auditService, scheduler.AuditSchedulerConfig{
			Schedule:   cfg.Ledger.AuditCron,
			JobTimeout: cfg.Ledger.AuditTimeout,
		}, log.Named("audit-scheduler"))
		if err != nil {
			log.Fatal("Failed to create audit scheduler", zap.Error(err))
		}
		auditScheduler.Start()
		auditRunner = auditScheduler
	}

	// HTTP
	engine, err := router.NewEngine(router.EngineConfig{
		Mode:           ginMode(cfg.App.Env),
		ServiceName:    cfg.Telemetry.ServiceName,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing:        signals.TracingEnabled(),
		Meter:          meterFor(signals),
		Profiling:      profiler.IsEnabled(),
	}, router.Handlers{
		Allocation: handler.NewAllocationHandler(allocationService),
		Movement:   handler.NewMovementHandler(movementService),
		Batch:      handler.NewBatchHandler(batchService, reportService),
		Report:     handler.NewReportHandler(reportService),
		Audit:      handler.NewAuditHandler(auditRunner),
		Catalog:    handler.NewCatalogHandler(catalogService),
		Health:     handler.NewHealthHandler(db, version),
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if auditScheduler != nil {
		if err := auditScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Audit scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := signals.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema brings the schema up to date. Postgres uses the versioned
// migrations; SQLite, used for development only, is auto-migrated from the
// gorm models.
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == config.DriverSQLite {
		return db.DB.AutoMigrate(models.All()...)
	}

	// The migrator closes its connection, so it gets one of its own.
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}

func ginMode(env string) string {
	if env == "production" {
		return "release"
	}
	return "debug"
}

// meterFor returns nil when metrics are off so the engine skips the middleware
func meterFor(signals *telemetry.Signals) metric.Meter {
	if !signals.MetricsEnabled() {
		return nil
	}
	return signals.Meter("http")
}
