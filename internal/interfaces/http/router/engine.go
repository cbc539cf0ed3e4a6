package router

import (
	"github.com/gin-gonic/gin"
	"github.com/mfgops/ledger/internal/infrastructure/logger"
	"github.com/mfgops/ledger/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the gin engine of the API server
type EngineConfig struct {
	Mode           string // gin mode: debug, release, test
	ServiceName    string
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        bool
	Meter          metric.Meter // nil disables HTTP metrics
	Profiling      bool
}

// NewEngine builds a gin engine with the standard middleware chain and every
// ledger route mounted under /api/v1.
func NewEngine(cfg EngineConfig, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if cfg.Tracing {
		engine.Use(middleware.Tracing(cfg.ServiceName)...)
	}
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	}
	if cfg.Profiling {
		engine.Use(middleware.Profiling())
	}
	engine.NoRoute(middleware.NoRoute())

	// probes hit the unversioned path
	engine.GET("/health", h.Health.Check)

	Mount(engine, APIPrefix, HealthGroup(h), LedgerGroup(h), CatalogGroup(h))
	return engine, nil
}
