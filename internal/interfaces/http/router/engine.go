package router

import (
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/erp/purchasing/internal/infrastructure/logger"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineOptions carries what the engine needs beyond the handlers
type EngineOptions struct {
	Config *config.Config
	Logger *zap.Logger
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
	// TokenValidator checks bearer tokens; nil disables authentication
	TokenValidator middleware.TokenValidator
}

// NewEngine builds the gin engine with the full middleware chain, /health,
// the API docs and the /api/v1 routes
func NewEngine(opts EngineOptions, h Handlers) *gin.Engine {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.HTTPMetrics(opts.Meter, log),
		middleware.Profiling(cfg.Telemetry.ProfilingEnabled, "/swagger", "/health"),
	)

	var jwtAuth gin.HandlerFunc
	if opts.TokenValidator != nil {
		jwtCfg := middleware.DefaultJWTConfig(opts.TokenValidator)
		jwtCfg.Logger = log
		jwtAuth = middleware.JWTAuth(jwtCfg)
		engine.Use(jwtAuth)
	}
	engine.Use(middleware.TracingAttributeInjector(), middleware.SpanErrorMarker())

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	NewRouter(engine).Register(PurchasingGroups(h)...).Setup()
	return engine
}
