package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"resume-builder/internal/identity"
	"resume-builder/internal/services/health"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
)

const bannerText = "Resume App Backend API is running!"

// RouteRegistrar attaches a feature's routes to the authenticated /api group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries everything NewRouter wires into the engine.
type RouterDeps struct {
	Config   config.Config
	Verifier identity.Verifier
	Health   *health.Service
	// Handlers are mounted under /api behind the access gate.
	Handlers []RouteRegistrar
	// RateLimiter may be shared across engines in tests; nil builds a fresh one.
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		otelgin.Middleware(cfg.ServiceName),
	)
	metrics.Instrument(r)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, bannerText)
	})
	r.GET("/health", func(c *gin.Context) {
		status := deps.Health.Check(c.Request.Context())
		if !status.OK {
			respond.JSON(c, http.StatusServiceUnavailable, status)
			return
		}
		respond.OK(c, status)
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier))
	if cfg.RateLimitRPS > 0 {
		api.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			},
			Limiter: deps.RateLimiter,
		}))
	}
	api.Use(middleware.Backpressure(cfg.DBMaxOpenConns))

	for _, h := range deps.Handlers {
		h.RegisterRoutes(api)
	}
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
