package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/middleware"
	"github.com/persistorai/auditlog/internal/security"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log           *logrus.Logger
	Pool          HealthChecker
	Logs          LogService
	Keys          middleware.KeyVerifier
	CORSOrigins   []string
	Version       string
	SchemaVersion int
	DebugErrors   bool
	Sentry        bool
}

// Router-level limits.
const (
	// A full batch of maximum-size entries stays under this.
	maxBodySize = 16 << 20 // 16 MB
	rateLimit   = 100      // requests per second per IP
	rateBurst   = 200      // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.

	if deps.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.APIKeyHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})
}

// registerRoutes sets up all route handlers.
func registerRoutes(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, log, deps.Version, deps.SchemaVersion)
	logs := NewLogHandler(deps.Logs, log, deps.DebugErrors)

	// Health, readiness and metrics are unauthenticated.
	r.GET("/health", health.Liveness)
	r.GET("/ready", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guard := security.NewBruteForceGuard(ctx, security.DefaultLockoutPolicy, log)
	audit := r.Group("/audit/logs", middleware.TenantAuth(deps.Keys, guard, log))

	audit.POST("/batch", logs.SubmitBatch)
	audit.GET("/user/:employeeId", logs.ByEmployee)
	audit.GET("/app/:sourceApp", logs.ByApplication)
	audit.GET("/search", logs.Search)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r, deps)

	return r
}
