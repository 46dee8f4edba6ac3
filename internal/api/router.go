package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/cache"
	"github.com/hypemind/hypemind/internal/db"
	"github.com/hypemind/hypemind/pkg/logging"
)

// Pinger reports backend connectivity for health checks.
type Pinger interface {
	Health(ctx context.Context) error
}

// Router sets up API routes
type Router struct {
	tickers *TickerAPI
	db      Pinger
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache) *Router {
	repo := db.NewRepository(database.DB)
	stats := db.NewStatRepository(repo)

	return &Router{
		tickers: NewTickerAPI(stats, redisCache),
		db:      database,
		cache:   redisCache,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	api := engine.Group("/api")
	api.GET("/tickers/top", r.tickers.Top)
	api.GET("/tickers/:symbol", r.tickers.BySymbol)
	api.GET("/tickers/:symbol/daily", r.tickers.Daily)
}

// healthHandler handles health check requests. A down database makes the
// service unhealthy; an unreachable cache does not, reads fall through to
// postgres.
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"service":  "hypemind-api",
			"database": "disconnected",
		})
		return
	}

	cacheState := "disabled"
	if r.cache != nil {
		cacheState = "connected"
		if err := r.cache.Health(c.Request.Context()); err != nil {
			cacheState = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "OK",
		"service":  "hypemind-api",
		"database": "connected",
		"cache":    cacheState,
	})
}
