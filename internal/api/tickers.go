package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/cache"
	"github.com/hypemind/hypemind/internal/models"
	"github.com/hypemind/hypemind/internal/ticker"
	"github.com/hypemind/hypemind/pkg/logging"
)

// Cache TTLs. The top list changes with every analyzer batch so it stays
// short; daily history only moves once per batch per day.
const (
	topCacheTTL   = 30 * time.Second
	dailyCacheTTL = 5 * time.Minute
)

// StatStore is the read surface the ticker endpoints need.
type StatStore interface {
	Top(ctx context.Context, limit int) ([]*models.TickerStat, error)
	BySymbol(ctx context.Context, symbol string) (*models.TickerStat, error)
	Daily(ctx context.Context, symbol string, days int) ([]*models.TickerDailyStat, error)
}

// TickerAPI serves aggregated ticker statistics
type TickerAPI struct {
	stats  StatStore
	cache  *cache.Cache
	logger *zap.Logger
}

// NewTickerAPI creates a new ticker API
func NewTickerAPI(stats StatStore, redisCache *cache.Cache) *TickerAPI {
	return &TickerAPI{
		stats:  stats,
		cache:  redisCache,
		logger: logging.GetLogger().With(zap.String("component", "ticker-api")),
	}
}

// Top handles GET /api/tickers/top
func (a *TickerAPI) Top(c *gin.Context) {
	limit := getQueryLimit(c)

	cacheKey := cache.HashKey("tickers_top", strconv.Itoa(limit))
	var cached TopTickersResponse
	if err := a.cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	stats, err := a.stats.Top(c.Request.Context(), limit)
	if err != nil {
		a.logger.Error("Failed to query top tickers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	res := TopTickersResponse{
		Tickers: make([]TickerResponse, 0, len(stats)),
		Limit:   limit,
	}
	for _, s := range stats {
		res.Tickers = append(res.Tickers, tickerResponse(s))
	}

	a.cacheResult(c.Request.Context(), cacheKey, res, topCacheTTL)

	c.JSON(http.StatusOK, res)
}

// BySymbol handles GET /api/tickers/:symbol
func (a *TickerAPI) BySymbol(c *gin.Context) {
	symbol, ok := requireSymbol(c)
	if !ok {
		return
	}

	stat, err := a.stats.BySymbol(c.Request.Context(), symbol)
	if err != nil {
		a.logger.Error("Failed to query ticker", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if stat == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no mentions recorded for %s", symbol)})
		return
	}

	c.JSON(http.StatusOK, tickerResponse(stat))
}

// Daily handles GET /api/tickers/:symbol/daily. A symbol with no recorded
// mentions yields an empty series, not a 404.
func (a *TickerAPI) Daily(c *gin.Context) {
	symbol, ok := requireSymbol(c)
	if !ok {
		return
	}
	days := getQueryDays(c)

	cacheKey := cache.HashKey("tickers_daily", symbol, strconv.Itoa(days))
	var cached DailyStatsResponse
	if err := a.cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	rows, err := a.stats.Daily(c.Request.Context(), symbol, days)
	if err != nil {
		a.logger.Error("Failed to query daily stats", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	res := DailyStatsResponse{
		Symbol: symbol,
		Days:   days,
		Daily:  make([]DailyStatResponse, 0, len(rows)),
	}
	for _, row := range rows {
		res.Daily = append(res.Daily, DailyStatResponse{
			Day:          row.Day.Format("2006-01-02"),
			MentionCount: row.MentionCount,
			AvgHypeScore: row.AvgHypeScore,
		})
	}

	a.cacheResult(c.Request.Context(), cacheKey, res, dailyCacheTTL)

	c.JSON(http.StatusOK, res)
}

// cacheResult stores a response payload. Cache failures only log; the
// response has already been computed.
func (a *TickerAPI) cacheResult(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := a.cache.SetJSON(ctx, key, value, ttl); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		a.logger.Warn("Failed to cache response", zap.Error(err))
	}
}

func tickerResponse(s *models.TickerStat) TickerResponse {
	return TickerResponse{
		Symbol:       s.Symbol,
		CompanyName:  s.CompanyName,
		MentionCount: s.MentionCount,
		AvgHypeScore: s.AvgHypeScore,
		LastSeen:     s.LastSeen.UTC().Format(time.RFC3339),
	}
}

// requireSymbol validates the :symbol path parameter. The same plausibility
// rules gate writes, so an implausible symbol can never match a row.
func requireSymbol(c *gin.Context) (string, bool) {
	raw := c.Param("symbol")
	symbol := strings.ToUpper(ticker.Normalize(raw))
	if !ticker.IsPlausible(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid symbol: %s", raw)})
		return "", false
	}
	return symbol, true
}

func getQueryInt(c *gin.Context, name string, defaultValue int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)

	limit := getQueryInt(c, "limit", defaultLimit)
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func getQueryDays(c *gin.Context) int {
	const (
		defaultDays = 30
		maxDays     = 365
	)

	days := getQueryInt(c, "days", defaultDays)
	if days < 1 {
		return defaultDays
	}
	if days > maxDays {
		return maxDays
	}
	return days
}
