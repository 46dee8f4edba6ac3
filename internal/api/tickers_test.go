package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/hypemind/hypemind/internal/models"
)

type fakeStore struct {
	top   []*models.TickerStat
	stat  *models.TickerStat
	daily []*models.TickerDailyStat
	err   error

	topLimit  int
	dailyDays int
}

func (f *fakeStore) Top(ctx context.Context, limit int) ([]*models.TickerStat, error) {
	f.topLimit = limit
	return f.top, f.err
}

func (f *fakeStore) BySymbol(ctx context.Context, symbol string) (*models.TickerStat, error) {
	return f.stat, f.err
}

func (f *fakeStore) Daily(ctx context.Context, symbol string, days int) ([]*models.TickerDailyStat, error) {
	f.dailyDays = days
	return f.daily, f.err
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Health(ctx context.Context) error {
	return f.err
}

func newTestRouter(store StatStore, pinger Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	r := &Router{
		tickers: NewTickerAPI(store, nil),
		db:      pinger,
	}
	r.SetupRoutes(engine)
	return engine
}

func lastSeen() time.Time {
	return time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
}

func TestTop_ReturnsTickers(t *testing.T) {
	store := &fakeStore{
		top: []*models.TickerStat{
			{Symbol: "TSLA", CompanyName: "Tesla Inc", MentionCount: 42, AvgHypeScore: 0.81, LastSeen: lastSeen()},
			{Symbol: "GME", MentionCount: 17, AvgHypeScore: 0.93, LastSeen: lastSeen()},
		},
	}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/top", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res TopTickersResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res.Tickers))
	assert.Equal(t, "TSLA", res.Tickers[0].Symbol)
	assert.Equal(t, "Tesla Inc", res.Tickers[0].CompanyName)
	assert.Equal(t, int64(42), res.Tickers[0].MentionCount)
	assert.Equal(t, 0.81, res.Tickers[0].AvgHypeScore)
	assert.Equal(t, "2026-08-20T15:00:00Z", res.Tickers[0].LastSeen)
	assert.Equal(t, 20, res.Limit)
	assert.Equal(t, 20, store.topLimit)
}

func TestTop_ClampsLimit(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/top?limit=500", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, store.topLimit)
}

func TestTop_InvalidLimitUsesDefault(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/top?limit=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, store.topLimit)
}

func TestTop_DBError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/top", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBySymbol_Found(t *testing.T) {
	store := &fakeStore{
		stat: &models.TickerStat{Symbol: "TSLA", MentionCount: 42, AvgHypeScore: 0.81, LastSeen: lastSeen()},
	}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/TSLA", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res TickerResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "TSLA", res.Symbol)
	assert.Equal(t, int64(42), res.MentionCount)
}

func TestBySymbol_NormalizesInput(t *testing.T) {
	store := &fakeStore{
		stat: &models.TickerStat{Symbol: "TSLA", MentionCount: 1, LastSeen: lastSeen()},
	}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/$tsla", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res TickerResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "TSLA", res.Symbol)
}

func TestBySymbol_NotFound(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/ZZZZ", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBySymbol_InvalidSymbol(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store, &fakePinger{})

	for _, symbol := range []string{"TOOLONGG", "BRK.B", "YOLO"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/tickers/"+symbol, nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestDaily_ReturnsSeries(t *testing.T) {
	store := &fakeStore{
		daily: []*models.TickerDailyStat{
			{Symbol: "TSLA", Day: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), MentionCount: 5, AvgHypeScore: 0.75},
			{Symbol: "TSLA", Day: time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC), MentionCount: 3, AvgHypeScore: 0.6},
		},
	}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/TSLA/daily?days=7", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, store.dailyDays)

	var res DailyStatsResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "TSLA", res.Symbol)
	assert.Equal(t, 2, len(res.Daily))
	assert.Equal(t, "2026-08-20", res.Daily[0].Day)
	assert.Equal(t, int64(5), res.Daily[0].MentionCount)
}

func TestDaily_EmptySeriesForQuietSymbol(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickers/PLTR/daily", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res DailyStatsResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "PLTR", res.Symbol)
	assert.Equal(t, 30, res.Days)
	assert.Equal(t, 0, len(res.Daily))
}

func TestHealth_Healthy(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakePinger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "OK", res["status"])
	assert.Equal(t, "connected", res["database"])
	assert.Equal(t, "disabled", res["cache"])
}

func TestHealth_UnhealthyWhenDBDown(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakePinger{err: errors.New("db down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "unhealthy", res["status"])
}
