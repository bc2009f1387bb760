package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	"github.com/noah-isme/katalog-materi-api/internal/service"
)

type fakeStatsStore struct {
	lastFilter models.MateriFilter
}

func (f *fakeStatsStore) Summary(_ context.Context, filter models.MateriFilter) (*models.StatsSummary, error) {
	f.lastFilter = filter
	return &models.StatsSummary{Total: 20, Active: 12, Expired: 8, LastUpdated: time.Now().UTC()}, nil
}

func (f *fakeStatsStore) Monthly(_ context.Context, filter models.MateriFilter) (*models.MonthlyStats, error) {
	f.lastFilter = filter
	stats := &models.MonthlyStats{}
	for month := 1; month <= 12; month++ {
		label := time.Month(month).String()[:3]
		stats.Total = append(stats.Total, models.MonthlyPoint{Month: label})
	}
	return stats, nil
}

func newStatsHandler(store *fakeStatsStore) *StatsHandler {
	cache := service.NewCacheService(nil, nil, time.Minute, nil, false)
	return NewStatsHandler(service.NewStatsService(store, cache, nil, time.Minute, nil))
}

func TestStatsHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStatsStore{}
	h := newStatsHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats?brand=IndiHome&status=aktif", nil)

	h.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IndiHome", store.lastFilter.Brand)
	assert.Equal(t, "aktif", store.lastFilter.Status)

	var envelope struct {
		Data models.StatsSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 20, envelope.Data.Total)
	assert.Equal(t, envelope.Data.Total, envelope.Data.Active+envelope.Data.Expired)
}

func TestStatsHandlerMonthlyAlwaysTwelveEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newStatsHandler(&fakeStatsStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/monthly", nil)

	h.Monthly(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.MonthlyStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Total, 12)
}
