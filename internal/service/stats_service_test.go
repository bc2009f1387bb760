package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
)

type fakeStatsRepo struct {
	summaryCalls int
	monthlyCalls int
	summary      models.StatsSummary
}

func (f *fakeStatsRepo) Summary(_ context.Context, _ models.MateriFilter) (*models.StatsSummary, error) {
	f.summaryCalls++
	s := f.summary
	return &s, nil
}

func (f *fakeStatsRepo) Monthly(_ context.Context, _ models.MateriFilter) (*models.MonthlyStats, error) {
	f.monthlyCalls++
	return &models.MonthlyStats{}, nil
}

type memoryCacheRepo struct {
	store map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{store: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	m.store = map[string][]byte{}
	return nil
}

func TestStatsServiceSummaryCachesByFilter(t *testing.T) {
	repo := &fakeStatsRepo{summary: models.StatsSummary{Total: 10, Active: 7, Expired: 3}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(repo, cache, nil, time.Minute, nil)

	first, err := svc.Summary(context.Background(), models.MateriFilter{Brand: "IndiHome"})
	require.NoError(t, err)
	assert.Equal(t, 10, first.Total)

	// Same filter hits the cache; the repo is not consulted again.
	second, err := svc.Summary(context.Background(), models.MateriFilter{Brand: "IndiHome"})
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, repo.summaryCalls)

	// A different filter gets its own slot.
	_, err = svc.Summary(context.Background(), models.MateriFilter{Brand: "Orbit"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.summaryCalls)
}

func TestStatsServiceInvalidateAllDropsCachedEntries(t *testing.T) {
	repo := &fakeStatsRepo{summary: models.StatsSummary{Total: 5}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(repo, cache, nil, time.Minute, nil)

	_, err := svc.Summary(context.Background(), models.MateriFilter{})
	require.NoError(t, err)
	svc.InvalidateAll(context.Background())

	_, err = svc.Summary(context.Background(), models.MateriFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.summaryCalls)
}

func TestStatsServiceDisabledCacheAlwaysQueries(t *testing.T) {
	repo := &fakeStatsRepo{}
	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	svc := NewStatsService(repo, cache, nil, time.Minute, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Monthly(context.Background(), models.MateriFilter{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.monthlyCalls)
}

func TestStatsServiceRecordsQueryTimings(t *testing.T) {
	repo := &fakeStatsRepo{summary: models.StatsSummary{Total: 1, Active: 1}}
	metrics := NewMetricsService()
	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	svc := NewStatsService(repo, cache, metrics, time.Minute, nil)

	_, err := svc.Summary(context.Background(), models.MateriFilter{})
	require.NoError(t, err)
	_, err = svc.Monthly(context.Background(), models.MateriFilter{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `db_query_duration_seconds_count{query="stats_summary"} 1`)
	assert.Contains(t, body, `db_query_duration_seconds_count{query="stats_monthly"} 1`)
}

func TestStatsCacheKeyDistinguishesScopeAndDates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := models.MateriFilter{Brand: "IndiHome"}
	withDate := models.MateriFilter{Brand: "IndiHome", StartDate: &start}

	assert.NotEqual(t, statsCacheKey("summary", base), statsCacheKey("monthly", base))
	assert.NotEqual(t, statsCacheKey("summary", base), statsCacheKey("summary", withDate))
	assert.Equal(t, statsCacheKey("summary", base), statsCacheKey("summary", models.MateriFilter{Brand: "IndiHome"}))
}
