package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
)

type statsRepository interface {
	Summary(ctx context.Context, filter models.MateriFilter) (*models.StatsSummary, error)
	Monthly(ctx context.Context, filter models.MateriFilter) (*models.MonthlyStats, error)
}

const statsCachePrefix = "stats:"

// StatsService serves aggregate statistics, fronted by a Redis cache keyed
// on the filter fingerprint. Every materi mutation invalidates the whole
// stats keyspace before the mutation response returns.
type StatsService struct {
	repo    statsRepository
	cache   *CacheService
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(repo statsRepository, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Summary returns the aggregate counters for the filtered subset.
func (s *StatsService) Summary(ctx context.Context, filter models.MateriFilter) (*models.StatsSummary, error) {
	key := statsCacheKey("summary", filter)
	var cached models.StatsSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	summary, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}
	s.metrics.ObserveDBQuery("stats_summary", time.Since(start))

	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.logger.Warn("failed to cache stats summary", zap.Error(err))
	}
	return summary, nil
}

// Monthly returns the twelve-month series for the filtered subset.
func (s *StatsService) Monthly(ctx context.Context, filter models.MateriFilter) (*models.MonthlyStats, error) {
	key := statsCacheKey("monthly", filter)
	var cached models.MonthlyStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	stats, err := s.repo.Monthly(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute monthly statistics")
	}
	s.metrics.ObserveDBQuery("stats_monthly", time.Since(start))

	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Warn("failed to cache monthly stats", zap.Error(err))
	}
	return stats, nil
}

// InvalidateAll drops every cached stats payload. Called synchronously from
// materi mutations so subsequent reads observe the write.
func (s *StatsService) InvalidateAll(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, statsCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

// statsCacheKey fingerprints the filter so each distinct filter combination
// gets its own cache slot.
func statsCacheKey(scope string, filter models.MateriFilter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%v",
		filter.Search, filter.Status, filter.Brand, filter.Cluster, filter.Fitur, filter.Jenis, filter.OnlyVisualDocs)
	if filter.StartDate != nil {
		fmt.Fprintf(&b, "|%s", filter.StartDate.Format("2006-01-02"))
	}
	if filter.EndDate != nil {
		fmt.Fprintf(&b, "|%s", filter.EndDate.Format("2006-01-02"))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return statsCachePrefix + scope + ":" + hex.EncodeToString(sum[:8])
}
