package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/learnsphere/academy-api/pkg/errors"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/repository"
)

type dashboardRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	EnrollmentTrends(ctx context.Context, months int) ([]repository.EnrollmentTrend, error)
	TopCourses(ctx context.Context, limit int) ([]repository.CoursePopularity, error)
}

// DashboardConfig tunes dashboard aggregation behaviour.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// DashboardService aggregates operational statistics for the admin dashboard.
type DashboardService struct {
	repo    dashboardRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	config  DashboardConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, config DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 2 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, metrics: metrics, logger: logger, config: config}
}

// Stats returns headline counters and revenue aggregates. The boolean reports a cache hit.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	if !s.config.Enabled {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "dashboard is disabled")
	}

	const cacheKey = "dashboard:stats"
	var cached models.DashboardStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.FromError(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("dashboard_stats", time.Since(start))
	}
	stats.GeneratedAt = time.Now().UTC()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// EnrollmentTrends returns monthly enrollment counts for the trailing window.
func (s *DashboardService) EnrollmentTrends(ctx context.Context, months int) ([]repository.EnrollmentTrend, bool, error) {
	if !s.config.Enabled {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "dashboard is disabled")
	}
	if months <= 0 || months > 24 {
		months = 6
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%d", months)
	var cached []repository.EnrollmentTrend
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	trends, err := s.repo.EnrollmentTrends(ctx, months)
	if err != nil {
		return nil, false, appErrors.FromError(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, trends, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache enrollment trends", zap.Error(err))
		}
	}
	return trends, false, nil
}

// TopCourses returns the most enrolled courses.
func (s *DashboardService) TopCourses(ctx context.Context, limit int) ([]repository.CoursePopularity, bool, error) {
	if !s.config.Enabled {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "dashboard is disabled")
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	cacheKey := fmt.Sprintf("dashboard:top-courses:%d", limit)
	var cached []repository.CoursePopularity
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	courses, err := s.repo.TopCourses(ctx, limit)
	if err != nil {
		return nil, false, appErrors.FromError(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, courses, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache top courses", zap.Error(err))
		}
	}
	return courses, false, nil
}

// SystemMetrics returns the runtime metrics snapshot.
func (s *DashboardService) SystemMetrics() models.SystemMetrics {
	return s.metrics.Snapshot()
}

// InvalidateAll drops every cached dashboard aggregate.
func (s *DashboardService) InvalidateAll(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, "dashboard:*")
}
