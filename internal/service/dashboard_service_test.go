package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/learnsphere/academy-api/pkg/errors"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/repository"
)

type dashboardRepoStub struct {
	statsCalls  int
	trendCalls  int
	trendMonths int
	topCalls    int
	topLimit    int
}

func (d *dashboardRepoStub) Stats(ctx context.Context) (*models.DashboardStats, error) {
	d.statsCalls++
	return &models.DashboardStats{
		ActiveStudents:     42,
		PublishedCourses:   7,
		OpenBatches:        3,
		PendingEnrollments: 5,
		PendingPayments:    2,
		RevenueCollected:   1250000,
		RevenueOutstanding: 340000,
	}, nil
}

func (d *dashboardRepoStub) EnrollmentTrends(ctx context.Context, months int) ([]repository.EnrollmentTrend, error) {
	d.trendCalls++
	d.trendMonths = months
	return []repository.EnrollmentTrend{
		{Month: "2026-07", Count: 12},
		{Month: "2026-08", Count: 19},
	}, nil
}

func (d *dashboardRepoStub) TopCourses(ctx context.Context, limit int) ([]repository.CoursePopularity, error) {
	d.topCalls++
	d.topLimit = limit
	return []repository.CoursePopularity{
		{CourseID: "course-1", CourseTitle: "Go Fundamentals", Enrollments: 31},
	}, nil
}

func newDashboardFixture(enabled bool) (*DashboardService, *dashboardRepoStub, *catalogCacheStub) {
	repo := &dashboardRepoStub{}
	cacheRepo := newCatalogCacheStub()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, NewMetricsService(), nil, DashboardConfig{Enabled: enabled})
	return svc, repo, cacheRepo
}

func TestDashboardDisabledForbidden(t *testing.T) {
	svc, repo, _ := newDashboardFixture(false)

	_, _, err := svc.Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.EnrollmentTrends(context.Background(), 6)
	require.Error(t, err)
	_, _, err = svc.TopCourses(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, 0, repo.statsCalls)
}

func TestDashboardStatsCachedOnSecondRead(t *testing.T) {
	svc, repo, _ := newDashboardFixture(true)

	stats, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, stats.ActiveStudents)
	assert.Equal(t, int64(1250000), stats.RevenueCollected)
	assert.False(t, stats.GeneratedAt.IsZero())

	again, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, stats.RevenueOutstanding, again.RevenueOutstanding)
	assert.Equal(t, 1, repo.statsCalls)
}

func TestDashboardTrendsClampWindow(t *testing.T) {
	svc, repo, _ := newDashboardFixture(true)

	trends, cached, err := svc.EnrollmentTrends(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, trends, 2)
	assert.Equal(t, 6, repo.trendMonths)

	_, _, err = svc.EnrollmentTrends(context.Background(), 99)
	require.NoError(t, err)
	// Both calls clamp to the same window, so the second is a cache hit.
	assert.Equal(t, 1, repo.trendCalls)
}

func TestDashboardTopCoursesClampLimit(t *testing.T) {
	svc, repo, _ := newDashboardFixture(true)

	courses, cached, err := svc.TopCourses(context.Background(), -3)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, courses, 1)
	assert.Equal(t, "Go Fundamentals", courses[0].CourseTitle)
	assert.Equal(t, 5, repo.topLimit)

	courses, cached, err = svc.TopCourses(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 31, courses[0].Enrollments)
	assert.Equal(t, 1, repo.topCalls)
}

func TestDashboardInvalidateAllRefetches(t *testing.T) {
	svc, repo, cacheRepo := newDashboardFixture(true)

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateAll(context.Background()))
	assert.Equal(t, 1, cacheRepo.invalidated)

	_, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.statsCalls)
}

func TestDashboardSystemMetricsSnapshot(t *testing.T) {
	svc, _, _ := newDashboardFixture(true)

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)

	snapshot := svc.SystemMetrics()
	assert.GreaterOrEqual(t, snapshot.DBQueryCount, uint64(1))
	assert.False(t, snapshot.GeneratedAt.IsZero())
}
