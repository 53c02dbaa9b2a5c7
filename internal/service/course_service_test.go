package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type courseRepoStub struct {
	courses map[string]*models.Course
	seq     int
	lists   int
}

func newCourseRepoStub() *courseRepoStub {
	return &courseRepoStub{courses: make(map[string]*models.Course)}
}

func (r *courseRepoStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	r.lists++
	result := make([]models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		if filter.Published != nil && c.Published != *filter.Published {
			continue
		}
		result = append(result, *c)
	}
	return result, len(result), nil
}

func (r *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := r.courses[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *courseRepoStub) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	for _, c := range r.courses {
		if c.Slug == slug {
			copy := *c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *courseRepoStub) ExistsSlug(ctx context.Context, slug, excludeID string) (bool, error) {
	for _, c := range r.courses {
		if c.ID != excludeID && c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	r.seq++
	course.ID = strings.ToLower(course.Slug)
	stored := *course
	r.courses[course.ID] = &stored
	return nil
}

func (r *courseRepoStub) Update(ctx context.Context, course *models.Course) error {
	if _, ok := r.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *course
	r.courses[course.ID] = &stored
	return nil
}

func (r *courseRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.courses, id)
	return nil
}

type catalogCacheStub struct {
	store       map[string][]byte
	invalidated int
}

func newCatalogCacheStub() *catalogCacheStub {
	return &catalogCacheStub{store: make(map[string][]byte)}
}

func (c *catalogCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *catalogCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

func (c *catalogCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated++
	c.store = make(map[string][]byte)
	return nil
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "go-fundamentals", Slugify("Go Fundamentals"))
	assert.Equal(t, "advanced-sql-part-2", Slugify("  Advanced SQL, Part 2! "))
	assert.Equal(t, "a-b-c", Slugify("a---b___c"))
}

func TestCourseCreateDerivesSlug(t *testing.T) {
	repo := newCourseRepoStub()
	svc := NewCourseService(repo, nil, nil, nil, CatalogCacheConfig{})

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:    "Go Fundamentals",
		Category: "programming",
		Price:    100000,
	})
	require.NoError(t, err)
	assert.Equal(t, "go-fundamentals", course.Slug)
}

func TestCourseCreateSlugConflict(t *testing.T) {
	repo := newCourseRepoStub()
	repo.courses["go-fundamentals"] = &models.Course{ID: "go-fundamentals", Slug: "go-fundamentals"}
	svc := NewCourseService(repo, nil, nil, nil, CatalogCacheConfig{})

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:    "Go Fundamentals",
		Category: "programming",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseUpdateKeepingOwnSlug(t *testing.T) {
	repo := newCourseRepoStub()
	repo.courses["c1"] = &models.Course{ID: "c1", Title: "Go", Slug: "go-fundamentals", Category: "programming"}
	svc := NewCourseService(repo, nil, nil, nil, CatalogCacheConfig{})

	updated, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{
		Title:    "Go Fundamentals, Second Edition",
		Slug:     "go-fundamentals",
		Category: "programming",
		Price:    120000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(120000), updated.Price)
}

func TestCourseListPublishedServedFromCache(t *testing.T) {
	repo := newCourseRepoStub()
	repo.courses["c1"] = &models.Course{ID: "c1", Slug: "go", Published: true}
	cache := newCatalogCacheStub()
	svc := NewCourseService(repo, cache, nil, nil, CatalogCacheConfig{Enabled: true, TTL: time.Minute})

	published := true
	filter := models.CourseFilter{Published: &published}

	_, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	_, pagination, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestCourseMutationInvalidatesCatalogCache(t *testing.T) {
	repo := newCourseRepoStub()
	cache := newCatalogCacheStub()
	svc := NewCourseService(repo, cache, nil, nil, CatalogCacheConfig{Enabled: true, TTL: time.Minute})

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:    "Go Fundamentals",
		Category: "programming",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
}

func TestCourseStaffListBypassesCache(t *testing.T) {
	repo := newCourseRepoStub()
	repo.courses["c1"] = &models.Course{ID: "c1", Slug: "go", Published: false}
	cache := newCatalogCacheStub()
	svc := NewCourseService(repo, cache, nil, nil, CatalogCacheConfig{Enabled: true, TTL: time.Minute})

	// Unfiltered listings include drafts and must never come from cache.
	_, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	_, _, err = svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists)
	assert.Empty(t, cache.store)
}
