package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[string]models.Course
	slugs   map[string]string
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]models.Course{}, slugs: map[string]string{}}
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	if id, ok := m.slugs[slug]; ok {
		c := m.courses[id]
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	id, ok := m.slugs[slug]
	if !ok {
		return false, nil
	}
	return id != excludeID, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	m.courses[course.ID] = *course
	m.slugs[course.Slug] = course.ID
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	old := m.courses[course.ID]
	if old.Slug != course.Slug {
		delete(m.slugs, old.Slug)
	}
	m.courses[course.ID] = *course
	m.slugs[course.Slug] = course.ID
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	c, ok := m.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(m.slugs, c.Slug)
	delete(m.courses, id)
	return nil
}

type mockCache struct {
	store       map[string][]byte
	invalidated int
	hits        map[string]interface{}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	if v, ok := m.hits[key]; ok {
		if course, ok := v.(models.Course); ok {
			if out, ok := dest.(*models.Course); ok {
				*out = course
				return nil
			}
		}
	}
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = map[string][]byte{}
	}
	m.store[key] = []byte("set")
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated++
	return nil
}

func validCourseRequest() CourseRequest {
	return CourseRequest{
		Title:         "Go from Zero",
		Description:   "Everything to ship production Go",
		Category:      models.CategoryWebDevelopment,
		Level:         models.LevelBeginner,
		DurationHours: 20,
		Price:         100,
	}
}

func TestCourseCreateGeneratesSlug(t *testing.T) {
	repo := newMockCourseRepo()
	cache := &mockCache{}
	svc := NewCourseService(repo, cache, nil, nil, 0)

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "go-from-zero", course.Slug)
	assert.Equal(t, 1, cache.invalidated)
}

func TestCourseCreateResolvesSlugCollision(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, &mockCache{}, nil, nil, 0)

	first, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "go-from-zero", first.Slug)
	assert.Equal(t, "go-from-zero-2", second.Slug)
}

func TestCourseUpdateRegeneratesSlugOnTitleChange(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, &mockCache{}, nil, nil, 0)

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)

	req := validCourseRequest()
	req.Title = "Advanced Go Patterns"
	updated, err := svc.Update(context.Background(), course.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "advanced-go-patterns", updated.Slug)
}

func TestCourseGetServedFromCache(t *testing.T) {
	repo := newMockCourseRepo()
	id := uuid.NewString()
	cache := &mockCache{hits: map[string]interface{}{
		"catalog:course:" + id: models.Course{ID: id, Title: "Cached Course"},
	}}
	// The repository is empty; a cache hit must not touch it.
	svc := NewCourseService(repo, cache, nil, nil, 0)

	course, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Cached Course", course.Title)
}

func TestCourseGetRejectsInvalidID(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), &mockCache{}, nil, nil, 0)

	_, err := svc.Get(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestCourseDeleteMissing(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), &mockCache{}, nil, nil, 0)

	err := svc.Delete(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestCourseCreateRejectsUnknownCategory(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), &mockCache{}, nil, nil, 0)

	req := validCourseRequest()
	req.Category = "Underwater Basket Weaving"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}
