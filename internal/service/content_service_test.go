package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type mockContentRepo struct {
	contents map[string]models.Content
}

func (m *mockContentRepo) ListByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	var out []models.Content
	for _, c := range m.contents {
		if c.ModuleID == moduleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContentRepo) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := m.contents[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) Create(ctx context.Context, content *models.Content) error {
	if m.contents == nil {
		m.contents = make(map[string]models.Content)
	}
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	m.contents[content.ID] = *content
	return nil
}

func (m *mockContentRepo) Update(ctx context.Context, content *models.Content) error {
	if _, ok := m.contents[content.ID]; !ok {
		return sql.ErrNoRows
	}
	m.contents[content.ID] = *content
	return nil
}

func (m *mockContentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.contents[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.contents, id)
	return nil
}

type mockModuleReader struct {
	modules map[string]models.CourseModule
}

func (m *mockModuleReader) FindByID(ctx context.Context, id string) (*models.CourseModule, error) {
	if mod, ok := m.modules[id]; ok {
		return &mod, nil
	}
	return nil, sql.ErrNoRows
}

type mockAssetStore struct {
	removed []string
}

func (m *mockAssetStore) Delete(publicID string) error {
	m.removed = append(m.removed, publicID)
	return nil
}

func newContentFixture() (moduleID, courseID string, repo *mockContentRepo, assets *mockAssetStore, svc *ContentService) {
	moduleID = uuid.NewString()
	courseID = uuid.NewString()
	repo = &mockContentRepo{}
	modules := &mockModuleReader{modules: map[string]models.CourseModule{
		moduleID: {ID: moduleID, CourseID: courseID, Title: "Getting started"},
	}}
	assets = &mockAssetStore{}
	svc = NewContentService(repo, modules, assets, &mockCache{}, nil, nil)
	return
}

func TestContentCreateDenormalizesCourseID(t *testing.T) {
	moduleID, courseID, _, _, svc := newContentFixture()

	content, err := svc.Create(context.Background(), moduleID, ContentRequest{
		Title:           "Intro video",
		Type:            models.ContentVideo,
		ContentURL:      "https://cdn.example.com/intro.mp4",
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, courseID, content.CourseID)
	assert.Equal(t, moduleID, content.ModuleID)
}

func TestContentCreateRequiresURLForNonArticle(t *testing.T) {
	moduleID, _, _, _, svc := newContentFixture()

	_, err := svc.Create(context.Background(), moduleID, ContentRequest{
		Title: "Intro video",
		Type:  models.ContentVideo,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)

	// Articles carry their body inline and need no URL.
	_, err = svc.Create(context.Background(), moduleID, ContentRequest{
		Title: "Reading notes",
		Type:  models.ContentArticle,
	})
	require.NoError(t, err)
}

func TestContentUpdatePersistsNewDuration(t *testing.T) {
	moduleID, _, repo, _, svc := newContentFixture()

	content, err := svc.Create(context.Background(), moduleID, ContentRequest{
		Title:           "Intro video",
		Type:            models.ContentVideo,
		ContentURL:      "https://cdn.example.com/intro.mp4",
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), content.ID, ContentRequest{
		Title:           "Intro video",
		Type:            models.ContentVideo,
		ContentURL:      "https://cdn.example.com/intro.mp4",
		DurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, updated.DurationMinutes)
	assert.Equal(t, 45, repo.contents[content.ID].DurationMinutes)
}

func TestContentUpdateMissingRowIsNotFound(t *testing.T) {
	_, _, _, _, svc := newContentFixture()

	_, err := svc.Update(context.Background(), uuid.NewString(), ContentRequest{
		Title:      "Intro video",
		Type:       models.ContentVideo,
		ContentURL: "https://cdn.example.com/intro.mp4",
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestContentDeleteRemovesStoredAsset(t *testing.T) {
	moduleID, _, _, assets, svc := newContentFixture()

	content, err := svc.Create(context.Background(), moduleID, ContentRequest{
		Title:           "Workbook",
		Type:            models.ContentDownload,
		ContentURL:      "/uploads/workbook.pdf",
		StoragePublicID: "abc123-workbook.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), content.ID))
	require.Len(t, assets.removed, 1)
	assert.Equal(t, "abc123-workbook.pdf", assets.removed[0])
}
