package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type contentRepository interface {
	ListByModule(ctx context.Context, moduleID string) ([]models.Content, error)
	FindByID(ctx context.Context, id string) (*models.Content, error)
	Create(ctx context.Context, content *models.Content) error
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, id string) error
}

type moduleReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseModule, error)
}

type assetRemover interface {
	Delete(publicID string) error
}

// ContentRequest describes a content create or update payload.
type ContentRequest struct {
	Title           string             `json:"title" validate:"required,min=2"`
	Description     string             `json:"description"`
	Type            models.ContentType `json:"type" validate:"required"`
	ContentURL      string             `json:"content_url"`
	StoragePublicID string             `json:"storage_public_id"`
	DurationMinutes int                `json:"duration_minutes" validate:"gte=0"`
	Position        int                `json:"position" validate:"gte=0"`
	IsFree          bool               `json:"is_free"`
	IsPublished     bool               `json:"is_published"`
}

// ContentService orchestrates lesson contents.
type ContentService struct {
	repo      contentRepository
	modules   moduleReader
	assets    assetRemover
	cache     catalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService constructs ContentService.
func NewContentService(repo contentRepository, modules moduleReader, assets assetRemover, cache catalogCache, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{repo: repo, modules: modules, assets: assets, cache: cache, validator: validate, logger: logger}
}

// ListByModule returns the contents of a module in display order.
func (s *ContentService) ListByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	if _, err := uuid.Parse(moduleID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "module id must be a valid uuid")
	}
	contents, err := s.repo.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contents")
	}
	return contents, nil
}

// Get returns one content item.
func (s *ContentService) Get(ctx context.Context, id string) (*models.Content, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content id must be a valid uuid")
	}
	content, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return content, nil
}

// Create appends a content item to a module. The parent course id is
// denormalized onto the row so the aggregate update targets one course
// without a join.
func (s *ContentService) Create(ctx context.Context, moduleID string, req ContentRequest) (*models.Content, error) {
	if _, err := uuid.Parse(moduleID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "module id must be a valid uuid")
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	module, err := s.modules.FindByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	content := &models.Content{
		ModuleID:        module.ID,
		CourseID:        module.CourseID,
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		ContentURL:      req.ContentURL,
		StoragePublicID: req.StoragePublicID,
		DurationMinutes: req.DurationMinutes,
		Position:        req.Position,
		IsFree:          req.IsFree,
		IsPublished:     req.IsPublished,
	}
	if content.IsPublished {
		now := time.Now().UTC()
		content.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}

	s.invalidate(ctx)
	return content, nil
}

// Update edits a content item. The repository settles the duration
// aggregates against the row value it locks inside its transaction.
func (s *ContentService) Update(ctx context.Context, id string, req ContentRequest) (*models.Content, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content id must be a valid uuid")
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	content, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}

	if req.IsPublished && !content.IsPublished {
		now := time.Now().UTC()
		content.PublishedAt = &now
	}
	if !req.IsPublished {
		content.PublishedAt = nil
	}
	content.Title = req.Title
	content.Description = req.Description
	content.Type = req.Type
	content.ContentURL = req.ContentURL
	content.StoragePublicID = req.StoragePublicID
	content.DurationMinutes = req.DurationMinutes
	content.Position = req.Position
	content.IsFree = req.IsFree
	content.IsPublished = req.IsPublished

	if err := s.repo.Update(ctx, content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
	}

	s.invalidate(ctx)
	return content, nil
}

// Delete removes a content item, reverses its aggregate contribution
// and best-effort removes the backing stored asset.
func (s *ContentService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "content id must be a valid uuid")
	}

	content, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}

	if err := s.repo.Delete(ctx, content.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}

	if s.assets != nil && content.StoragePublicID != "" {
		if err := s.assets.Delete(content.StoragePublicID); err != nil {
			s.logger.Warn("failed to remove stored asset", zap.String("public_id", content.StoragePublicID), zap.Error(err))
		}
	}

	s.invalidate(ctx)
	return nil
}

func (s *ContentService) validateRequest(req ContentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	if !models.ValidContentType(req.Type) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}
	// Articles carry their body inline; everything else points at a file
	// or an external URL.
	if req.Type != models.ContentArticle && req.ContentURL == "" {
		return appErrors.Clone(appErrors.ErrValidation, "content url is required for non-article content")
	}
	return nil
}

func (s *ContentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
