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

type moduleRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseModule, error)
	FindByID(ctx context.Context, id string) (*models.CourseModule, error)
	Create(ctx context.Context, module *models.CourseModule) error
	Update(ctx context.Context, module *models.CourseModule) error
	Delete(ctx context.Context, id, courseID string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// ModuleRequest describes a module create or update payload.
type ModuleRequest struct {
	Title       string `json:"title" validate:"required,min=2"`
	Description string `json:"description"`
	Position    int    `json:"position" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

// ModuleService orchestrates the module layer of course content.
type ModuleService struct {
	repo      moduleRepository
	courses   courseReader
	cache     catalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs ModuleService.
func NewModuleService(repo moduleRepository, courses courseReader, cache catalogCache, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger}
}

// Get returns one module.
func (s *ModuleService) Get(ctx context.Context, id string) (*models.CourseModule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "module id must be a valid uuid")
	}

	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return module, nil
}

// ListByCourse returns the modules of a course in display order.
func (s *ModuleService) ListByCourse(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id must be a valid uuid")
	}
	modules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	return modules, nil
}

// Create appends a module to a course.
func (s *ModuleService) Create(ctx context.Context, courseID string, req ModuleRequest) (*models.CourseModule, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id must be a valid uuid")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	module := &models.CourseModule{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
		IsPublished: req.IsPublished,
	}
	if module.IsPublished {
		now := time.Now().UTC()
		module.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}

	s.invalidate(ctx)
	return module, nil
}

// Update edits a module.
func (s *ModuleService) Update(ctx context.Context, id string, req ModuleRequest) (*models.CourseModule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "module id must be a valid uuid")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}

	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	if req.IsPublished && !module.IsPublished {
		now := time.Now().UTC()
		module.PublishedAt = &now
	}
	if !req.IsPublished {
		module.PublishedAt = nil
	}
	module.Title = req.Title
	module.Description = req.Description
	module.Position = req.Position
	module.IsPublished = req.IsPublished

	if err := s.repo.Update(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update module")
	}

	s.invalidate(ctx)
	return module, nil
}

// Delete removes a module with its contents and settles the course
// aggregates in the same transaction.
func (s *ModuleService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "module id must be a valid uuid")
	}

	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	if err := s.repo.Delete(ctx, module.ID, module.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete module")
	}

	s.invalidate(ctx)
	return nil
}

func (s *ModuleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
