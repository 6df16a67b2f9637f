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
	"github.com/techlyn/academy-api/internal/repository"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	UpdateProgress(ctx context.Context, id string, progress int, status models.EnrollmentStatus, accessedAt time.Time) error
	DeleteByUserAndCourse(ctx context.Context, userID, courseID string) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type paymentSubmittedNotifier interface {
	PaymentSubmitted(toName, toEmail, courseTitle string, amount float64)
}

// EnrollRequest describes an enrollment submission with its payment
// evidence.
type EnrollRequest struct {
	CourseID         string     `json:"course_id" validate:"required,uuid4"`
	PaymentMethod    string     `json:"payment_method" validate:"required,oneof=bank_transfer"`
	PaymentReference string     `json:"payment_reference"`
	BankName         string     `json:"bank_name"`
	TransferDate     *time.Time `json:"transfer_date"`
}

// ProgressRequest updates learning progress on an enrollment.
type ProgressRequest struct {
	Progress int `json:"progress" validate:"gte=0,lte=100"`
}

// EnrollmentService orchestrates the enrollment ledger.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	users     userReader
	notifier  paymentSubmittedNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, users userReader, notifier paymentSubmittedNotifier, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, users: users, notifier: notifier, validator: validate, logger: logger}
}

// Enroll records a payment submission for a course. The amount is the
// course price at this moment, frozen onto the record; later price
// changes never alter it.
func (s *EnrollmentService) Enroll(ctx context.Context, userID string, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id must be a valid uuid")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	enrollment := &models.Enrollment{
		UserID:           userID,
		CourseID:         course.ID,
		Status:           models.EnrollmentStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		BankName:         req.BankName,
		TransferDate:     req.TransferDate,
		AmountPaid:       course.Price,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, s.conflictFor(ctx, userID, course.ID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if s.notifier != nil {
		s.notifier.PaymentSubmitted(user.FullName, user.Email, course.Title, enrollment.AmountPaid)
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.UserID != "" {
		if _, err := uuid.Parse(filter.UserID); err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "user id must be a valid uuid")
		}
	}
	if filter.CourseID != "" {
		if _, err := uuid.Parse(filter.CourseID); err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "course id must be a valid uuid")
		}
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with user and course context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id must be a valid uuid")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// UpdateProgress moves the learning progress of an active enrollment.
// Non-admin actors may only touch their own record. Reaching 100 marks
// the enrollment completed; any progress above zero promotes a freshly
// enrolled record to in-progress.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, id, actorID string, actorRole models.UserRole, req ProgressRequest) (*models.Enrollment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id must be a valid uuid")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "progress must be between 0 and 100")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if actorRole != models.RoleAdmin && enrollment.UserID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot update another student's progress")
	}

	switch enrollment.Status {
	case models.EnrollmentStatusPending:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is awaiting payment confirmation")
	case models.EnrollmentStatusCancelled:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "enrollment is cancelled")
	}

	status := enrollment.Status
	switch {
	case req.Progress >= 100:
		status = models.EnrollmentStatusCompleted
	case req.Progress > 0 && status == models.EnrollmentStatusEnrolled:
		status = models.EnrollmentStatusInProgress
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateProgress(ctx, id, req.Progress, status, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}

	enrollment.Progress = req.Progress
	enrollment.Status = status
	enrollment.LastAccessed = &now
	enrollment.UpdatedAt = now
	return enrollment, nil
}

// Unenroll removes the enrollment record for a (user, course) pair.
// This frees the unique slot, so a student whose enrollment was
// cancelled can submit again.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, courseID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "user id must be a valid uuid")
	}
	if _, err := uuid.Parse(courseID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "course id must be a valid uuid")
	}
	if err := s.repo.DeleteByUserAndCourse(ctx, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// conflictFor distinguishes the duplicate cases so the client can show
// the correct state: a payment still under review reads differently
// from a seat already granted.
func (s *EnrollmentService) conflictFor(ctx context.Context, userID, courseID string) error {
	existing, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrConflict, "enrollment already exists for this course")
	}
	switch existing.Status {
	case models.EnrollmentStatusPending:
		return appErrors.Clone(appErrors.ErrConflict, "a pending enrollment already exists for this course")
	case models.EnrollmentStatusCancelled:
		return appErrors.Clone(appErrors.ErrConflict, "a cancelled enrollment exists for this course; contact support to re-enroll")
	default:
		return appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
	}
}
