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

// Payment review actions.
const (
	PaymentActionApprove = "approve"
	PaymentActionReject  = "reject"
)

type paymentEnrollmentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	DecideTransition(ctx context.Context, id string, status models.EnrollmentStatus, paymentStatus models.PaymentStatus, enrollmentDate *time.Time) (bool, error)
}

type paymentDecidedNotifier interface {
	PaymentDecided(approved bool, toName, toEmail, courseTitle string)
}

// DecidePaymentRequest describes an admin review decision.
type DecidePaymentRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required,uuid4"`
	Action       string `json:"action" validate:"required,oneof=approve reject"`
}

// DecidePaymentResult carries the decided enrollment and a summary.
type DecidePaymentResult struct {
	Enrollment *models.EnrollmentDetail `json:"enrollment"`
	Message    string                   `json:"message"`
}

// PaymentService reviews submitted payments. A decision is a single
// conditional state transition from (pending, pending); anything else
// is rejected, never silently re-applied, so side effects like emails
// fire at most once per enrollment.
type PaymentService struct {
	repo      paymentEnrollmentRepository
	notifier  paymentDecidedNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentEnrollmentRepository, notifier paymentDecidedNotifier, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Decide applies an approve or reject decision to a pending payment.
func (s *PaymentService) Decide(ctx context.Context, req DecidePaymentRequest) (*DecidePaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment decision payload")
	}
	if _, err := uuid.Parse(req.EnrollmentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id must be a valid uuid")
	}

	detail, err := s.repo.FindDetailByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	approved := req.Action == PaymentActionApprove
	status := models.EnrollmentStatusCancelled
	paymentStatus := models.PaymentStatusFailed
	var enrollmentDate *time.Time
	if approved {
		status = models.EnrollmentStatusEnrolled
		paymentStatus = models.PaymentStatusPaid
		now := time.Now().UTC()
		enrollmentDate = &now
	}

	won, err := s.repo.DecideTransition(ctx, req.EnrollmentID, status, paymentStatus, enrollmentDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply payment decision")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "payment has already been decided for this enrollment")
	}

	if s.notifier != nil {
		s.notifier.PaymentDecided(approved, detail.UserName, detail.UserEmail, detail.CourseTitle)
	}

	decided, err := s.repo.FindDetailByID(ctx, req.EnrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload enrollment")
	}

	message := "payment rejected, enrollment cancelled"
	if approved {
		message = "payment approved, student enrolled"
	}
	s.logger.Info("payment decided",
		zap.String("enrollment_id", req.EnrollmentID),
		zap.String("action", req.Action),
	)
	return &DecidePaymentResult{Enrollment: decided, Message: message}, nil
}
