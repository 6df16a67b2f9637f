package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type mockPaymentRepo struct {
	detail      *models.EnrollmentDetail
	findErr     error
	transitions int
}

func (m *mockPaymentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	d := *m.detail
	return &d, nil
}

func (m *mockPaymentRepo) DecideTransition(ctx context.Context, id string, status models.EnrollmentStatus, paymentStatus models.PaymentStatus, enrollmentDate *time.Time) (bool, error) {
	if m.detail == nil || m.detail.ID != id {
		return false, nil
	}
	if m.detail.Status != models.EnrollmentStatusPending || m.detail.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	m.detail.Status = status
	m.detail.PaymentStatus = paymentStatus
	m.detail.EnrollmentDate = enrollmentDate
	m.transitions++
	return true, nil
}

func pendingDetail() *models.EnrollmentDetail {
	return &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:            uuid.NewString(),
			UserID:        uuid.NewString(),
			CourseID:      uuid.NewString(),
			Status:        models.EnrollmentStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			AmountPaid:    100,
		},
		UserName:    "Ada Student",
		UserEmail:   "ada@example.com",
		CourseTitle: "Go from Zero",
	}
}

func TestDecideApprove(t *testing.T) {
	repo := &mockPaymentRepo{detail: pendingDetail()}
	notifier := &mockNotifier{}
	svc := NewPaymentService(repo, notifier, nil, nil)

	result, err := svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: repo.detail.ID,
		Action:       PaymentActionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, result.Enrollment.Status)
	assert.Equal(t, models.PaymentStatusPaid, result.Enrollment.PaymentStatus)
	require.NotNil(t, result.Enrollment.EnrollmentDate)
	assert.Equal(t, 100.0, result.Enrollment.AmountPaid)
	require.Len(t, notifier.decided, 1)
	assert.True(t, notifier.decided[0])
}

func TestDecideReject(t *testing.T) {
	repo := &mockPaymentRepo{detail: pendingDetail()}
	notifier := &mockNotifier{}
	svc := NewPaymentService(repo, notifier, nil, nil)

	result, err := svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: repo.detail.ID,
		Action:       PaymentActionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, result.Enrollment.Status)
	assert.Equal(t, models.PaymentStatusFailed, result.Enrollment.PaymentStatus)
	assert.Nil(t, result.Enrollment.EnrollmentDate)
	require.Len(t, notifier.decided, 1)
	assert.False(t, notifier.decided[0])
}

func TestDecideAlreadyDecided(t *testing.T) {
	repo := &mockPaymentRepo{detail: pendingDetail()}
	notifier := &mockNotifier{}
	svc := NewPaymentService(repo, notifier, nil, nil)

	_, err := svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: repo.detail.ID,
		Action:       PaymentActionApprove,
	})
	require.NoError(t, err)

	// Re-approving must fail loudly, with no second notification.
	_, err = svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: repo.detail.ID,
		Action:       PaymentActionApprove,
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", appErrors.FromError(err).Code)
	assert.Equal(t, 1, repo.transitions)
	assert.Len(t, notifier.decided, 1)
}

func TestDecideUnknownEnrollment(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockNotifier{}, nil, nil)

	_, err := svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: uuid.NewString(),
		Action:       PaymentActionApprove,
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestDecideStorageTimeoutIsUnavailable(t *testing.T) {
	repo := &mockPaymentRepo{
		findErr: fmt.Errorf("find enrollment detail: %w", context.DeadlineExceeded),
	}
	svc := NewPaymentService(repo, &mockNotifier{}, nil, nil)

	_, err := svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: uuid.NewString(),
		Action:       PaymentActionApprove,
	})
	require.Error(t, err)
	assert.Equal(t, "UNAVAILABLE", appErrors.FromError(err).Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErrors.FromError(err).Status)
}

func TestDecideInvalidAction(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockNotifier{}, nil, nil)

	_, err := svc.Decide(context.Background(), DecidePaymentRequest{
		EnrollmentID: uuid.NewString(),
		Action:       "maybe",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}
