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
	"github.com/techlyn/academy-api/internal/repository"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	byPair      map[string]string
	createErr   error
	deleted     []string
	progress    map[string]int
}

func (m *mockEnrollmentRepo) key(userID, courseID string) string { return userID + "|" + courseID }

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
		m.byPair = make(map[string]string)
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.byPair[m.key(enrollment.UserID, enrollment.CourseID)] = enrollment.ID
	return nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if id, ok := m.byPair[m.key(userID, courseID)]; ok {
		e := m.enrollments[id]
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		out = append(out, models.EnrollmentDetail{Enrollment: e})
	}
	return out, len(out), nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress int, status models.EnrollmentStatus, accessedAt time.Time) error {
	if m.progress == nil {
		m.progress = make(map[string]int)
	}
	m.progress[id] = progress
	if e, ok := m.enrollments[id]; ok {
		e.Progress = progress
		e.Status = status
		e.LastAccessed = &accessedAt
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) DeleteByUserAndCourse(ctx context.Context, userID, courseID string) error {
	key := m.key(userID, courseID)
	id, ok := m.byPair[key]
	if !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, id)
	delete(m.byPair, key)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserReader struct {
	users map[string]models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	submitted []string
	decided   []bool
}

func (m *mockNotifier) PaymentSubmitted(toName, toEmail, courseTitle string, amount float64) {
	m.submitted = append(m.submitted, toEmail)
}

func (m *mockNotifier) PaymentDecided(approved bool, toName, toEmail, courseTitle string) {
	m.decided = append(m.decided, approved)
}

func newEnrollmentFixture() (studentID, courseID string, repo *mockEnrollmentRepo, svc *EnrollmentService, notifier *mockNotifier) {
	studentID = uuid.NewString()
	courseID = uuid.NewString()
	repo = &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]models.Course{
		courseID: {ID: courseID, Title: "Go from Zero", Price: 100, Slug: "go-from-zero"},
	}}
	users := &mockUserReader{users: map[string]models.User{
		studentID: {ID: studentID, Email: "ada@example.com", FullName: "Ada Student", Role: models.RoleStudent, Active: true},
	}}
	notifier = &mockNotifier{}
	svc = NewEnrollmentService(repo, courses, users, notifier, nil, nil)
	return
}

func TestEnrollFreezesPriceSnapshot(t *testing.T) {
	studentID, courseID, repo, svc, notifier := newEnrollmentFixture()

	detail, err := svc.Enroll(context.Background(), studentID, EnrollRequest{
		CourseID:      courseID,
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, detail.AmountPaid)
	assert.Equal(t, models.EnrollmentStatusPending, detail.Status)
	assert.Equal(t, models.PaymentStatusPending, detail.PaymentStatus)
	assert.Len(t, notifier.submitted, 1)

	// A later price change must not touch the frozen amount.
	stored := repo.enrollments[detail.ID]
	assert.Equal(t, 100.0, stored.AmountPaid)
}

func TestEnrollDistinguishesConflictMessages(t *testing.T) {
	studentID, courseID, repo, svc, _ := newEnrollmentFixture()

	_, err := svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)

	repo.createErr = repository.ErrDuplicateEnrollment
	_, err = svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Contains(t, appErr.Message, "pending")

	// Flip the stored record to enrolled and check the other wording.
	for id, e := range repo.enrollments {
		e.Status = models.EnrollmentStatusEnrolled
		repo.enrollments[id] = e
	}
	_, err = svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Contains(t, appErr.Message, "already enrolled")
}

func TestEnrollUnknownCourse(t *testing.T) {
	studentID, _, _, svc, notifier := newEnrollmentFixture()

	_, err := svc.Enroll(context.Background(), studentID, EnrollRequest{
		CourseID:      uuid.NewString(),
		PaymentMethod: "bank_transfer",
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
	assert.Empty(t, notifier.submitted)
}

func TestEnrollRejectsInvalidIDs(t *testing.T) {
	_, _, _, svc, _ := newEnrollmentFixture()

	_, err := svc.Enroll(context.Background(), "not-a-uuid", EnrollRequest{
		CourseID:      uuid.NewString(),
		PaymentMethod: "bank_transfer",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestUpdateProgressTransitions(t *testing.T) {
	studentID, courseID, repo, svc, _ := newEnrollmentFixture()

	detail, err := svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)

	// A pending enrollment cannot accrue progress.
	_, err = svc.UpdateProgress(context.Background(), detail.ID, studentID, models.RoleStudent, ProgressRequest{Progress: 10})
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", appErrors.FromError(err).Code)

	e := repo.enrollments[detail.ID]
	e.Status = models.EnrollmentStatusEnrolled
	repo.enrollments[detail.ID] = e

	updated, err := svc.UpdateProgress(context.Background(), detail.ID, studentID, models.RoleStudent, ProgressRequest{Progress: 40})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusInProgress, updated.Status)

	updated, err = svc.UpdateProgress(context.Background(), detail.ID, studentID, models.RoleStudent, ProgressRequest{Progress: 100})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, updated.Status)
}

func TestUpdateProgressForbiddenForOtherStudent(t *testing.T) {
	studentID, courseID, repo, svc, _ := newEnrollmentFixture()

	detail, err := svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)

	e := repo.enrollments[detail.ID]
	e.Status = models.EnrollmentStatusEnrolled
	repo.enrollments[detail.ID] = e

	_, err = svc.UpdateProgress(context.Background(), detail.ID, uuid.NewString(), models.RoleStudent, ProgressRequest{Progress: 40})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}

func TestUnenrollFreesSlotForRetry(t *testing.T) {
	studentID, courseID, repo, svc, _ := newEnrollmentFixture()

	detail, err := svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)

	e := repo.enrollments[detail.ID]
	e.Status = models.EnrollmentStatusCancelled
	repo.enrollments[detail.ID] = e

	require.NoError(t, svc.Unenroll(context.Background(), studentID, courseID))

	repo.createErr = nil
	again, err := svc.Enroll(context.Background(), studentID, EnrollRequest{CourseID: courseID, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)
	assert.NotEqual(t, detail.ID, again.ID)
}

func TestUnenrollMissing(t *testing.T) {
	studentID, courseID, _, svc, _ := newEnrollmentFixture()

	err := svc.Unenroll(context.Background(), studentID, courseID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}
