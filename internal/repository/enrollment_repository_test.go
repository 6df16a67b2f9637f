package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/techlyn/academy-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_user_id_course_id_key"})

	err := repo.Create(context.Background(), &models.Enrollment{
		UserID:        "user-1",
		CourseID:      "course-1",
		Status:        models.EnrollmentStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: "bank-transfer",
		AmountPaid:    49.99,
	})
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateSuccess(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{
		UserID:        "user-1",
		CourseID:      "course-1",
		Status:        models.EnrollmentStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: "bank-transfer",
		AmountPaid:    49.99,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDecideTransitionWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, payment_status = $3, enrollment_date = $4, updated_at = $5")).
		WithArgs("enr-1", models.EnrollmentStatusEnrolled, models.PaymentStatusPaid, &now, sqlmock.AnyArg(), models.EnrollmentStatusPending, models.PaymentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.DecideTransition(context.Background(), "enr-1", models.EnrollmentStatusEnrolled, models.PaymentStatusPaid, &now)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDecideTransitionAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.DecideTransition(context.Background(), "enr-1", models.EnrollmentStatusCancelled, models.PaymentStatusFailed, nil)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByUserAndCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "status", "payment_status", "payment_method", "payment_reference", "bank_name", "transfer_date", "amount_paid", "progress", "enrollment_date", "last_accessed", "created_at", "updated_at"}).
		AddRow("enr-1", "user-1", "course-1", models.EnrollmentStatusPending, models.PaymentStatusPending, "bank-transfer", "TRX-1", "First National", nil, 49.99, 0, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, course_id, status, payment_status, payment_method, payment_reference, bank_name, transfer_date, amount_paid, progress, enrollment_date, last_accessed, created_at, updated_at FROM enrollments WHERE user_id = $1 AND course_id = $2")).
		WithArgs("user-1", "course-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByUserAndCourse(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.Equal(t, 49.99, enrollment.AmountPaid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteByUserAndCourseMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2")).
		WithArgs("user-1", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByUserAndCourse(context.Background(), "user-1", "course-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryStudentsForCourseExcludesTutor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "user_name", "user_email", "user_avatar", "status", "progress", "enrollment_date", "last_accessed", "course_id", "course_title", "course_category", "course_level"}).
		AddRow("user-2", "Ada Student", "ada@example.com", "", models.EnrollmentStatusInProgress, 40, &now, &now, "course-1", "Go from Zero", models.CategoryWebDevelopment, models.LevelBeginner)
	mock.ExpectQuery(regexp.QuoteMeta("AND e.user_id <> $5")).
		WithArgs("course-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted, "tutor-1").
		WillReturnRows(rows)

	students, err := repo.StudentsForCourse(context.Background(), "course-1", "tutor-1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "user-2", students[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCourseIDsTaughtBy(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id"}).AddRow("course-1").AddRow("course-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE tutor_id = $1")).
		WithArgs("tutor-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted).
		WillReturnRows(rows)

	ids, err := repo.CourseIDsTaughtBy(context.Background(), "tutor-1")
	require.NoError(t, err)
	require.Equal(t, []string{"course-1", "course-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
