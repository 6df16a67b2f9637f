package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/techlyn/academy-api/internal/models"
)

// ErrDuplicateEnrollment is returned when the (user, course) pair is
// already taken. The unique index is the arbiter, not a prior SELECT,
// so two racing submissions cannot both win.
var ErrDuplicateEnrollment = errors.New("enrollment already exists for user and course")

const enrollmentColumns = `id, user_id, course_id, status, payment_status, payment_method, payment_reference, bank_name, transfer_date, amount_paid, progress, enrollment_date, last_accessed, created_at, updated_at`

const uniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create persists a new enrollment record. A unique-index violation on
// (user_id, course_id) is mapped to ErrDuplicateEnrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, user_id, course_id, status, payment_status, payment_method, payment_reference, bank_name, transfer_date, amount_paid, progress, enrollment_date, last_accessed, created_at, updated_at)
        VALUES (:id, :user_id, :course_id, :status, :payment_status, :payment_method, :payment_reference, :bank_name, :transfer_date, :amount_paid, :progress, :enrollment_date, :last_accessed, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return &enrollment, nil
}

// FindByUserAndCourse returns the enrollment for a (user, course) pair.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by user and course: %w", err)
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with user and course context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.status, e.payment_status, e.payment_method, e.payment_reference, e.bank_name, e.transfer_date, e.amount_paid, e.progress, e.enrollment_date, e.last_accessed, e.created_at, e.updated_at,
        u.full_name AS user_name, u.email AS user_email, u.avatar_url AS user_avatar,
        c.title AS course_title, c.category AS course_category, c.level AS course_level, c.price AS course_price
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.user_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	return &detail, nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.user_id
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":      "e.created_at",
		"enrollment_date": "e.enrollment_date",
		"user_name":       "u.full_name",
		"course_title":    "c.title",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.course_id, e.status, e.payment_status, e.payment_method, e.payment_reference, e.bank_name, e.transfer_date, e.amount_paid, e.progress, e.enrollment_date, e.last_accessed, e.created_at, e.updated_at,
        u.full_name AS user_name, u.email AS user_email, u.avatar_url AS user_avatar,
        c.title AS course_title, c.category AS course_category, c.level AS course_level, c.price AS course_price
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// DecideTransition moves a doubly pending enrollment to its decided
// states in one conditional UPDATE. The WHERE clause carries the
// expected source states, so of two concurrent deciders exactly one
// observes a row change; the other gets false and no write happened.
func (r *EnrollmentRepository) DecideTransition(ctx context.Context, id string, status models.EnrollmentStatus, paymentStatus models.PaymentStatus, enrollmentDate *time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $2, payment_status = $3, enrollment_date = $4, updated_at = $5
        WHERE id = $1 AND status = $6 AND payment_status = $7`
	res, err := r.db.ExecContext(ctx, query, id, status, paymentStatus, enrollmentDate, time.Now().UTC(), models.EnrollmentStatusPending, models.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("decide enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide enrollment result: %w", err)
	}
	return affected > 0, nil
}

// UpdateProgress updates progress, derived status and last access time.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress int, status models.EnrollmentStatus, accessedAt time.Time) error {
	const query = `UPDATE enrollments SET progress = $2, status = $3, last_accessed = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress, status, accessedAt); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}

// DeleteByUserAndCourse removes the enrollment record for a pair,
// freeing the unique slot so the user can enroll again.
func (r *EnrollmentRepository) DeleteByUserAndCourse(ctx context.Context, userID, courseID string) error {
	const query = `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CourseIDsTaughtBy returns the ids of courses taught by a tutor. The
// canonical assignment is courses.tutor_id; enrollments held by the
// tutor on a course are kept as a legacy signal and folded in.
func (r *EnrollmentRepository) CourseIDsTaughtBy(ctx context.Context, tutorID string) ([]string, error) {
	const query = `SELECT id FROM courses WHERE tutor_id = $1
        UNION
        SELECT course_id FROM enrollments WHERE user_id = $1 AND status IN ($2, $3, $4)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, tutorID,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list taught course ids: %w", err)
	}
	return ids, nil
}

// StudentsForCourse returns the active roster of a course. The
// excluded user (the course tutor) never appears in their own roster.
func (r *EnrollmentRepository) StudentsForCourse(ctx context.Context, courseID, excludeUserID string) ([]models.CourseStudent, error) {
	query := `SELECT e.user_id, u.full_name AS user_name, u.email AS user_email, u.avatar_url AS user_avatar,
        e.status, e.progress, e.enrollment_date, e.last_accessed,
        e.course_id, c.title AS course_title, c.category AS course_category, c.level AS course_level
        FROM enrollments e
        JOIN users u ON u.id = e.user_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1 AND e.status IN ($2, $3, $4)`
	args := []interface{}{courseID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted}
	if excludeUserID != "" {
		query += fmt.Sprintf(" AND e.user_id <> $%d", len(args)+1)
		args = append(args, excludeUserID)
	}
	query += " ORDER BY u.full_name ASC"

	var students []models.CourseStudent
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return students, nil
}

// StudentsOfTutor returns active students across every course the
// tutor teaches, excluding the tutor themselves.
func (r *EnrollmentRepository) StudentsOfTutor(ctx context.Context, tutorID string) ([]models.CourseStudent, error) {
	const query = `SELECT e.user_id, u.full_name AS user_name, u.email AS user_email, u.avatar_url AS user_avatar,
        e.status, e.progress, e.enrollment_date, e.last_accessed,
        e.course_id, c.title AS course_title, c.category AS course_category, c.level AS course_level
        FROM enrollments e
        JOIN users u ON u.id = e.user_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id IN (
            SELECT id FROM courses WHERE tutor_id = $1
            UNION
            SELECT course_id FROM enrollments WHERE user_id = $1 AND status IN ($2, $3, $4)
        )
        AND e.status IN ($2, $3, $4)
        AND e.user_id <> $1
        ORDER BY e.enrollment_date DESC NULLS LAST, c.title ASC`
	var students []models.CourseStudent
	if err := r.db.SelectContext(ctx, &students, query, tutorID,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list tutor students: %w", err)
	}
	return students, nil
}
