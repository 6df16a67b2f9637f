package models

import "time"

// EnrollmentStatus represents the pedagogical lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending    EnrollmentStatus = "pending"
	EnrollmentStatusEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentStatusInProgress EnrollmentStatus = "in-progress"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
	EnrollmentStatusCancelled  EnrollmentStatus = "cancelled"
)

// PaymentStatus represents the payment verification state.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ActiveEnrollmentStatuses are the statuses granting course access; the
// roster read paths filter to these.
var ActiveEnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusEnrolled,
	EnrollmentStatusInProgress,
	EnrollmentStatusCompleted,
}

// Enrollment is the join record between a user and a course, carrying
// both pedagogical status and payment status. AmountPaid is a snapshot
// of Course.price at enrollment time and is never recomputed.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	CourseID         string           `db:"course_id" json:"course_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus    PaymentStatus    `db:"payment_status" json:"payment_status"`
	PaymentMethod    string           `db:"payment_method" json:"payment_method"`
	PaymentReference string           `db:"payment_reference" json:"payment_reference,omitempty"`
	BankName         string           `db:"bank_name" json:"bank_name,omitempty"`
	TransferDate     *time.Time       `db:"transfer_date" json:"transfer_date,omitempty"`
	AmountPaid       float64          `db:"amount_paid" json:"amount_paid"`
	Progress         int              `db:"progress" json:"progress"`
	EnrollmentDate   *time.Time       `db:"enrollment_date" json:"enrollment_date,omitempty"`
	LastAccessed     *time.Time       `db:"last_accessed" json:"last_accessed,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with user and course summary
// fields needed by dashboards.
type EnrollmentDetail struct {
	Enrollment
	UserName       string         `db:"user_name" json:"user_name"`
	UserEmail      string         `db:"user_email" json:"user_email"`
	UserAvatar     string         `db:"user_avatar" json:"user_avatar,omitempty"`
	CourseTitle    string         `db:"course_title" json:"course_title"`
	CourseCategory CourseCategory `db:"course_category" json:"course_category"`
	CourseLevel    CourseLevel    `db:"course_level" json:"course_level"`
	CoursePrice    float64        `db:"course_price" json:"course_price"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID    string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseStudent is the flattened roster view of one enrolled student.
type CourseStudent struct {
	UserID         string           `db:"user_id" json:"user_id"`
	Name           string           `db:"user_name" json:"name"`
	Email          string           `db:"user_email" json:"email"`
	Avatar         string           `db:"user_avatar" json:"avatar,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	Progress       int              `db:"progress" json:"progress"`
	EnrolledAt     *time.Time       `db:"enrollment_date" json:"enrolled_at,omitempty"`
	LastAccessed   *time.Time       `db:"last_accessed" json:"last_accessed,omitempty"`
	CourseID       string           `db:"course_id" json:"course_id"`
	CourseTitle    string           `db:"course_title" json:"course_title"`
	CourseCategory CourseCategory   `db:"course_category" json:"course_category"`
	CourseLevel    CourseLevel      `db:"course_level" json:"course_level"`
}
