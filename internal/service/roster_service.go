package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
	"github.com/techlyn/academy-api/pkg/export"
)

// Supported roster export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type rosterRepository interface {
	CourseIDsTaughtBy(ctx context.Context, tutorID string) ([]string, error)
	StudentsOfTutor(ctx context.Context, tutorID string) ([]models.CourseStudent, error)
	StudentsForCourse(ctx context.Context, courseID, excludeUserID string) ([]models.CourseStudent, error)
}

type tutorCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByTutor(ctx context.Context, tutorID string) ([]models.Course, error)
}

// RosterExport is a rendered roster document ready to stream.
type RosterExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// RosterService answers who-teaches-what and who-is-enrolled-where.
type RosterService struct {
	repo    rosterRepository
	courses tutorCourseRepository
	users   userReader
	logger  *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(repo rosterRepository, courses tutorCourseRepository, users userReader, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{repo: repo, courses: courses, users: users, logger: logger}
}

// CoursesTaughtBy returns every course a tutor teaches. The canonical
// assignment on the course row wins; legacy enrollment-derived links
// are folded in for courses that never got a tutor_id backfill.
func (s *RosterService) CoursesTaughtBy(ctx context.Context, tutorID string) ([]models.Course, error) {
	tutor, err := s.requireTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	courses, err := s.courses.ListByTutor(ctx, tutor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutor courses")
	}

	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		seen[c.ID] = true
	}

	ids, err := s.repo.CourseIDsTaughtBy(ctx, tutor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve taught courses")
	}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		course, err := s.courses.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught course")
		}
		seen[id] = true
		courses = append(courses, *course)
	}
	return courses, nil
}

// StudentsOf returns every active student across a tutor's courses.
func (s *RosterService) StudentsOf(ctx context.Context, tutorID string) ([]models.CourseStudent, error) {
	tutor, err := s.requireTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.StudentsOfTutor(ctx, tutor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutor students")
	}
	return students, nil
}

// StudentsForCourse returns the active roster of one course. The
// course tutor never appears as their own student.
func (s *RosterService) StudentsForCourse(ctx context.Context, courseID string) ([]models.CourseStudent, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id must be a valid uuid")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exclude := ""
	if course.TutorID != nil {
		exclude = *course.TutorID
	}
	students, err := s.repo.StudentsForCourse(ctx, courseID, exclude)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course students")
	}
	return students, nil
}

// ExportCourseRoster renders a course roster as CSV or PDF.
func (s *RosterService) ExportCourseRoster(ctx context.Context, courseID, format string) (*RosterExport, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	students, err := s.StudentsForCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Status", "Progress", "Enrolled At", "Last Accessed"},
	}
	for _, st := range students {
		enrolledAt := ""
		if st.EnrolledAt != nil {
			enrolledAt = st.EnrolledAt.Format("2006-01-02")
		}
		lastAccessed := ""
		if st.LastAccessed != nil {
			lastAccessed = st.LastAccessed.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, []string{
			st.Name,
			st.Email,
			string(st.Status),
			fmt.Sprintf("%d%%", st.Progress),
			enrolledAt,
			lastAccessed,
		})
	}

	var body []byte
	contentType := "text/csv"
	ext := ExportFormatCSV
	switch format {
	case ExportFormatCSV:
		body, err = export.CSV(dataset)
	case ExportFormatPDF:
		body, err = export.PDF(dataset, fmt.Sprintf("Roster - %s", course.Title))
		contentType = "application/pdf"
		ext = ExportFormatPDF
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster export")
	}

	return &RosterExport{
		Filename:    fmt.Sprintf("roster-%s.%s", course.Slug, ext),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *RosterService) requireTutor(ctx context.Context, tutorID string) (*models.User, error) {
	if _, err := uuid.Parse(tutorID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutor id must be a valid uuid")
	}
	tutor, err := s.users.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if tutor.Role != models.RoleTutor && tutor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a tutor")
	}
	return tutor, nil
}
