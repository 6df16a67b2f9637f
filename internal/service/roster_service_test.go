package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type mockRosterRepo struct {
	taughtIDs []string
	students  []models.CourseStudent
	excluded  string
}

func (m *mockRosterRepo) CourseIDsTaughtBy(ctx context.Context, tutorID string) ([]string, error) {
	return m.taughtIDs, nil
}

func (m *mockRosterRepo) StudentsOfTutor(ctx context.Context, tutorID string) ([]models.CourseStudent, error) {
	var out []models.CourseStudent
	for _, s := range m.students {
		if s.UserID != tutorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRosterRepo) StudentsForCourse(ctx context.Context, courseID, excludeUserID string) ([]models.CourseStudent, error) {
	m.excluded = excludeUserID
	var out []models.CourseStudent
	for _, s := range m.students {
		if s.CourseID == courseID && s.UserID != excludeUserID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockTutorCourses struct {
	courses map[string]models.Course
	byTutor map[string][]string
}

func (m *mockTutorCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTutorCourses) ListByTutor(ctx context.Context, tutorID string) ([]models.Course, error) {
	var out []models.Course
	for _, id := range m.byTutor[tutorID] {
		out = append(out, m.courses[id])
	}
	return out, nil
}

func TestCoursesTaughtByMergesLegacyLinks(t *testing.T) {
	tutorID := uuid.NewString()
	canonicalID := uuid.NewString()
	legacyID := uuid.NewString()

	courses := &mockTutorCourses{
		courses: map[string]models.Course{
			canonicalID: {ID: canonicalID, Title: "Canonical", TutorID: &tutorID},
			legacyID:    {ID: legacyID, Title: "Legacy"},
		},
		byTutor: map[string][]string{tutorID: {canonicalID}},
	}
	repo := &mockRosterRepo{taughtIDs: []string{canonicalID, legacyID}}
	users := &mockUserReader{users: map[string]models.User{
		tutorID: {ID: tutorID, Role: models.RoleTutor, FullName: "Tina Tutor", Active: true},
	}}
	svc := NewRosterService(repo, courses, users, nil)

	taught, err := svc.CoursesTaughtBy(context.Background(), tutorID)
	require.NoError(t, err)
	require.Len(t, taught, 2)
	ids := []string{taught[0].ID, taught[1].ID}
	assert.Contains(t, ids, canonicalID)
	assert.Contains(t, ids, legacyID)
}

func TestStudentsForCourseExcludesTutor(t *testing.T) {
	tutorID := uuid.NewString()
	courseID := uuid.NewString()
	studentID := uuid.NewString()

	courses := &mockTutorCourses{
		courses: map[string]models.Course{
			courseID: {ID: courseID, Title: "Go from Zero", TutorID: &tutorID, Slug: "go-from-zero"},
		},
	}
	repo := &mockRosterRepo{students: []models.CourseStudent{
		{UserID: studentID, CourseID: courseID, Name: "Ada Student", Email: "ada@example.com", Status: models.EnrollmentStatusEnrolled},
		{UserID: tutorID, CourseID: courseID, Name: "Tina Tutor", Status: models.EnrollmentStatusEnrolled},
	}}
	users := &mockUserReader{users: map[string]models.User{}}
	svc := NewRosterService(repo, courses, users, nil)

	students, err := svc.StudentsForCourse(context.Background(), courseID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, studentID, students[0].UserID)
	assert.Equal(t, tutorID, repo.excluded)
}

func TestStudentsOfRejectsNonTutor(t *testing.T) {
	studentID := uuid.NewString()
	users := &mockUserReader{users: map[string]models.User{
		studentID: {ID: studentID, Role: models.RoleStudent},
	}}
	svc := NewRosterService(&mockRosterRepo{}, &mockTutorCourses{}, users, nil)

	_, err := svc.StudentsOf(context.Background(), studentID)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestExportCourseRosterCSV(t *testing.T) {
	courseID := uuid.NewString()
	courses := &mockTutorCourses{
		courses: map[string]models.Course{
			courseID: {ID: courseID, Title: "Go from Zero", Slug: "go-from-zero"},
		},
	}
	repo := &mockRosterRepo{students: []models.CourseStudent{
		{UserID: uuid.NewString(), CourseID: courseID, Name: "Ada Student", Email: "ada@example.com", Status: models.EnrollmentStatusInProgress, Progress: 40},
	}}
	svc := NewRosterService(repo, courses, &mockUserReader{}, nil)

	out, err := svc.ExportCourseRoster(context.Background(), courseID, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "roster-go-from-zero.csv", out.Filename)
	assert.Equal(t, "text/csv", out.ContentType)
	body := string(out.Body)
	assert.True(t, strings.Contains(body, "Ada Student"))
	assert.True(t, strings.Contains(body, "40%"))
}

func TestExportCourseRosterUnknownFormat(t *testing.T) {
	svc := NewRosterService(&mockRosterRepo{}, &mockTutorCourses{}, &mockUserReader{}, nil)

	_, err := svc.ExportCourseRoster(context.Background(), uuid.NewString(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}
