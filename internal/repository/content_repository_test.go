package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/techlyn/academy-api/internal/models"
)

func TestContentRepositoryCreateBumpsAggregates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET estimated_duration_minutes = estimated_duration_minutes + $2")).
		WithArgs("mod-1", 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET total_content = total_content + 1, total_duration_hours = total_duration_hours + $2, has_content = TRUE")).
		WithArgs("course-1", float64(30)/60, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	content := &models.Content{
		ModuleID:        "mod-1",
		CourseID:        "course-1",
		Title:           "Intro video",
		Type:            models.ContentVideo,
		ContentURL:      "https://cdn.example.com/intro.mp4",
		DurationMinutes: 30,
	}
	require.NoError(t, repo.Create(context.Background(), content))
	require.NotEmpty(t, content.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryCreateRollsBackOnAggregateFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE modules SET estimated_duration_minutes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE courses SET total_content").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Content{
		ModuleID:        "mod-1",
		CourseID:        "course-1",
		Title:           "Intro video",
		Type:            models.ContentVideo,
		DurationMinutes: 30,
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdateDerivesDeltaFromLockedRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	// The row holds 60 minutes by the time the lock is acquired (a
	// concurrent update got there first); the delta must be computed
	// against that value, not whatever the caller read earlier.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT duration_minutes FROM contents WHERE id = $1 FOR UPDATE")).
		WithArgs("content-1").
		WillReturnRows(sqlmock.NewRows([]string{"duration_minutes"}).AddRow(60))
	mock.ExpectExec("UPDATE contents SET title").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET estimated_duration_minutes = estimated_duration_minutes + $2")).
		WithArgs("mod-1", 90-60, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET total_duration_hours = total_duration_hours + $2")).
		WithArgs("course-1", float64(90-60)/60, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	content := &models.Content{
		ID:              "content-1",
		ModuleID:        "mod-1",
		CourseID:        "course-1",
		Title:           "Intro video",
		Type:            models.ContentVideo,
		DurationMinutes: 90,
	}
	require.NoError(t, repo.Update(context.Background(), content))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdateSkipsAggregatesWhenDurationUnchanged(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT duration_minutes FROM contents WHERE id = $1 FOR UPDATE")).
		WithArgs("content-1").
		WillReturnRows(sqlmock.NewRows([]string{"duration_minutes"}).AddRow(30))
	mock.ExpectExec("UPDATE contents SET title").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	content := &models.Content{
		ID:              "content-1",
		ModuleID:        "mod-1",
		CourseID:        "course-1",
		Title:           "Intro video",
		Type:            models.ContentVideo,
		DurationMinutes: 30,
	}
	require.NoError(t, repo.Update(context.Background(), content))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT duration_minutes FROM contents").
		WithArgs("content-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Content{
		ID:    "content-missing",
		Title: "Intro video",
		Type:  models.ContentVideo,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryDeleteReversesAggregatesFromDeletedRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	// The decrement uses the duration RETURNING gave back, which may
	// differ from what the caller last saw.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM contents WHERE id = $1 RETURNING module_id, course_id, duration_minutes")).
		WithArgs("content-1").
		WillReturnRows(sqlmock.NewRows([]string{"module_id", "course_id", "duration_minutes"}).AddRow("mod-1", "course-1", 45))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET estimated_duration_minutes = estimated_duration_minutes - $2")).
		WithArgs("mod-1", 45, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET total_content = total_content - 1, total_duration_hours = total_duration_hours - $2")).
		WithArgs("course-1", float64(45)/60, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "content-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM contents").
		WithArgs("content-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "content-missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
