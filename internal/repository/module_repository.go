package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/techlyn/academy-api/internal/models"
)

const moduleColumns = `id, course_id, title, description, position, is_published, published_at, estimated_duration_minutes, created_at, updated_at`

// ModuleRepository handles persistence of course modules. Writes that
// change the module set also maintain the denormalized aggregates on
// the parent course, in the same transaction.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListByCourse returns the modules of a course ordered by position.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	query := fmt.Sprintf(`SELECT %s FROM modules WHERE course_id = $1 ORDER BY position ASC, created_at ASC`, moduleColumns)
	var modules []models.CourseModule
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindByID returns a module by identifier.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.CourseModule, error) {
	query := fmt.Sprintf(`SELECT %s FROM modules WHERE id = $1 LIMIT 1`, moduleColumns)
	var module models.CourseModule
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find module by id: %w", err)
	}
	return &module, nil
}

// Create inserts a module and bumps the parent course aggregates
// atomically. The course row update uses relative increments so that
// concurrent writers never read-modify-write a stale total.
func (r *ModuleRepository) Create(ctx context.Context, module *models.CourseModule) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if module.CreatedAt.IsZero() {
		module.CreatedAt = now
	}
	module.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create module: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const insert = `INSERT INTO modules (id, course_id, title, description, position, is_published, published_at, estimated_duration_minutes, created_at, updated_at)
        VALUES (:id, :course_id, :title, :description, :position, :is_published, :published_at, :estimated_duration_minutes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}

	const bump = `UPDATE courses SET total_modules = total_modules + 1, has_content = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, module.CourseID, now); err != nil {
		return fmt.Errorf("bump course module count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create module: %w", err)
	}
	committed = true
	return nil
}

// Update updates the editable fields of a module. The estimated
// duration is a content-derived aggregate and is never written here.
func (r *ModuleRepository) Update(ctx context.Context, module *models.CourseModule) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET title = :title, description = :description, position = :position, is_published = :is_published, published_at = :published_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// Delete removes a module and its contents, folding the child content
// decrements and the module decrement into a single course update so
// the aggregates move once per cascade, not once per row.
func (r *ModuleRepository) Delete(ctx context.Context, id, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete module: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// The decrements are derived from the rows the DELETE itself removed,
	// so a content row committed by a concurrent writer is either counted
	// and deleted, or neither.
	var removed struct {
		Count           int     `db:"count"`
		DurationMinutes float64 `db:"duration_minutes"`
	}
	const removeContents = `WITH removed AS (DELETE FROM contents WHERE module_id = $1 RETURNING duration_minutes)
        SELECT COUNT(*) AS count, COALESCE(SUM(duration_minutes), 0) AS duration_minutes FROM removed`
	if err := tx.GetContext(ctx, &removed, removeContents, id); err != nil {
		return fmt.Errorf("delete module contents: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete module result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const drop = `UPDATE courses SET
        total_modules = total_modules - 1,
        total_content = total_content - $2,
        total_duration_hours = total_duration_hours - $3,
        has_content = (total_modules - 1) > 0,
        updated_at = $4
        WHERE id = $1`
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, drop, courseID, removed.Count, removed.DurationMinutes/60, now); err != nil {
		return fmt.Errorf("drop course module aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete module: %w", err)
	}
	committed = true
	return nil
}
