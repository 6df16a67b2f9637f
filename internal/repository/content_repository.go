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

const contentColumns = `id, module_id, course_id, title, description, type, content_url, storage_public_id, duration_minutes, position, is_free, is_published, published_at, created_at, updated_at`

// ContentRepository handles persistence of lesson contents. Every write
// that changes the content set or its duration also adjusts the parent
// module and course aggregates with relative increments in the same
// transaction.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// ListByModule returns the contents of a module ordered by position.
func (r *ContentRepository) ListByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE module_id = $1 ORDER BY position ASC, created_at ASC`, contentColumns)
	var contents []models.Content
	if err := r.db.SelectContext(ctx, &contents, query, moduleID); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return contents, nil
}

// FindByID returns a content item by identifier.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (*models.Content, error) {
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE id = $1 LIMIT 1`, contentColumns)
	var content models.Content
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find content by id: %w", err)
	}
	return &content, nil
}

// Create inserts a content item and bumps the course content count and
// duration in the same transaction.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create content: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const insert = `INSERT INTO contents (id, module_id, course_id, title, description, type, content_url, storage_public_id, duration_minutes, position, is_free, is_published, published_at, created_at, updated_at)
        VALUES (:id, :module_id, :course_id, :title, :description, :type, :content_url, :storage_public_id, :duration_minutes, :position, :is_free, :is_published, :published_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, content); err != nil {
		return fmt.Errorf("create content: %w", err)
	}

	const bumpModule = `UPDATE modules SET estimated_duration_minutes = estimated_duration_minutes + $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bumpModule, content.ModuleID, content.DurationMinutes, now); err != nil {
		return fmt.Errorf("bump module duration: %w", err)
	}

	const bump = `UPDATE courses SET total_content = total_content + 1, total_duration_hours = total_duration_hours + $2, has_content = TRUE, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, content.CourseID, float64(content.DurationMinutes)/60, now); err != nil {
		return fmt.Errorf("bump course content aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create content: %w", err)
	}
	committed = true
	return nil
}

// Update updates a content item. The previous duration is read under a
// row lock inside the transaction, so the aggregate delta is always
// computed against the value this update actually replaces, never a
// stale read from before the transaction began.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	now := time.Now().UTC()
	content.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update content: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var previousDurationMinutes int
	if err := tx.GetContext(ctx, &previousDurationMinutes, `SELECT duration_minutes FROM contents WHERE id = $1 FOR UPDATE`, content.ID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock content row: %w", err)
	}

	const update = `UPDATE contents SET title = :title, description = :description, type = :type, content_url = :content_url, storage_public_id = :storage_public_id, duration_minutes = :duration_minutes, position = :position, is_free = :is_free, is_published = :is_published, published_at = :published_at, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, content); err != nil {
		return fmt.Errorf("update content: %w", err)
	}

	if content.DurationMinutes != previousDurationMinutes {
		deltaMinutes := content.DurationMinutes - previousDurationMinutes
		const adjustModule = `UPDATE modules SET estimated_duration_minutes = estimated_duration_minutes + $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, adjustModule, content.ModuleID, deltaMinutes, now); err != nil {
			return fmt.Errorf("adjust module duration: %w", err)
		}

		const adjust = `UPDATE courses SET total_duration_hours = total_duration_hours + $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, adjust, content.CourseID, float64(deltaMinutes)/60, now); err != nil {
			return fmt.Errorf("adjust course duration: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update content: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a content item and reverses its aggregate
// contribution. The decrement is driven by the deleted row itself via
// RETURNING, so it always matches what the row held at deletion time.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete content: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var removed struct {
		ModuleID        string `db:"module_id"`
		CourseID        string `db:"course_id"`
		DurationMinutes int    `db:"duration_minutes"`
	}
	if err := tx.GetContext(ctx, &removed, `DELETE FROM contents WHERE id = $1 RETURNING module_id, course_id, duration_minutes`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete content: %w", err)
	}

	now := time.Now().UTC()
	const dropModule = `UPDATE modules SET estimated_duration_minutes = estimated_duration_minutes - $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, dropModule, removed.ModuleID, removed.DurationMinutes, now); err != nil {
		return fmt.Errorf("drop module duration: %w", err)
	}

	const drop = `UPDATE courses SET total_content = total_content - 1, total_duration_hours = total_duration_hours - $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, drop, removed.CourseID, float64(removed.DurationMinutes)/60, now); err != nil {
		return fmt.Errorf("drop course content aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete content: %w", err)
	}
	committed = true
	return nil
}
