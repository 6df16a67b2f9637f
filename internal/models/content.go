package models

import "time"

// ContentType is the closed set of lesson content kinds.
type ContentType string

// Lesson content kinds.
const (
	ContentVideo      ContentType = "video"
	ContentArticle    ContentType = "article"
	ContentQuiz       ContentType = "quiz"
	ContentAssignment ContentType = "assignment"
	ContentDownload   ContentType = "download"
)

// ValidContentType reports whether t is a known content kind.
func ValidContentType(t ContentType) bool {
	switch t {
	case ContentVideo, ContentArticle, ContentQuiz, ContentAssignment, ContentDownload:
		return true
	}
	return false
}

// Content is the leaf lesson entity. Its duration is the unit feeding
// both module and course aggregates. course_id is denormalized for
// direct course-level queries.
type Content struct {
	ID              string      `db:"id" json:"id"`
	ModuleID        string      `db:"module_id" json:"module_id"`
	CourseID        string      `db:"course_id" json:"course_id"`
	Title           string      `db:"title" json:"title"`
	Description     string      `db:"description" json:"description,omitempty"`
	Type            ContentType `db:"type" json:"type"`
	ContentURL      string      `db:"content_url" json:"content_url,omitempty"`
	StoragePublicID string      `db:"storage_public_id" json:"storage_public_id,omitempty"`
	DurationMinutes int         `db:"duration_minutes" json:"duration_minutes"`
	Position        int         `db:"position" json:"position"`
	IsFree          bool        `db:"is_free" json:"is_free"`
	IsPublished     bool        `db:"is_published" json:"is_published"`
	PublishedAt     *time.Time  `db:"published_at" json:"published_at,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}
