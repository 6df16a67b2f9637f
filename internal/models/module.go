package models

import "time"

// CourseModule groups ordered content within a course. Its estimated
// duration is the sum of child content durations, maintained by the
// content lifecycle, never recomputed on read.
type CourseModule struct {
	ID                       string     `db:"id" json:"id"`
	CourseID                 string     `db:"course_id" json:"course_id"`
	Title                    string     `db:"title" json:"title"`
	Description              string     `db:"description" json:"description,omitempty"`
	Position                 int        `db:"position" json:"position"`
	IsPublished              bool       `db:"is_published" json:"is_published"`
	PublishedAt              *time.Time `db:"published_at" json:"published_at,omitempty"`
	EstimatedDurationMinutes int        `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}
