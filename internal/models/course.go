package models

import "time"

// CourseCategory is the closed set of catalog categories.
type CourseCategory string

// Catalog categories.
const (
	CategoryWebDevelopment CourseCategory = "Web Development"
	CategoryDesign         CourseCategory = "Design"
	CategoryAppDevelopment CourseCategory = "App Development"
	CategoryDataScience    CourseCategory = "Data Science"
	CategoryMarketing      CourseCategory = "Marketing"
)

// CourseLevel is the closed set of difficulty levels.
type CourseLevel string

// Difficulty levels.
const (
	LevelBeginner     CourseLevel = "Beginner"
	LevelIntermediate CourseLevel = "Intermediate"
	LevelAdvanced     CourseLevel = "Advanced"
)

// ValidCategory reports whether c is a known catalog category.
func ValidCategory(c CourseCategory) bool {
	switch c {
	case CategoryWebDevelopment, CategoryDesign, CategoryAppDevelopment, CategoryDataScience, CategoryMarketing:
		return true
	}
	return false
}

// ValidLevel reports whether l is a known difficulty level.
func ValidLevel(l CourseLevel) bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course is a catalog entry. The total_* columns are denormalized
// aggregates maintained by module/content lifecycle events; they are
// never written through the course edit path.
type Course struct {
	ID                 string         `db:"id" json:"id"`
	Title              string         `db:"title" json:"title"`
	Description        string         `db:"description" json:"description"`
	Category           CourseCategory `db:"category" json:"category"`
	Level              CourseLevel    `db:"level" json:"level"`
	DurationHours      int            `db:"duration_hours" json:"duration_hours"`
	Price              float64        `db:"price" json:"price"`
	IsFeatured         bool           `db:"is_featured" json:"is_featured"`
	Slug               string         `db:"slug" json:"slug"`
	TutorID            *string        `db:"tutor_id" json:"tutor_id,omitempty"`
	HasContent         bool           `db:"has_content" json:"has_content"`
	TotalModules       int            `db:"total_modules" json:"total_modules"`
	TotalContent       int            `db:"total_content" json:"total_content"`
	TotalDurationHours float64        `db:"total_duration_hours" json:"total_duration_hours"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseSummary carries the fields dashboards join onto enrollments.
type CourseSummary struct {
	ID       string         `db:"course_id" json:"id"`
	Title    string         `db:"course_title" json:"title"`
	Category CourseCategory `db:"course_category" json:"category"`
	Level    CourseLevel    `db:"course_level" json:"level"`
	Price    float64        `db:"course_price" json:"price"`
}

// CourseFilter provides filters for catalog listing.
type CourseFilter struct {
	Category   CourseCategory
	Level      CourseLevel
	IsFeatured *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
