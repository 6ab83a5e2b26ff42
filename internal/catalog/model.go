// Package catalog provides models and repositories for the course and
// professor catalog consumed by the search and feed engines.
package catalog

import "time"

// Course represents a course in the catalog.
type Course struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Credits       *int      `json:"credits,omitempty"`
	Description   *string   `json:"description,omitempty"`
	ReviewSummary *string   `json:"review_summary,omitempty"`
	ReviewCount   int       `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Professor represents a professor in the catalog.
type Professor struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Lab           *string   `json:"lab,omitempty"`
	ReviewSummary *string   `json:"review_summary,omitempty"`
	ReviewCount   int       `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CourseInstructor links a professor to a course for a given term.
type CourseInstructor struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"course_id"`
	ProfessorID   string    `json:"professor_id"`
	Semester      *string   `json:"semester,omitempty"`
	Year          *int      `json:"year,omitempty"`
	Summary       *string   `json:"summary,omitempty"`
	ReviewCount   int       `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
}

// CourseInstructorDetail is a CourseInstructor joined with its course and
// professor records, as rendered in search results and feed items.
type CourseInstructorDetail struct {
	CourseInstructor
	Course    *Course    `json:"course"`
	Professor *Professor `json:"professor"`
}
