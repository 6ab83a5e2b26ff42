// Package review provides models and repositories for reviews, replies and
// the social graph consumed by the search and feed engines.
package review

import (
	"time"

	"github.com/whispr-campus/whispr/internal/catalog"
)

// Author is the public projection of a user record attached to reviews and
// replies. It never carries credentials or moderation state.
type Author struct {
	ID               string  `json:"id"`
	Username         string  `json:"username"`
	Bio              *string `json:"bio,omitempty"`
	StudentSinceYear *int    `json:"student_since_year,omitempty"`
	Echoes           int     `json:"echoes"`
}

// Review represents an anonymous review of a course, professor or a
// professor's offering of a course. At least one subject id is set.
type Review struct {
	ID                 string    `json:"id"`
	AuthorID           string    `json:"author_id"`
	CourseID           *string   `json:"course_id,omitempty"`
	ProfessorID        *string   `json:"professor_id,omitempty"`
	CourseInstructorID *string   `json:"course_instructor_id,omitempty"`
	Rating             int       `json:"rating"`
	Content            *string   `json:"content,omitempty"`
	Semester           *string   `json:"semester,omitempty"`
	Year               *int      `json:"year,omitempty"`
	Upvotes            int       `json:"upvotes"`
	Downvotes          int       `json:"downvotes"`
	IsEdited           bool      `json:"is_edited"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ReviewWithContext is a review joined with just enough relations to render
// it: the author and the subject course/professor/instructor records.
type ReviewWithContext struct {
	Review
	Author           *Author                         `json:"author"`
	Course           *catalog.Course                 `json:"course,omitempty"`
	Professor        *catalog.Professor              `json:"professor,omitempty"`
	CourseInstructor *catalog.CourseInstructorDetail `json:"course_instructor,omitempty"`
}

// Reply represents a reply to a review.
type Reply struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReplyWithAuthor is a reply joined with its author projection.
type ReplyWithAuthor struct {
	Reply
	Author *Author `json:"author"`
}

// SubjectSet collects the distinct subjects (courses, professors, instructor
// links) a set of authors has reviewed. Used to seed the topical feed phase.
type SubjectSet struct {
	CourseIDs           []string
	ProfessorIDs        []string
	CourseInstructorIDs []string
}

// Empty reports whether the set contains no subjects.
func (s *SubjectSet) Empty() bool {
	return s == nil || (len(s.CourseIDs) == 0 && len(s.ProfessorIDs) == 0 && len(s.CourseInstructorIDs) == 0)
}

// Counts holds a user's own content counts for the feed stats endpoint.
type Counts struct {
	Reviews int `json:"review_count"`
	Replies int `json:"reply_count"`
	Votes   int `json:"vote_count"`
}
