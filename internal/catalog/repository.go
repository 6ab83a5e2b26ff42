package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned when a catalog record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// InstructorFilter narrows course-instructor candidate fetches.
type InstructorFilter struct {
	CourseID    string // exact match when non-empty
	ProfessorID string // exact match when non-empty
}

// Repository defines read-only catalog operations. Candidate searches match
// any token as a case-insensitive substring of any searched field; the deep
// flag additionally includes long-form text fields (descriptions, labs,
// summaries).
type Repository interface {
	// SearchCourses returns courses where any token matches name or code,
	// or the description when deep is true.
	SearchCourses(ctx context.Context, tokens []string, deep bool) ([]*Course, error)

	// SearchProfessors returns professors where any token matches the name,
	// or the lab / review summary when deep is true.
	SearchProfessors(ctx context.Context, tokens []string, deep bool) ([]*Professor, error)

	// SearchCourseInstructors returns instructor links joined with their
	// course and professor. Tokens match course name/code, professor name and
	// semester; deep adds course description, professor lab and the term
	// summary. The filter is AND'd with the token match.
	SearchCourseInstructors(ctx context.Context, tokens []string, deep bool, filter InstructorFilter) ([]*CourseInstructorDetail, error)

	// GetCourse retrieves a course by id.
	GetCourse(ctx context.Context, id string) (*Course, error)

	// GetProfessor retrieves a professor by id.
	GetProfessor(ctx context.Context, id string) (*Professor, error)

	// GetCourseInstructor retrieves an instructor link by id, joined with its
	// course and professor.
	GetCourseInstructor(ctx context.Context, id string) (*CourseInstructorDetail, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex; used for testing and development.
type InMemoryRepository struct {
	mu          sync.RWMutex
	courses     map[string]*Course
	professors  map[string]*Professor
	instructors map[string]*CourseInstructor
}

// NewInMemoryRepository creates a new in-memory catalog repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		courses:     make(map[string]*Course),
		professors:  make(map[string]*Professor),
		instructors: make(map[string]*CourseInstructor),
	}
}

// AddCourse stores a course. Test/dev seeding helper.
func (r *InMemoryRepository) AddCourse(c *Course) {
	r.mu.Lock()
	defer r.mu.Unlock()
	courseCopy := *c
	r.courses[c.ID] = &courseCopy
}

// AddProfessor stores a professor. Test/dev seeding helper.
func (r *InMemoryRepository) AddProfessor(p *Professor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	professorCopy := *p
	r.professors[p.ID] = &professorCopy
}

// AddCourseInstructor stores an instructor link. Test/dev seeding helper.
func (r *InMemoryRepository) AddCourseInstructor(ci *CourseInstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ciCopy := *ci
	r.instructors[ci.ID] = &ciCopy
}

// anyTokenMatches reports whether any token is a case-insensitive substring
// of any of the given field values. Nil pointers contribute nothing.
func anyTokenMatches(tokens []string, fields ...*string) bool {
	for _, field := range fields {
		if field == nil || *field == "" {
			continue
		}
		text := strings.ToLower(*field)
		for _, token := range tokens {
			if strings.Contains(text, token) {
				return true
			}
		}
	}
	return false
}

// SearchCourses returns courses matching any token on name/code (and
// description when deep).
func (r *InMemoryRepository) SearchCourses(ctx context.Context, tokens []string, deep bool) ([]*Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Course
	for _, c := range r.courses {
		fields := []*string{&c.Name, &c.Code}
		if deep {
			fields = append(fields, c.Description)
		}
		if !anyTokenMatches(tokens, fields...) {
			continue
		}
		courseCopy := *c
		results = append(results, &courseCopy)
	}
	return results, nil
}

// SearchProfessors returns professors matching any token on name (and
// lab/review summary when deep).
func (r *InMemoryRepository) SearchProfessors(ctx context.Context, tokens []string, deep bool) ([]*Professor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Professor
	for _, p := range r.professors {
		fields := []*string{&p.Name}
		if deep {
			fields = append(fields, p.Lab, p.ReviewSummary)
		}
		if !anyTokenMatches(tokens, fields...) {
			continue
		}
		professorCopy := *p
		results = append(results, &professorCopy)
	}
	return results, nil
}

// SearchCourseInstructors returns joined instructor links matching the filter
// and any token across course/professor/term fields.
func (r *InMemoryRepository) SearchCourseInstructors(ctx context.Context, tokens []string, deep bool, filter InstructorFilter) ([]*CourseInstructorDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*CourseInstructorDetail
	for _, ci := range r.instructors {
		if filter.CourseID != "" && ci.CourseID != filter.CourseID {
			continue
		}
		if filter.ProfessorID != "" && ci.ProfessorID != filter.ProfessorID {
			continue
		}

		course, ok := r.courses[ci.CourseID]
		if !ok {
			continue
		}
		professor, ok := r.professors[ci.ProfessorID]
		if !ok {
			continue
		}

		fields := []*string{&course.Name, &course.Code, &professor.Name, ci.Semester}
		if deep {
			fields = append(fields, course.Description, professor.Lab, ci.Summary)
		}
		if !anyTokenMatches(tokens, fields...) {
			continue
		}

		results = append(results, joinDetail(ci, course, professor))
	}
	return results, nil
}

// GetCourse retrieves a course by id.
func (r *InMemoryRepository) GetCourse(ctx context.Context, id string) (*Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	courseCopy := *c
	return &courseCopy, nil
}

// GetProfessor retrieves a professor by id.
func (r *InMemoryRepository) GetProfessor(ctx context.Context, id string) (*Professor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.professors[id]
	if !ok {
		return nil, ErrNotFound
	}
	professorCopy := *p
	return &professorCopy, nil
}

// GetCourseInstructor retrieves a joined instructor link by id.
func (r *InMemoryRepository) GetCourseInstructor(ctx context.Context, id string) (*CourseInstructorDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ci, ok := r.instructors[id]
	if !ok {
		return nil, ErrNotFound
	}
	course, ok := r.courses[ci.CourseID]
	if !ok {
		return nil, ErrNotFound
	}
	professor, ok := r.professors[ci.ProfessorID]
	if !ok {
		return nil, ErrNotFound
	}
	return joinDetail(ci, course, professor), nil
}

// joinDetail builds a CourseInstructorDetail from copies of the given records.
func joinDetail(ci *CourseInstructor, course *Course, professor *Professor) *CourseInstructorDetail {
	ciCopy := *ci
	courseCopy := *course
	professorCopy := *professor
	return &CourseInstructorDetail{
		CourseInstructor: ciCopy,
		Course:           &courseCopy,
		Professor:        &professorCopy,
	}
}
