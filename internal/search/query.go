package search

import (
	"errors"
	"time"
)

// EntityType identifies a searchable entity kind.
type EntityType string

// Searchable entity kinds.
const (
	EntityCourse           EntityType = "course"
	EntityProfessor        EntityType = "professor"
	EntityCourseInstructor EntityType = "course_instructor"
	EntityReview           EntityType = "review"
	EntityReply            EntityType = "reply"
)

// AllEntityTypes lists every searchable kind in fan-out order.
var AllEntityTypes = []EntityType{
	EntityCourse,
	EntityProfessor,
	EntityCourseInstructor,
	EntityReview,
	EntityReply,
}

// Valid reports whether the entity type is a known kind.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCourse, EntityProfessor, EntityCourseInstructor, EntityReview, EntityReply:
		return true
	}
	return false
}

// SortField selects the sort key for merged results.
type SortField string

// Supported sort fields. Only relevance sorts by score; every other field
// falls back to the entity's own timestamps since heterogeneous kinds are
// interleaved in one list.
const (
	SortRelevance SortField = "relevance"
	SortName      SortField = "name"
	SortCode      SortField = "code"
	SortRating    SortField = "rating"
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

// Valid reports whether the sort field is supported.
func (f SortField) Valid() bool {
	switch f {
	case SortRelevance, SortName, SortCode, SortRating, SortCreatedAt, SortUpdatedAt:
		return true
	}
	return false
}

// SortOrder is the sort direction.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Valid reports whether the sort order is supported.
func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// Pagination and rating bounds.
const (
	MaxLimit     = 100
	DefaultLimit = 100
	MinRating    = 1
	MaxRating    = 5
)

// Validation errors surfaced to the caller as client errors before any store
// access happens.
var (
	ErrEmptyQuery    = errors.New("search query cannot be empty")
	ErrInvalidRating = errors.New("rating bounds must be between 1 and 5")
	ErrInvalidLimit  = errors.New("limit must be between 1 and 100")
	ErrInvalidSkip   = errors.New("skip must be non-negative")
	ErrInvalidSort   = errors.New("unknown sort field or order")
	ErrInvalidEntity = errors.New("unknown entity type")
)

// Query is the value object describing one search request. Construct it,
// don't mutate it: the coordinator treats it as read-only.
type Query struct {
	Raw         string
	Deep        bool
	EntityTypes []EntityType // empty means all kinds
	CourseID    string
	ProfessorID string
	MinRating   int       // 0 disables
	MaxRating   int       // 0 disables
	SortBy      SortField // empty defaults to relevance
	SortOrder   SortOrder // empty defaults to desc
	Skip        int
	Limit       int // 0 defaults to DefaultLimit
}

// Validate checks every constraint that can be rejected before touching the
// store. The token emptiness check happens separately because it requires
// normalization.
func (q *Query) Validate() error {
	if q.MinRating != 0 && (q.MinRating < MinRating || q.MinRating > MaxRating) {
		return ErrInvalidRating
	}
	if q.MaxRating != 0 && (q.MaxRating < MinRating || q.MaxRating > MaxRating) {
		return ErrInvalidRating
	}
	if q.MinRating != 0 && q.MaxRating != 0 && q.MinRating > q.MaxRating {
		return ErrInvalidRating
	}
	if q.Skip < 0 {
		return ErrInvalidSkip
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	if q.SortBy != "" && !q.SortBy.Valid() {
		return ErrInvalidSort
	}
	if q.SortOrder != "" && !q.SortOrder.Valid() {
		return ErrInvalidSort
	}
	for _, t := range q.EntityTypes {
		if !t.Valid() {
			return ErrInvalidEntity
		}
	}
	return nil
}

// sortBy returns the effective sort field.
func (q *Query) sortBy() SortField {
	if q.SortBy == "" {
		return SortRelevance
	}
	return q.SortBy
}

// sortOrder returns the effective sort direction.
func (q *Query) sortOrder() SortOrder {
	if q.SortOrder == "" {
		return OrderDesc
	}
	return q.SortOrder
}

// limit returns the effective page size.
func (q *Query) limit() int {
	if q.Limit == 0 {
		return DefaultLimit
	}
	return q.Limit
}

// wantsKind reports whether the query includes the given entity kind.
// Review and reply kinds additionally require deep mode.
func (q *Query) wantsKind(kind EntityType) bool {
	if (kind == EntityReview || kind == EntityReply) && !q.Deep {
		return false
	}
	if len(q.EntityTypes) == 0 {
		return true
	}
	for _, t := range q.EntityTypes {
		if t == kind {
			return true
		}
	}
	return false
}

// Result is one scored entity in a search response. The relevance score is
// advisory ordering data, never persisted. The unexported timestamps back the
// cross-type timestamp sort.
type Result struct {
	EntityType     EntityType `json:"entity_type"`
	RelevanceScore float64    `json:"relevance_score"`
	Data           any        `json:"data"`

	createdAt time.Time
	updatedAt time.Time
}

// Response is the merged, sorted, paginated search result set. Total counts
// every scored candidate across all enabled adapters before the skip/limit
// slice.
type Response struct {
	Total   int      `json:"total"`
	Results []Result `json:"results"`
	Query   string   `json:"query"`
	Deep    bool     `json:"deep"`
}
