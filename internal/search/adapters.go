package search

import (
	"context"

	"github.com/whispr-campus/whispr/internal/catalog"
	"github.com/whispr-campus/whispr/internal/review"
)

// Adapter fetches and scores candidates of one entity kind. Adapters share no
// mutable state, so the coordinator invokes them concurrently.
type Adapter interface {
	// Kind identifies the entity kind this adapter serves.
	Kind() EntityType

	// Search fetches filtered candidates, scores them against the token
	// sequence and projects them into results. A store failure aborts the
	// whole request; partial results are never returned.
	Search(ctx context.Context, tokens []string, q *Query) ([]Result, error)
}

// deref returns the pointed-to string or "" for scoring optional fields.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// courseAdapter searches the course catalog. Shallow fields: name, code.
// Deep adds the description.
type courseAdapter struct {
	catalog catalog.Repository
}

func (a *courseAdapter) Kind() EntityType { return EntityCourse }

func (a *courseAdapter) Search(ctx context.Context, tokens []string, q *Query) ([]Result, error) {
	courses, err := a.catalog.SearchCourses(ctx, tokens, q.Deep)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(courses))
	for _, c := range courses {
		scores := map[string]float64{
			"name": ScoreField(tokens, c.Name),
			"code": ScoreField(tokens, c.Code),
		}
		if q.Deep {
			scores["description"] = ScoreField(tokens, deref(c.Description))
		}
		results = append(results, Result{
			EntityType:     EntityCourse,
			RelevanceScore: Combine(scores),
			Data:           c,
			createdAt:      c.CreatedAt,
			updatedAt:      c.UpdatedAt,
		})
	}
	return results, nil
}

// professorAdapter searches professors. Shallow field: name. Deep adds the
// lab and review summary.
type professorAdapter struct {
	catalog catalog.Repository
}

func (a *professorAdapter) Kind() EntityType { return EntityProfessor }

func (a *professorAdapter) Search(ctx context.Context, tokens []string, q *Query) ([]Result, error) {
	professors, err := a.catalog.SearchProfessors(ctx, tokens, q.Deep)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(professors))
	for _, p := range professors {
		scores := map[string]float64{
			"name": ScoreField(tokens, p.Name),
		}
		if q.Deep {
			scores["lab"] = ScoreField(tokens, deref(p.Lab))
			scores["summary"] = ScoreField(tokens, deref(p.ReviewSummary))
		}
		results = append(results, Result{
			EntityType:     EntityProfessor,
			RelevanceScore: Combine(scores),
			Data:           p,
			createdAt:      p.CreatedAt,
			updatedAt:      p.UpdatedAt,
		})
	}
	return results, nil
}

// courseInstructorAdapter searches instructor links, a join across course,
// professor and the link record itself. It scores all three origins plus the
// relational key (semester).
type courseInstructorAdapter struct {
	catalog catalog.Repository
}

func (a *courseInstructorAdapter) Kind() EntityType { return EntityCourseInstructor }

func (a *courseInstructorAdapter) Search(ctx context.Context, tokens []string, q *Query) ([]Result, error) {
	details, err := a.catalog.SearchCourseInstructors(ctx, tokens, q.Deep, catalog.InstructorFilter{
		CourseID:    q.CourseID,
		ProfessorID: q.ProfessorID,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(details))
	for _, d := range details {
		scores := map[string]float64{
			"course_name":    ScoreField(tokens, d.Course.Name),
			"course_code":    ScoreField(tokens, d.Course.Code),
			"professor_name": ScoreField(tokens, d.Professor.Name),
			"semester":       ScoreField(tokens, deref(d.Semester)),
		}
		if q.Deep {
			scores["description"] = ScoreField(tokens, deref(d.Course.Description))
			scores["lab"] = ScoreField(tokens, deref(d.Professor.Lab))
			scores["summary"] = ScoreField(tokens, deref(d.Summary))
		}
		results = append(results, Result{
			EntityType:     EntityCourseInstructor,
			RelevanceScore: Combine(scores),
			Data:           d,
			createdAt:      d.CreatedAt,
			updatedAt:      d.CreatedAt,
		})
	}
	return results, nil
}

// reviewAdapter searches review bodies. Deep mode only; honors the course,
// professor and rating filters.
type reviewAdapter struct {
	reviews review.Repository
}

func (a *reviewAdapter) Kind() EntityType { return EntityReview }

func (a *reviewAdapter) Search(ctx context.Context, tokens []string, q *Query) ([]Result, error) {
	reviews, err := a.reviews.SearchReviews(ctx, tokens, review.Filter{
		CourseID:    q.CourseID,
		ProfessorID: q.ProfessorID,
		MinRating:   q.MinRating,
		MaxRating:   q.MaxRating,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(reviews))
	for _, r := range reviews {
		scores := map[string]float64{
			"content": ScoreField(tokens, deref(r.Content)),
		}
		results = append(results, Result{
			EntityType:     EntityReview,
			RelevanceScore: Combine(scores),
			Data:           r,
			createdAt:      r.CreatedAt,
			updatedAt:      r.UpdatedAt,
		})
	}
	return results, nil
}

// replyAdapter searches reply bodies. Deep mode only.
type replyAdapter struct {
	reviews review.Repository
}

func (a *replyAdapter) Kind() EntityType { return EntityReply }

func (a *replyAdapter) Search(ctx context.Context, tokens []string, q *Query) ([]Result, error) {
	replies, err := a.reviews.SearchReplies(ctx, tokens)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(replies))
	for _, r := range replies {
		scores := map[string]float64{
			"content": ScoreField(tokens, r.Content),
		}
		results = append(results, Result{
			EntityType:     EntityReply,
			RelevanceScore: Combine(scores),
			Data:           r,
			createdAt:      r.CreatedAt,
			updatedAt:      r.UpdatedAt,
		})
	}
	return results, nil
}
