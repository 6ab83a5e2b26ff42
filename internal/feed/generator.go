package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/whispr-campus/whispr/internal/review"
)

// Candidate pool limits. The social phase is unbounded within its time
// window; the other phases cap how many rows are fetched before sampling.
const (
	socialWindow              = 7 * 24 * time.Hour
	topicalPoolCap            = 50
	exploratoryPoolMultiplier = 3
)

// Generator produces the three ordered candidate phases for a viewer. It
// performs read-only store queries and never mutates state.
type Generator struct {
	reviews review.Repository
}

// NewGenerator creates a Generator over the given review repository.
func NewGenerator(reviews review.Repository) *Generator {
	return &Generator{reviews: reviews}
}

// Social returns reviews authored by followed users within the last week,
// newest first.
func (g *Generator) Social(ctx context.Context, followedIDs []string, now time.Time) ([]Candidate, error) {
	if len(followedIDs) == 0 {
		return nil, nil
	}
	recent, err := g.reviews.ListRecentByAuthors(ctx, followedIDs, now.Add(-socialWindow))
	if err != nil {
		return nil, fmt.Errorf("social phase: %w", err)
	}
	return wrap(recent, PhaseSocial), nil
}

// Topical returns reviews on subjects the followed users have reviewed,
// excluding reviews authored by followed users or the viewer. The pool is
// capped before sampling.
func (g *Generator) Topical(ctx context.Context, viewerID string, followedIDs []string) ([]Candidate, error) {
	if len(followedIDs) == 0 {
		return nil, nil
	}
	subjects, err := g.reviews.ReviewedSubjects(ctx, followedIDs)
	if err != nil {
		return nil, fmt.Errorf("topical phase: %w", err)
	}
	if subjects.Empty() {
		return nil, nil
	}

	exclude := append(append([]string{}, followedIDs...), viewerID)
	pool, err := g.reviews.ListBySubjects(ctx, subjects, exclude, topicalPoolCap)
	if err != nil {
		return nil, fmt.Errorf("topical phase: %w", err)
	}
	return wrap(pool, PhaseTopical), nil
}

// Exploratory returns a store-side random sample of remaining reviews, not
// self-authored and not already selected, pooled at a multiple of the
// remaining slots.
func (g *Generator) Exploratory(ctx context.Context, viewerID string, excludeReviewIDs []string, remainingSlots int) ([]Candidate, error) {
	if remainingSlots <= 0 {
		return nil, nil
	}
	pool, err := g.reviews.RandomSample(ctx, excludeReviewIDs, viewerID, remainingSlots*exploratoryPoolMultiplier)
	if err != nil {
		return nil, fmt.Errorf("exploratory phase: %w", err)
	}
	return wrap(pool, PhaseExploratory), nil
}

func wrap(reviews []*review.ReviewWithContext, phase Phase) []Candidate {
	candidates := make([]Candidate, 0, len(reviews))
	for _, r := range reviews {
		candidates = append(candidates, Candidate{Review: r, SourcePhase: phase})
	}
	return candidates
}
