package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/whispr-campus/whispr/internal/catalog"
	"github.com/whispr-campus/whispr/internal/review"
	"github.com/whispr-campus/whispr/internal/tracing"
)

// Coordinator fans a query out to every enabled adapter, merges the scored
// results, sorts and paginates. It holds no mutable state and is safe for
// concurrent use.
type Coordinator struct {
	adapters []Adapter
	logger   *slog.Logger
	metrics  *Metrics
}

// NewCoordinator creates a Coordinator over the standard adapter set.
// metrics may be nil.
func NewCoordinator(catalogRepo catalog.Repository, reviewRepo review.Repository, logger *slog.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		adapters: []Adapter{
			&courseAdapter{catalog: catalogRepo},
			&professorAdapter{catalog: catalogRepo},
			&courseInstructorAdapter{catalog: catalogRepo},
			&reviewAdapter{reviews: reviewRepo},
			&replyAdapter{reviews: reviewRepo},
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Search executes one search request. Validation failures are returned before
// any store access. Adapter calls run concurrently; the first store failure
// cancels the remaining calls and fails the whole request, so a response is
// always complete or absent, never partial.
func (c *Coordinator) Search(ctx context.Context, q *Query) (*Response, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	tokens := Normalize(q.Raw)
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}

	start := time.Now()

	var enabled []Adapter
	for _, a := range c.adapters {
		if q.wantsKind(a.Kind()) {
			enabled = append(enabled, a)
		}
	}

	sctx, endSpan := tracing.StartSpan(ctx, "search.fan_out")
	perAdapter := make([][]Result, len(enabled))
	g, gctx := errgroup.WithContext(sctx)
	for i, a := range enabled {
		g.Go(func() error {
			results, err := a.Search(gctx, tokens, q)
			if err != nil {
				return fmt.Errorf("%s adapter: %w", a.Kind(), err)
			}
			perAdapter[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		endSpan(err)
		c.logger.ErrorContext(ctx, "search fan-out failed", "error", err, "query", q.Raw)
		return nil, err
	}

	var merged []Result
	for i, results := range perAdapter {
		merged = append(merged, results...)
		if c.metrics != nil {
			c.metrics.ObserveResults(string(enabled[i].Kind()), len(results))
		}
	}
	total := len(merged)
	tracing.SetAttributes(sctx,
		attribute.Int("search.adapters", len(enabled)),
		attribute.Int("search.results", total))
	endSpan(nil)

	sortResults(merged, q.sortBy(), q.sortOrder())
	page := paginate(merged, q.Skip, q.limit())

	if c.metrics != nil {
		c.metrics.ObserveDuration(time.Since(start))
	}
	c.logger.DebugContext(ctx, "search completed",
		"query", q.Raw, "deep", q.Deep, "total", total, "returned", len(page))

	return &Response{
		Total:   total,
		Results: page,
		Query:   q.Raw,
		Deep:    q.Deep,
	}, nil
}

// sortResults orders merged results in place. Relevance sorts by score; every
// other field falls back to entity timestamps since heterogeneous kinds are
// interleaved (updated_at where the kind has one, created_at otherwise).
func sortResults(results []Result, by SortField, order SortOrder) {
	var less func(i, j int) bool
	switch by {
	case SortRelevance:
		less = func(i, j int) bool { return results[i].RelevanceScore < results[j].RelevanceScore }
	case SortUpdatedAt:
		less = func(i, j int) bool { return results[i].updatedAt.Before(results[j].updatedAt) }
	default:
		less = func(i, j int) bool { return results[i].createdAt.Before(results[j].createdAt) }
	}
	if order == OrderDesc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(results, less)
}

// paginate slices the final merged list; pagination never applies to a
// sub-list, so result identity is only meaningful after all adapters ran.
func paginate(results []Result, skip, limit int) []Result {
	if skip >= len(results) {
		return []Result{}
	}
	end := skip + limit
	if end > len(results) {
		end = len(results)
	}
	return results[skip:end]
}
