package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/whispr-campus/whispr/internal/review"
	"github.com/whispr-campus/whispr/internal/tracing"
)

// Pagination bounds for feed requests.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Validation errors for feed requests.
var (
	ErrInvalidLimit = errors.New("limit must be between 1 and 100")
	ErrInvalidSkip  = errors.New("skip must be non-negative")
)

// Stats is a viewer's activity summary.
type Stats struct {
	Reviews   int `json:"review_count"`
	Replies   int `json:"reply_count"`
	Votes     int `json:"vote_count"`
	Followers int `json:"follower_count"`
	Following int `json:"following_count"`
	Echoes    int `json:"echoes"`
}

// Service assembles personalized feeds. Each request runs the three
// generation phases in order, samples every candidate independently, then
// shuffles and pages the survivors. The same request twice can return
// different pages; that is the point.
type Service struct {
	generator *Generator
	sampler   *Sampler
	rng       Rand
	reviews   review.Repository
	social    review.SocialGraph
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

// NewService creates a feed Service. rng may be nil, defaulting to the
// process-wide source; now may be nil, defaulting to time.Now. metrics may
// be nil to disable instrumentation.
func NewService(reviews review.Repository, social review.SocialGraph, rng Rand, logger *slog.Logger, metrics *Metrics) *Service {
	if rng == nil {
		rng = SystemRand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	return &Service{
		generator: NewGenerator(reviews),
		sampler:   NewSampler(rng, now),
		rng:       rng,
		reviews:   reviews,
		social:    social,
		logger:    logger,
		metrics:   metrics,
		now:       now,
	}
}

// Feed returns one page of the viewer's feed. limit of 0 means the default
// page size. Any store failure aborts the whole request; there are no
// partial feeds.
func (s *Service) Feed(ctx context.Context, viewerID string, skip, limit int) (page []Candidate, err error) {
	if skip < 0 {
		return nil, ErrInvalidSkip
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, ErrInvalidLimit
	}

	start := s.now()
	ctx, endSpan := tracing.StartSpan(ctx, "feed.build")
	defer func() { endSpan(err) }()

	followed, err := s.social.FollowedIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("resolving follows: %w", err)
	}

	// Phase 1: followed authors. Sampled in full so a dense social window
	// can overfill the pool before the shuffle.
	selected, err := s.socialPhase(ctx, followed, start)
	if err != nil {
		return nil, err
	}

	// Phase 2: subjects the followed users have reviewed.
	if len(selected) < limit {
		selected, err = s.topicalPhase(ctx, viewerID, followed, selected, limit)
		if err != nil {
			return nil, err
		}
	}

	// Phase 3: random backfill for whatever is still missing.
	if len(selected) < limit {
		selected, err = s.exploratoryPhase(ctx, viewerID, selected, limit)
		if err != nil {
			return nil, err
		}
	}

	page = Assemble(s.rng, selected, skip, limit)
	if s.metrics != nil {
		s.metrics.ObserveDuration(s.now().Sub(start))
	}
	s.logger.DebugContext(ctx, "feed assembled",
		slog.String("viewer_id", viewerID),
		slog.Int("selected", len(selected)),
		slog.Int("page", len(page)))
	return page, nil
}

func (s *Service) socialPhase(ctx context.Context, followed []string, now time.Time) ([]Candidate, error) {
	pool, err := s.generator.Social(ctx, followed, now)
	if err != nil {
		return nil, err
	}
	selected := make([]Candidate, 0, len(pool))
	for i := range pool {
		if s.sampler.Keep(&pool[i]) {
			selected = append(selected, pool[i])
		}
	}
	s.observePhase(PhaseSocial, len(pool), len(selected))
	return selected, nil
}

func (s *Service) topicalPhase(ctx context.Context, viewerID string, followed []string, selected []Candidate, limit int) ([]Candidate, error) {
	pool, err := s.generator.Topical(ctx, viewerID, followed)
	if err != nil {
		return nil, err
	}
	kept := 0
	for i := range pool {
		if len(selected) >= limit {
			break
		}
		if s.sampler.Keep(&pool[i]) {
			selected = append(selected, pool[i])
			kept++
		}
	}
	s.observePhase(PhaseTopical, len(pool), kept)
	return selected, nil
}

func (s *Service) exploratoryPhase(ctx context.Context, viewerID string, selected []Candidate, limit int) ([]Candidate, error) {
	exclude := make([]string, 0, len(selected))
	for _, c := range selected {
		exclude = append(exclude, c.Review.ID)
	}
	pool, err := s.generator.Exploratory(ctx, viewerID, exclude, limit-len(selected))
	if err != nil {
		return nil, err
	}
	kept := 0
	for i := range pool {
		if len(selected) >= limit {
			break
		}
		if s.sampler.Keep(&pool[i]) {
			selected = append(selected, pool[i])
			kept++
		}
	}
	s.observePhase(PhaseExploratory, len(pool), kept)
	return selected, nil
}

func (s *Service) observePhase(phase Phase, fetched, kept int) {
	if s.metrics != nil {
		s.metrics.ObservePhase(phase, fetched, kept)
	}
}

// Stats returns the viewer's activity summary.
func (s *Service) Stats(ctx context.Context, viewerID string) (*Stats, error) {
	counts, err := s.reviews.CountsByUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("counting activity: %w", err)
	}
	followers, following, err := s.social.FollowCounts(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("counting follows: %w", err)
	}
	author, err := s.reviews.GetAuthor(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("loading author: %w", err)
	}
	return &Stats{
		Reviews:   counts.Reviews,
		Replies:   counts.Replies,
		Votes:     counts.Votes,
		Followers: followers,
		Following: following,
		Echoes:    author.Echoes,
	}, nil
}
