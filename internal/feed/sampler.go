package feed

import (
	"time"

	"github.com/whispr-campus/whispr/internal/review"
)

// Phase identifies which candidate-generation pass produced a feed candidate.
type Phase string

// Candidate generation phases, in execution order.
const (
	PhaseSocial      Phase = "social"
	PhaseTopical     Phase = "topical"
	PhaseExploratory Phase = "exploratory"
)

// Sampling parameters. Social candidates get a fixed high probability; the
// other phases decay with content age down to a common floor.
const (
	socialProbability = 0.8
	topicalBase       = 0.5
	topicalDecay      = 0.05
	exploratoryBase   = 0.3
	exploratoryDecay  = 0.02
	probabilityFloor  = 0.1
)

// Candidate is one review under consideration for a feed response, annotated
// with its source phase and inclusion probability. Ephemeral: produced and
// consumed within a single request.
type Candidate struct {
	Review               *review.ReviewWithContext
	SourcePhase          Phase
	InclusionProbability float64
}

// Sampler applies independent Bernoulli inclusion trials with recency-decayed
// probabilities. This is soft filtering, not ranking: two equally old items
// in the same phase have equal but independent odds of inclusion, so
// responses legitimately vary between identical requests.
type Sampler struct {
	rng Rand
	now func() time.Time
}

// NewSampler creates a Sampler over the given randomness source. now may be
// nil, defaulting to time.Now.
func NewSampler(rng Rand, now func() time.Time) *Sampler {
	if now == nil {
		now = time.Now
	}
	return &Sampler{rng: rng, now: now}
}

// Probability returns the inclusion probability for a candidate of the given
// phase created at the given time.
func (s *Sampler) Probability(phase Phase, createdAt time.Time) float64 {
	daysOld := int(s.now().Sub(createdAt).Hours() / 24)
	if daysOld < 0 {
		daysOld = 0
	}

	switch phase {
	case PhaseSocial:
		return socialProbability
	case PhaseTopical:
		return decayed(topicalBase, topicalDecay, daysOld)
	default:
		return decayed(exploratoryBase, exploratoryDecay, daysOld)
	}
}

// Keep runs one independent Bernoulli trial for the candidate, filling in its
// inclusion probability as a side effect.
func (s *Sampler) Keep(c *Candidate) bool {
	c.InclusionProbability = s.Probability(c.SourcePhase, c.Review.CreatedAt)
	return s.rng.Float64() < c.InclusionProbability
}

func decayed(base, decay float64, daysOld int) float64 {
	p := base - decay*float64(daysOld)
	if p < probabilityFloor {
		return probabilityFloor
	}
	return p
}
