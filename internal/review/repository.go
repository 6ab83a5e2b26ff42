package review

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/whispr-campus/whispr/internal/catalog"
)

// Common errors for review operations.
var (
	ErrReviewNotFound = errors.New("review not found")
	ErrAuthorNotFound = errors.New("author not found")
)

// Filter narrows review candidate fetches. Zero values mean "no constraint".
type Filter struct {
	CourseID    string
	ProfessorID string
	MinRating   int // 1..5, 0 disables
	MaxRating   int // 1..5, 0 disables
}

// Repository defines read-only review and reply operations for the search and
// feed engines. All candidate fetches return joined projections ready to
// render; none of them mutate state.
type Repository interface {
	// SearchReviews returns reviews whose content matches any token as a
	// case-insensitive substring, AND'd with the filter.
	SearchReviews(ctx context.Context, tokens []string, filter Filter) ([]*ReviewWithContext, error)

	// SearchReplies returns replies whose content matches any token.
	SearchReplies(ctx context.Context, tokens []string) ([]*ReplyWithAuthor, error)

	// ListRecentByAuthors returns reviews authored by any of the given users
	// at or after the given instant, newest first.
	ListRecentByAuthors(ctx context.Context, authorIDs []string, since time.Time) ([]*ReviewWithContext, error)

	// ReviewedSubjects returns the distinct subjects the given authors have
	// reviewed.
	ReviewedSubjects(ctx context.Context, authorIDs []string) (*SubjectSet, error)

	// ListBySubjects returns up to limit reviews on any of the given
	// subjects, newest first, excluding reviews authored by any of the
	// excluded users.
	ListBySubjects(ctx context.Context, subjects *SubjectSet, excludeAuthorIDs []string, limit int) ([]*ReviewWithContext, error)

	// RandomSample returns up to limit reviews in store-side random order,
	// excluding the given review ids and the given author.
	RandomSample(ctx context.Context, excludeReviewIDs []string, excludeAuthorID string, limit int) ([]*ReviewWithContext, error)

	// CountsByUser returns the user's own review/reply/vote counts.
	CountsByUser(ctx context.Context, userID string) (*Counts, error)

	// GetAuthor retrieves an author projection by user id.
	GetAuthor(ctx context.Context, id string) (*Author, error)
}

// SocialGraph exposes the read-only follow relation.
type SocialGraph interface {
	// FollowedIDs returns the ids of all users the given user follows.
	FollowedIDs(ctx context.Context, userID string) ([]string, error)

	// FollowCounts returns the user's follower and following counts.
	FollowCounts(ctx context.Context, userID string) (followers, following int, err error)
}

// InMemoryRepository is an in-memory implementation of Repository and
// SocialGraph. Thread-safe via RWMutex; used for testing and development.
// Subject context is resolved through the catalog lookup.
type InMemoryRepository struct {
	mu      sync.RWMutex
	catalog CatalogLookup
	authors map[string]*Author
	reviews map[string]*Review
	replies map[string]*Reply
	votes   map[string]int             // user id -> votes cast
	follows map[string]map[string]bool // follower id -> followed ids
}

// CatalogLookup resolves subject records when joining review context.
type CatalogLookup interface {
	GetCourse(ctx context.Context, id string) (*catalog.Course, error)
	GetProfessor(ctx context.Context, id string) (*catalog.Professor, error)
	GetCourseInstructor(ctx context.Context, id string) (*catalog.CourseInstructorDetail, error)
}

// NewInMemoryRepository creates a new in-memory review repository backed by
// the given catalog lookup.
func NewInMemoryRepository(lookup CatalogLookup) *InMemoryRepository {
	return &InMemoryRepository{
		catalog: lookup,
		authors: make(map[string]*Author),
		reviews: make(map[string]*Review),
		replies: make(map[string]*Reply),
		votes:   make(map[string]int),
		follows: make(map[string]map[string]bool),
	}
}

// AddAuthor stores an author. Test/dev seeding helper.
func (r *InMemoryRepository) AddAuthor(a *Author) {
	r.mu.Lock()
	defer r.mu.Unlock()
	authorCopy := *a
	r.authors[a.ID] = &authorCopy
}

// AddReview stores a review. Test/dev seeding helper.
func (r *InMemoryRepository) AddReview(rev *Review) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reviewCopy := *rev
	r.reviews[rev.ID] = &reviewCopy
}

// AddReply stores a reply. Test/dev seeding helper.
func (r *InMemoryRepository) AddReply(rep *Reply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replyCopy := *rep
	r.replies[rep.ID] = &replyCopy
}

// AddVotes records votes cast by a user. Test/dev seeding helper.
func (r *InMemoryRepository) AddVotes(userID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes[userID] += n
}

// AddFollow records that follower follows followed. Test/dev seeding helper.
func (r *InMemoryRepository) AddFollow(followerID, followedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.follows[followerID] == nil {
		r.follows[followerID] = make(map[string]bool)
	}
	r.follows[followerID][followedID] = true
}

// contentMatches reports whether any token is a case-insensitive substring of
// the given content. Nil content never matches.
func contentMatches(tokens []string, content *string) bool {
	if content == nil || *content == "" {
		return false
	}
	text := strings.ToLower(*content)
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// join builds the rendered projection for a review. Missing subject records
// are tolerated: the corresponding context field stays nil.
func (r *InMemoryRepository) join(ctx context.Context, rev *Review) *ReviewWithContext {
	reviewCopy := *rev
	out := &ReviewWithContext{Review: reviewCopy}
	if a, ok := r.authors[rev.AuthorID]; ok {
		authorCopy := *a
		out.Author = &authorCopy
	}
	if rev.CourseID != nil {
		if c, err := r.catalog.GetCourse(ctx, *rev.CourseID); err == nil {
			out.Course = c
		}
	}
	if rev.ProfessorID != nil {
		if p, err := r.catalog.GetProfessor(ctx, *rev.ProfessorID); err == nil {
			out.Professor = p
		}
	}
	if rev.CourseInstructorID != nil {
		if ci, err := r.catalog.GetCourseInstructor(ctx, *rev.CourseInstructorID); err == nil {
			out.CourseInstructor = ci
		}
	}
	return out
}

// SearchReviews returns reviews whose content matches any token, AND'd with
// the filter.
func (r *InMemoryRepository) SearchReviews(ctx context.Context, tokens []string, filter Filter) ([]*ReviewWithContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*ReviewWithContext
	for _, rev := range r.reviews {
		if filter.CourseID != "" && (rev.CourseID == nil || *rev.CourseID != filter.CourseID) {
			continue
		}
		if filter.ProfessorID != "" && (rev.ProfessorID == nil || *rev.ProfessorID != filter.ProfessorID) {
			continue
		}
		if filter.MinRating > 0 && rev.Rating < filter.MinRating {
			continue
		}
		if filter.MaxRating > 0 && rev.Rating > filter.MaxRating {
			continue
		}
		if !contentMatches(tokens, rev.Content) {
			continue
		}
		results = append(results, r.join(ctx, rev))
	}
	return results, nil
}

// SearchReplies returns replies whose content matches any token.
func (r *InMemoryRepository) SearchReplies(ctx context.Context, tokens []string) ([]*ReplyWithAuthor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*ReplyWithAuthor
	for _, rep := range r.replies {
		if !contentMatches(tokens, &rep.Content) {
			continue
		}
		replyCopy := *rep
		out := &ReplyWithAuthor{Reply: replyCopy}
		if a, ok := r.authors[rep.AuthorID]; ok {
			authorCopy := *a
			out.Author = &authorCopy
		}
		results = append(results, out)
	}
	return results, nil
}

// ListRecentByAuthors returns reviews by the given authors at or after since,
// newest first.
func (r *InMemoryRepository) ListRecentByAuthors(ctx context.Context, authorIDs []string, since time.Time) ([]*ReviewWithContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	authorSet := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authorSet[id] = true
	}

	var results []*ReviewWithContext
	for _, rev := range r.reviews {
		if !authorSet[rev.AuthorID] || rev.CreatedAt.Before(since) {
			continue
		}
		results = append(results, r.join(ctx, rev))
	}
	sortByCreatedDesc(results)
	return results, nil
}

// ReviewedSubjects returns the distinct subjects the given authors reviewed.
func (r *InMemoryRepository) ReviewedSubjects(ctx context.Context, authorIDs []string) (*SubjectSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	authorSet := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authorSet[id] = true
	}

	courses := make(map[string]bool)
	professors := make(map[string]bool)
	instructors := make(map[string]bool)
	for _, rev := range r.reviews {
		if !authorSet[rev.AuthorID] {
			continue
		}
		if rev.CourseID != nil {
			courses[*rev.CourseID] = true
		}
		if rev.ProfessorID != nil {
			professors[*rev.ProfessorID] = true
		}
		if rev.CourseInstructorID != nil {
			instructors[*rev.CourseInstructorID] = true
		}
	}

	return &SubjectSet{
		CourseIDs:           keys(courses),
		ProfessorIDs:        keys(professors),
		CourseInstructorIDs: keys(instructors),
	}, nil
}

// ListBySubjects returns up to limit reviews on any of the given subjects,
// newest first, excluding the given authors.
func (r *InMemoryRepository) ListBySubjects(ctx context.Context, subjects *SubjectSet, excludeAuthorIDs []string, limit int) ([]*ReviewWithContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if subjects.Empty() {
		return nil, nil
	}

	excluded := make(map[string]bool, len(excludeAuthorIDs))
	for _, id := range excludeAuthorIDs {
		excluded[id] = true
	}
	courses := toSet(subjects.CourseIDs)
	professors := toSet(subjects.ProfessorIDs)
	instructors := toSet(subjects.CourseInstructorIDs)

	var results []*ReviewWithContext
	for _, rev := range r.reviews {
		if excluded[rev.AuthorID] {
			continue
		}
		onSubject := (rev.CourseID != nil && courses[*rev.CourseID]) ||
			(rev.ProfessorID != nil && professors[*rev.ProfessorID]) ||
			(rev.CourseInstructorID != nil && instructors[*rev.CourseInstructorID])
		if !onSubject {
			continue
		}
		results = append(results, r.join(ctx, rev))
	}
	sortByCreatedDesc(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// RandomSample returns up to limit reviews in random order, excluding the
// given review ids and author.
func (r *InMemoryRepository) RandomSample(ctx context.Context, excludeReviewIDs []string, excludeAuthorID string, limit int) ([]*ReviewWithContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]bool, len(excludeReviewIDs))
	for _, id := range excludeReviewIDs {
		excluded[id] = true
	}

	var candidates []*ReviewWithContext
	for _, rev := range r.reviews {
		if excluded[rev.ID] || rev.AuthorID == excludeAuthorID {
			continue
		}
		candidates = append(candidates, r.join(ctx, rev))
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// CountsByUser returns the user's own review/reply/vote counts.
func (r *InMemoryRepository) CountsByUser(ctx context.Context, userID string) (*Counts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := &Counts{Votes: r.votes[userID]}
	for _, rev := range r.reviews {
		if rev.AuthorID == userID {
			counts.Reviews++
		}
	}
	for _, rep := range r.replies {
		if rep.AuthorID == userID {
			counts.Replies++
		}
	}
	return counts, nil
}

// GetAuthor retrieves an author projection by user id.
func (r *InMemoryRepository) GetAuthor(ctx context.Context, id string) (*Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.authors[id]
	if !ok {
		return nil, ErrAuthorNotFound
	}
	authorCopy := *a
	return &authorCopy, nil
}

// FollowedIDs returns the ids of all users the given user follows.
func (r *InMemoryRepository) FollowedIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := keys(r.follows[userID])
	sort.Strings(ids)
	return ids, nil
}

// FollowCounts returns the user's follower and following counts.
func (r *InMemoryRepository) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	following := len(r.follows[userID])
	followers := 0
	for _, followed := range r.follows {
		if followed[userID] {
			followers++
		}
	}
	return followers, following, nil
}

// sortByCreatedDesc sorts reviews newest first with id tie-breaking for
// stable ordering.
func sortByCreatedDesc(reviews []*ReviewWithContext) {
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].CreatedAt.After(reviews[j].CreatedAt) {
			return true
		}
		if reviews[i].CreatedAt.Before(reviews[j].CreatedAt) {
			return false
		}
		return reviews[i].ID < reviews[j].ID
	})
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
