package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/whispr-campus/whispr/internal/catalog"
	"github.com/whispr-campus/whispr/internal/review"
	"github.com/whispr-campus/whispr/internal/search"
)

func testStrPtr(s string) *string { return &s }

// newSearchFixture seeds in-memory repositories with a small campus dataset
// and returns handlers wired on top of them.
func newSearchFixture(t *testing.T) *SearchHandlers {
	t.Helper()

	now := time.Now()
	catalogRepo := catalog.NewInMemoryRepository()
	catalogRepo.AddCourse(&catalog.Course{
		ID:          "c1",
		Code:        "CS4410",
		Name:        "Operating Systems",
		Description: testStrPtr("Threads, scheduling and file systems"),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	catalogRepo.AddProfessor(&catalog.Professor{
		ID:        "p1",
		Name:      "Ada Meyer",
		Lab:       testStrPtr("Distributed Systems Lab"),
		CreatedAt: now,
		UpdatedAt: now,
	})

	reviewRepo := review.NewInMemoryRepository(catalogRepo)
	reviewRepo.AddAuthor(&review.Author{ID: "u1", Username: "nightowl"})
	reviewRepo.AddReview(&review.Review{
		ID:        "r1",
		AuthorID:  "u1",
		CourseID:  testStrPtr("c1"),
		Rating:    4,
		Content:   testStrPtr("Operating systems projects are brutal but worth it"),
		CreatedAt: now,
		UpdatedAt: now,
	})

	coordinator := search.NewCoordinator(catalogRepo, reviewRepo, nil, nil)
	return NewSearchHandlers(coordinator)
}

// TestSearch_Success tests a shallow search returning scored course results.
func TestSearch_Success(t *testing.T) {
	handlers := newSearchFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=operating+systems", nil)
	w := httptest.NewRecorder()

	handlers.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp search.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total == 0 || len(resp.Results) == 0 {
		t.Fatal("expected at least one result")
	}
	if resp.Deep {
		t.Error("shallow search should echo deep=false")
	}
	for _, res := range resp.Results {
		if res.EntityType == search.EntityReview || res.EntityType == search.EntityReply {
			t.Errorf("shallow search leaked %s result", res.EntityType)
		}
		if res.RelevanceScore < search.MinCombinedScore || res.RelevanceScore > search.MaxScore {
			t.Errorf("score %v out of range", res.RelevanceScore)
		}
	}
}

// TestSearch_DeepIncludesReviews tests that deep mode surfaces review content.
func TestSearch_DeepIncludesReviews(t *testing.T) {
	handlers := newSearchFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=brutal&deep=true", nil)
	w := httptest.NewRecorder()

	handlers.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp search.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Deep {
		t.Error("deep search should echo deep=true")
	}
	found := false
	for _, res := range resp.Results {
		if res.EntityType == search.EntityReview {
			found = true
		}
	}
	if !found {
		t.Error("deep search should return the matching review")
	}
}

// TestSearch_EmptyQuery tests that an empty q is rejected with a validation error.
func TestSearch_EmptyQuery(t *testing.T) {
	handlers := newSearchFixture(t)

	for _, q := range []string{"", "%20%20", "%21%21%21"} {
		req := httptest.NewRequest(http.MethodGet, "/search?q="+q, nil)
		w := httptest.NewRecorder()

		handlers.Search(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("q=%q: expected status 400, got %d", q, w.Code)
			continue
		}
		var errResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if errResp.Error.Code != ErrCodeValidation {
			t.Errorf("q=%q: expected error code %s, got %s", q, ErrCodeValidation, errResp.Error.Code)
		}
	}
}

// TestSearch_InvalidParams tests rejection of malformed and out-of-range params.
func TestSearch_InvalidParams(t *testing.T) {
	handlers := newSearchFixture(t)

	cases := []struct {
		name  string
		query string
	}{
		{"non-integer limit", "q=systems&limit=abc"},
		{"non-integer skip", "q=systems&skip=x"},
		{"rating too high", "q=systems&min_rating=6"},
		{"inverted rating range", "q=systems&min_rating=4&max_rating=2"},
		{"limit too large", "q=systems&limit=101"},
		{"zero limit", "q=systems&limit=0"},
		{"negative skip", "q=systems&skip=-1"},
		{"unknown sort field", "q=systems&sort_by=karma"},
		{"unknown entity type", "q=systems&entity_types=podcast"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/search?"+tc.query, nil)
			w := httptest.NewRecorder()

			handlers.Search(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

// TestSearch_EntityTypeFilter tests entity_types narrowing, including the
// comma-separated form.
func TestSearch_EntityTypeFilter(t *testing.T) {
	handlers := newSearchFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=systems&entity_types=course,professor", nil)
	w := httptest.NewRecorder()

	handlers.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp search.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, res := range resp.Results {
		if res.EntityType != search.EntityCourse && res.EntityType != search.EntityProfessor {
			t.Errorf("unexpected entity type %s in filtered results", res.EntityType)
		}
	}
}

// TestSearch_Pagination tests that Total is independent of the page size.
func TestSearch_Pagination(t *testing.T) {
	handlers := newSearchFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=systems&limit=1", nil)
	w := httptest.NewRecorder()

	handlers.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp search.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) > 1 {
		t.Errorf("limit=1 returned %d results", len(resp.Results))
	}
	if resp.Total < len(resp.Results) {
		t.Errorf("total %d smaller than page %d", resp.Total, len(resp.Results))
	}
}
