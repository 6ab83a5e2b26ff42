// Package api provides HTTP handlers for the Whispr API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/whispr-campus/whispr/internal/middleware"
	"github.com/whispr-campus/whispr/internal/search"
)

// SearchHandlers holds dependencies for search HTTP handlers.
type SearchHandlers struct {
	coordinator *search.Coordinator
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(coordinator *search.Coordinator) *SearchHandlers {
	return &SearchHandlers{coordinator: coordinator}
}

// Search handles GET /search - weighted free-text search across entity kinds.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	q, errMsg := parseSearchQuery(r)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	resp, err := h.coordinator.Search(r.Context(), &q)
	if err != nil {
		if isValidationError(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "search failed", "error", err, "query", q.Raw)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Search failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode search response", "error", err)
	}
}

// parseSearchQuery translates query parameters into a search.Query. It
// returns a non-empty message on malformed parameters; range validation
// happens inside the engine.
func parseSearchQuery(r *http.Request) (search.Query, string) {
	params := r.URL.Query()
	q := search.Query{
		Raw:         params.Get("q"),
		Deep:        params.Get("deep") == "true",
		CourseID:    params.Get("course_id"),
		ProfessorID: params.Get("professor_id"),
	}

	// entity_types: repeated params or comma-separated, or both.
	for _, raw := range params["entity_types"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				q.EntityTypes = append(q.EntityTypes, search.EntityType(part))
			}
		}
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"min_rating", &q.MinRating},
		{"max_rating", &q.MaxRating},
		{"skip", &q.Skip},
	} {
		raw := params.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return q, p.name + " must be an integer"
		}
		*p.dst = v
	}

	// limit is parsed separately: an absent limit falls back to the default
	// inside the engine, but an explicit 0 is out of the 1..100 range.
	if raw := params.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return q, "limit must be an integer"
		}
		if v == 0 {
			return q, "limit must be between 1 and 100"
		}
		q.Limit = v
	}

	if raw := params.Get("sort_by"); raw != "" {
		q.SortBy = search.SortField(raw)
	}
	if raw := params.Get("sort_order"); raw != "" {
		q.SortOrder = search.SortOrder(raw)
	}
	return q, ""
}

func isValidationError(err error) bool {
	return errors.Is(err, search.ErrEmptyQuery) ||
		errors.Is(err, search.ErrInvalidRating) ||
		errors.Is(err, search.ErrInvalidLimit) ||
		errors.Is(err, search.ErrInvalidSkip) ||
		errors.Is(err, search.ErrInvalidSort) ||
		errors.Is(err, search.ErrInvalidEntity)
}
