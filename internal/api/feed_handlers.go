package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/whispr-campus/whispr/internal/feed"
	"github.com/whispr-campus/whispr/internal/middleware"
	"github.com/whispr-campus/whispr/internal/review"
)

// FeedHandlers holds dependencies for feed HTTP handlers.
type FeedHandlers struct {
	service *feed.Service
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(service *feed.Service) *FeedHandlers {
	return &FeedHandlers{service: service}
}

// FeedResponse represents the response for the personalized feed.
type FeedResponse struct {
	Reviews []*review.ReviewWithContext `json:"reviews"`
	Count   int                         `json:"count"`
}

// Feed handles GET /feed - returns one page of the viewer's personalized feed.
// Requires authentication.
func (h *FeedHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	if viewerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	skip, limit, errMsg := parsePagination(r)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	page, err := h.service.Feed(r.Context(), viewerID, skip, limit)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidLimit) || errors.Is(err, feed.ErrInvalidSkip) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "failed to build feed", "error", err, "viewer_id", viewerID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build feed")
		return
	}

	reviews := make([]*review.ReviewWithContext, 0, len(page))
	for _, c := range page {
		reviews = append(reviews, c.Review)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(FeedResponse{Reviews: reviews, Count: len(reviews)}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode feed response", "error", err)
	}
}

// Stats handles GET /feed/stats - returns the viewer's activity summary.
// Requires authentication.
func (h *FeedHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	if viewerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	stats, err := h.service.Stats(r.Context(), viewerID)
	if err != nil {
		if errors.Is(err, review.ErrAuthorNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "User not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load feed stats", "error", err, "viewer_id", viewerID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode stats response", "error", err)
	}
}

// parsePagination reads skip and limit query parameters. Missing parameters
// default to zero; the feed service applies its own defaults and bounds.
func parsePagination(r *http.Request) (skip, limit int, errMsg string) {
	params := r.URL.Query()
	if raw := params.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, "skip must be an integer"
		}
		skip = v
	}
	if raw := params.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, "limit must be an integer"
		}
		limit = v
	}
	return skip, limit, ""
}
