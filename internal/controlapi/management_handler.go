package controlapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/recommendation"
)

// handleClearCaches processes POST /api/v1/management/clear-caches.
// With ?user_id it clears only that user's cached aggregates.
func (a *API) handleClearCaches(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		if err := a.caches.ClearAll(r.Context()); err != nil {
			log.Error("failed to clear caches", slog.Any("error", err))
			a.internalError(w, r)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, ClearCachesResponse{Status: "cleared", Scope: "all"})
		return
	}

	userID, err := recommendation.CanonicalUserID(raw)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    CodeInvalidInput,
			Message: "Invalid user id",
			Details: []ErrorDetail{{Field: "user_id", Issue: "must be a valid UUID"}},
		})
		return
	}
	if err := a.caches.ClearUser(r.Context(), userID); err != nil {
		log.Error("failed to clear user caches", slog.String("user_id", userID), slog.Any("error", err))
		a.internalError(w, r)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ClearCachesResponse{Status: "cleared", Scope: "user", UserID: userID})
}

// handleInfo processes GET /api/v1/management/info.
func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, InfoResponse{
		Name:          a.info.Name,
		Version:       a.info.Version,
		StartedAt:     a.info.StartedAt.UTC(),
		UptimeSeconds: int64(time.Since(a.info.StartedAt).Seconds()),
	})
}
