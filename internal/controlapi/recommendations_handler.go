package controlapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/recommendation"
)

// handleRecommendations processes GET /api/v1/recommendations/{userId}.
func (a *API) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	recs, err := a.recommendations.RecommendationsFor(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, recommendation.ErrInvalidUserID):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{
				Code:    CodeInvalidInput,
				Message: "Invalid user id",
				Details: []ErrorDetail{{Field: "userId", Issue: "must be a valid UUID"}},
			})
		case errors.Is(err, context.DeadlineExceeded):
			logger.FromContext(r.Context()).Warn("recommendation request timed out")
			render.Status(r, http.StatusGatewayTimeout)
			render.JSON(w, r, ErrorResponse{Code: CodeInternal, Message: "Recommendation request timed out"})
		default:
			logger.FromContext(r.Context()).Error("failed to compute recommendations", slog.Any("error", err))
			a.internalError(w, r)
		}
		return
	}

	canonical, _ := recommendation.CanonicalUserID(userID)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RecommendationsResponse{UserID: canonical, Recommendations: recs})
}
