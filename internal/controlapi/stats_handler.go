package controlapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/statistics"
)

// handleFullStatistics processes GET /api/v1/rules/stats.
func (a *API) handleFullStatistics(w http.ResponseWriter, r *http.Request) {
	report, err := a.stats.FullStatistics(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to build statistics report", slog.Any("error", err))
		a.internalError(w, r)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, report)
}

// handleRuleStatistic processes GET /api/v1/rules/stats/{productId}.
// Deleted rules still report their retained counter.
func (a *API) handleRuleStatistic(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	report, err := a.stats.StatisticByProductID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, statistics.ErrNotFound) {
			a.notFound(w, r, "No rule or statistic for this product")
			return
		}
		logger.FromContext(r.Context()).Error("failed to read rule statistic",
			slog.String("product_id", productID),
			slog.Any("error", err),
		)
		a.internalError(w, r)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, report)
}
