package controlapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/rules"
	"github.com/rafaeljc/recommender/internal/store"
)

// handleCreateRule processes POST /api/v1/rules.
//
// It returns 201 with the stored rule set, 400 for malformed or invalid
// definitions and 409 when the product id is already taken.
func (a *API) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	// 1. Decode
	var req CreateRuleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    CodeInvalidJSON,
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}
	req.Sanitize()

	// 2. Validate and persist
	rs, err := a.rules.Create(r.Context(), req.Definition())
	if err != nil {
		var ve *rules.ValidationError
		switch {
		case errors.As(err, &ve) && errors.Is(err, store.ErrDuplicateProductID):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{
				Code:    CodeConflict,
				Message: "A rule set for this product already exists",
				Details: detailsOf(ve.Issues),
			})
		case errors.As(err, &ve):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{
				Code:    CodeInvalidInput,
				Message: "Invalid rule set definition",
				Details: detailsOf(ve.Issues),
			})
		default:
			log.Error("failed to create rule set", slog.Any("error", err))
			a.internalError(w, r)
		}
		return
	}

	// 3. Respond
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newRuleResponse(rs))
}

// handleListRules processes GET /api/v1/rules.
func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	ruleSets, err := a.rules.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list rule sets", slog.Any("error", err))
		a.internalError(w, r)
		return
	}

	data := make([]RuleResponse, 0, len(ruleSets))
	for _, rs := range ruleSets {
		data = append(data, newRuleResponse(rs))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListResponse[RuleResponse]{Data: data, Total: len(data)})
}

// handleDeleteRule processes DELETE /api/v1/rules/{productId}.
// The rule's statistic is kept as inactive history.
func (a *API) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	if err := a.rules.Delete(r.Context(), productID); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			a.notFound(w, r, "Rule set not found")
			return
		}
		logger.FromContext(r.Context()).Error("failed to delete rule set",
			slog.String("product_id", productID),
			slog.Any("error", err),
		)
		a.internalError(w, r)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{Code: CodeNotFound, Message: msg})
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{Code: CodeInternal, Message: "Internal server error"})
}
