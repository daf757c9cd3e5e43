package controlapi

import (
	"strings"
	"time"

	"github.com/rafaeljc/recommender/internal/recommendation"
	"github.com/rafaeljc/recommender/internal/ruleengine"
	"github.com/rafaeljc/recommender/internal/rules"
	"github.com/rafaeljc/recommender/internal/store"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidJSON  = "ERR_INVALID_JSON"
	CodeInvalidInput = "ERR_INVALID_INPUT"
	CodeConflict     = "ERR_CONFLICT"
	CodeNotFound     = "ERR_NOT_FOUND"
	CodeInternal     = "ERR_INTERNAL"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
)

// CreateRuleRequest is the payload of POST /api/v1/rules.
type CreateRuleRequest struct {
	ProductName string                 `json:"product_name"`
	ProductID   string                 `json:"product_id"`
	ProductText string                 `json:"product_text"`
	Rule        []ruleengine.Condition `json:"rule"`
}

// Sanitize trims surrounding whitespace from the identifying fields.
func (r *CreateRuleRequest) Sanitize() {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.ProductID = strings.TrimSpace(r.ProductID)
	for i := range r.Rule {
		r.Rule[i].Query = ruleengine.QueryType(strings.TrimSpace(string(r.Rule[i].Query)))
	}
}

// Definition maps the payload onto the rules service input.
func (r *CreateRuleRequest) Definition() rules.Definition {
	return rules.Definition{
		ProductName: r.ProductName,
		ProductID:   r.ProductID,
		ProductText: r.ProductText,
		Conditions:  r.Rule,
	}
}

// RuleResponse is the rule set resource.
type RuleResponse struct {
	ID          int64                  `json:"id"`
	ProductName string                 `json:"product_name"`
	ProductID   string                 `json:"product_id"`
	ProductText string                 `json:"product_text"`
	Rule        []ruleengine.Condition `json:"rule"`
	CreatedAt   time.Time              `json:"created_at"`
}

func newRuleResponse(rs *store.RuleSet) RuleResponse {
	conditions := rs.Conditions
	if conditions == nil {
		conditions = []ruleengine.Condition{}
	}
	return RuleResponse{
		ID:          rs.ID,
		ProductName: rs.ProductName,
		ProductID:   rs.ProductID,
		ProductText: rs.ProductText,
		Rule:        conditions,
		CreatedAt:   rs.CreatedAt,
	}
}

// ListResponse wraps collection endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// RecommendationsResponse is the payload of GET /api/v1/recommendations/{userId}.
type RecommendationsResponse struct {
	UserID          string                          `json:"user_id"`
	Recommendations []recommendation.Recommendation `json:"recommendations"`
}

// ClearCachesResponse acknowledges a cache invalidation.
type ClearCachesResponse struct {
	Status string `json:"status"`
	Scope  string `json:"scope"`
	UserID string `json:"user_id,omitempty"`
}

// InfoResponse describes the running instance.
type InfoResponse struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details lists the rejected fields, if any.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func detailsOf(issues []rules.FieldIssue) []ErrorDetail {
	details := make([]ErrorDetail, 0, len(issues))
	for _, is := range issues {
		details = append(details, ErrorDetail{Field: is.Field, Issue: is.Issue})
	}
	return details
}
