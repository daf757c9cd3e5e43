// Package rules manages dynamic rule sets and evaluates them for users.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rafaeljc/recommender/internal/ruleengine"
	"github.com/rafaeljc/recommender/internal/store"
)

// Definition is the input for creating a rule set.
type Definition struct {
	ProductName string                 `validate:"notblank,max=255"`
	ProductID   string                 `validate:"required,uuid"`
	ProductText string                 `validate:"max=4000"`
	Conditions  []ruleengine.Condition `validate:"required,min=1,max=50"`
}

// Service validates and persists rule set definitions.
type Service struct {
	repo     store.RuleSetRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a Service. It panics if repo is nil.
func NewService(repo store.RuleSetRepository, logger *slog.Logger) *Service {
	if repo == nil {
		panic("rules: rule set repository cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	// notblank rejects empty and whitespace-only strings.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Service{repo: repo, validate: v, logger: logger}
}

// CanonicalProductID parses a product id and returns its canonical
// lowercase form. ok is false when s is not a UUID.
func CanonicalProductID(s string) (id string, ok bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// Create validates def and stores it as a new rule set.
// It returns *ValidationError for bad input or a duplicate product id.
func (s *Service) Create(ctx context.Context, def Definition) (*store.RuleSet, error) {
	// 1. Shape; ids are canonicalized first so upper-case UUIDs are accepted
	if id, ok := CanonicalProductID(def.ProductID); ok {
		def.ProductID = id
	}
	if err := s.validate.Struct(def); err != nil {
		return nil, toValidationError(err)
	}

	// 2. Condition semantics (query tags, arity, operators, thresholds)
	if _, err := ruleengine.CompileAll(def.Conditions); err != nil {
		return nil, &ValidationError{
			Issues: []FieldIssue{{Field: "rule", Issue: err.Error()}},
			cause:  err,
		}
	}

	rs := &store.RuleSet{
		ProductID:   def.ProductID,
		ProductName: strings.TrimSpace(def.ProductName),
		ProductText: def.ProductText,
		Conditions:  def.Conditions,
	}

	// 3. Persist; uniqueness is enforced by the store
	if err := s.repo.CreateRuleSet(ctx, rs); err != nil {
		if errors.Is(err, store.ErrDuplicateProductID) {
			return nil, &ValidationError{
				Issues: []FieldIssue{{Field: "product_id", Issue: "already exists"}},
				cause:  err,
			}
		}
		return nil, fmt.Errorf("create rule set: %w", err)
	}

	s.logger.Info("rule set created",
		slog.String("product_id", rs.ProductID),
		slog.Int64("id", rs.ID),
		slog.Int("conditions", len(rs.Conditions)),
	)
	return rs, nil
}

// Delete removes a rule set and deactivates its statistic.
func (s *Service) Delete(ctx context.Context, productID string) error {
	id, ok := CanonicalProductID(productID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, productID)
	}

	if err := s.repo.DeleteRuleSet(ctx, id); err != nil {
		if errors.Is(err, store.ErrRuleSetNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete rule set: %w", err)
	}

	s.logger.Info("rule set deleted", slog.String("product_id", id))
	return nil
}

// List returns every rule set in store order.
func (s *Service) List(ctx context.Context) ([]*store.RuleSet, error) {
	ruleSets, err := s.repo.ListRuleSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	return ruleSets, nil
}

// Exists reports whether a rule set with the product id exists.
func (s *Service) Exists(ctx context.Context, productID string) (bool, error) {
	id, ok := CanonicalProductID(productID)
	if !ok {
		return false, nil
	}
	return s.repo.ExistsByProductID(ctx, id)
}

// jsonFieldNames maps struct fields to the names clients send.
var jsonFieldNames = map[string]string{
	"ProductName": "product_name",
	"ProductID":   "product_id",
	"ProductText": "product_text",
	"Conditions":  "rule",
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Issues: []FieldIssue{{Field: "body", Issue: err.Error()}}, cause: err}
	}

	ve := &ValidationError{cause: err}
	for _, fe := range fieldErrs {
		field := jsonFieldNames[fe.StructField()]
		if field == "" {
			field = fe.Field()
		}
		ve.Issues = append(ve.Issues, FieldIssue{Field: field, Issue: describeTag(fe)})
	}
	return ve
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
