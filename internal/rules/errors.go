package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no rule set has the requested product id.
var ErrNotFound = errors.New("rule set not found")

// FieldIssue describes one invalid field of a rule definition.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ValidationError reports a rejected rule definition. Nothing is written
// when it is returned.
type ValidationError struct {
	Issues []FieldIssue
	cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Issue))
	}
	return "invalid rule set: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying cause, e.g. store.ErrDuplicateProductID.
func (e *ValidationError) Unwrap() error {
	return e.cause
}
