package ruleengine

import (
	"errors"
	"fmt"
)

// ErrUnknownQueryType is returned when a condition carries an unrecognized query tag.
var ErrUnknownQueryType = errors.New("unknown query type")

// ErrArity is returned when a condition has the wrong number of arguments.
var ErrArity = errors.New("wrong number of arguments")

// argumentError reports a malformed condition argument.
type argumentError struct {
	arg   string
	value string
}

func (e *argumentError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.arg, e.value)
}

// EvaluationError describes why a condition could not be evaluated.
// The Engine never returns it to callers of EvaluateCondition; it is logged
// and the condition counts as false.
type EvaluationError struct {
	Query QueryType
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Query, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
