package ruleengine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Operator is a comparison symbol used by the compare queries.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// ParseOperator validates a comparison symbol.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.TrimSpace(s)); op {
	case OpGreater, OpLess, OpEqual, OpGreaterEqual, OpLessEqual:
		return op, nil
	default:
		return "", &argumentError{arg: "operator", value: s}
	}
}

// Compare applies the operator to left and right.
// Decimal comparison ignores scale, so 1000 and 1000.00 are equal.
func (o Operator) Compare(left, right decimal.Decimal) bool {
	c := left.Cmp(right)
	switch o {
	case OpGreater:
		return c > 0
	case OpLess:
		return c < 0
	case OpEqual:
		return c == 0
	case OpGreaterEqual:
		return c >= 0
	case OpLessEqual:
		return c <= 0
	default:
		return false
	}
}
