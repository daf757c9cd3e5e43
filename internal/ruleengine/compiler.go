package ruleengine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// predicate is the closed set of compiled query kinds. Only this package can
// implement it, so the switch in Compile is the single place new kinds enter.
type predicate interface {
	query() QueryType
	eval(ctx context.Context, p QueryProvider, userID string) (bool, error)
}

// CompiledCondition is a Condition whose arguments have been parsed and
// validated. It is immutable and safe for concurrent use.
type CompiledCondition struct {
	pred   predicate
	negate bool
}

// Query returns the query type of the compiled condition.
func (c CompiledCondition) Query() QueryType {
	return c.pred.query()
}

// Eval evaluates the raw predicate and applies negation.
func (c CompiledCondition) Eval(ctx context.Context, p QueryProvider, userID string) (bool, error) {
	raw, err := c.pred.eval(ctx, p, userID)
	if err != nil {
		return false, err
	}
	return raw != c.negate, nil
}

// Compile parses the condition arguments according to its query type.
// Unknown query types, wrong arity and malformed arguments are errors.
func Compile(c Condition) (CompiledCondition, error) {
	arity := c.Query.arity()
	if arity < 0 {
		return CompiledCondition{}, fmt.Errorf("%w: %q", ErrUnknownQueryType, c.Query)
	}
	if len(c.Arguments) != arity {
		return CompiledCondition{}, fmt.Errorf("%s: %w: expected %d, got %d", c.Query, ErrArity, arity, len(c.Arguments))
	}

	var (
		pred predicate
		err  error
	)
	switch c.Query {
	case QueryHasProductType:
		pred, err = compileHasProductType(c.Arguments)
	case QueryIsActiveUserOfType:
		pred, err = compileActiveUser(c.Arguments)
	case QueryAggregateSumCompare:
		pred, err = compileSumCompare(c.Arguments)
	case QueryDepositsVsExpensesCompare:
		pred, err = compileDepositsVsExpenses(c.Arguments)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownQueryType, c.Query)
	}
	if err != nil {
		return CompiledCondition{}, fmt.Errorf("%s: %w", c.Query, err)
	}

	return CompiledCondition{pred: pred, negate: c.Negate}, nil
}

// CompileAll compiles every condition, reporting the index of the first failure.
func CompileAll(conditions []Condition) ([]CompiledCondition, error) {
	out := make([]CompiledCondition, 0, len(conditions))
	for i, c := range conditions {
		compiled, err := Compile(c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		out = append(out, compiled)
	}
	return out, nil
}

type hasProductType struct {
	productType ProductType
}

func compileHasProductType(args []string) (predicate, error) {
	pt, err := ParseProductType(args[0])
	if err != nil {
		return nil, err
	}
	return hasProductType{productType: pt}, nil
}

func (h hasProductType) query() QueryType { return QueryHasProductType }

func (h hasProductType) eval(ctx context.Context, p QueryProvider, userID string) (bool, error) {
	return p.HasProductType(ctx, userID, h.productType)
}

type activeUser struct {
	productType ProductType
}

func compileActiveUser(args []string) (predicate, error) {
	pt, err := ParseProductType(args[0])
	if err != nil {
		return nil, err
	}
	return activeUser{productType: pt}, nil
}

func (a activeUser) query() QueryType { return QueryIsActiveUserOfType }

func (a activeUser) eval(ctx context.Context, p QueryProvider, userID string) (bool, error) {
	return p.IsActiveUserOfType(ctx, userID, a.productType)
}

// Comparing against a decimal rescales both sides to the smaller exponent, so
// thresholds like "1e100000000" would allocate without bound on every
// evaluation. Amounts are NUMERIC(19,2); these limits leave ample headroom.
const (
	maxThresholdDigits   = 38
	maxThresholdExponent = 20
)

func thresholdInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxThresholdExponent && exp <= maxThresholdExponent && d.NumDigits() <= maxThresholdDigits
}

type sumCompare struct {
	productType ProductType
	direction   Direction
	op          Operator
	threshold   decimal.Decimal
}

func compileSumCompare(args []string) (predicate, error) {
	pt, err := ParseProductType(args[0])
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirection(args[1])
	if err != nil {
		return nil, err
	}
	op, err := ParseOperator(args[2])
	if err != nil {
		return nil, err
	}
	threshold, err := decimal.NewFromString(args[3])
	if err != nil || !thresholdInRange(threshold) {
		return nil, &argumentError{arg: "threshold", value: args[3]}
	}
	return sumCompare{productType: pt, direction: dir, op: op, threshold: threshold}, nil
}

func (s sumCompare) query() QueryType { return QueryAggregateSumCompare }

func (s sumCompare) eval(ctx context.Context, p QueryProvider, userID string) (bool, error) {
	sum, err := p.SumByTypeAndDirection(ctx, userID, s.productType, s.direction)
	if err != nil {
		return false, err
	}
	return s.op.Compare(sum, s.threshold), nil
}

type depositsVsExpenses struct {
	productType ProductType
	op          Operator
}

func compileDepositsVsExpenses(args []string) (predicate, error) {
	pt, err := ParseProductType(args[0])
	if err != nil {
		return nil, err
	}
	op, err := ParseOperator(args[1])
	if err != nil {
		return nil, err
	}
	return depositsVsExpenses{productType: pt, op: op}, nil
}

func (d depositsVsExpenses) query() QueryType { return QueryDepositsVsExpensesCompare }

func (d depositsVsExpenses) eval(ctx context.Context, p QueryProvider, userID string) (bool, error) {
	deposits, err := p.SumByTypeAndDirection(ctx, userID, d.productType, DirectionDeposit)
	if err != nil {
		return false, err
	}
	expenses, err := p.SumByTypeAndDirection(ctx, userID, d.productType, DirectionExpense)
	if err != nil {
		return false, err
	}
	return d.op.Compare(deposits, expenses), nil
}
