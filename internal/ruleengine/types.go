// Package ruleengine evaluates product recommendation conditions against a
// user's financial activity.
//
// A Condition is a small tagged predicate over aggregate transaction facts.
// Conditions are compiled into closed predicate values before evaluation, and
// the Engine evaluates them with fail-safe semantics: any problem with a
// condition makes it evaluate to false and is logged, never returned.
package ruleengine

import "strings"

// QueryType identifies the kind of predicate a Condition expresses.
type QueryType string

const (
	// QueryHasProductType holds when the user has at least one transaction on
	// a product of the given type. Arguments: [productType].
	QueryHasProductType QueryType = "HAS_PRODUCT_TYPE"

	// QueryIsActiveUserOfType holds when the user has at least
	// ActiveUserThreshold transactions on the given product type.
	// Arguments: [productType].
	QueryIsActiveUserOfType QueryType = "IS_ACTIVE_USER_OF_TYPE"

	// QueryAggregateSumCompare compares the sum of the user's transactions in
	// one direction against a fixed threshold.
	// Arguments: [productType, direction, operator, threshold].
	QueryAggregateSumCompare QueryType = "AGGREGATE_SUM_COMPARE"

	// QueryDepositsVsExpensesCompare compares the deposit sum against the
	// expense sum on one product type. Arguments: [productType, operator].
	QueryDepositsVsExpensesCompare QueryType = "DEPOSITS_VS_EXPENSES_COMPARE"
)

// ActiveUserThreshold is the minimum number of transactions on a product type
// for a user to count as an active user of that type.
const ActiveUserThreshold = 5

// QueryTypes lists every supported query type in declaration order.
var QueryTypes = []QueryType{
	QueryHasProductType,
	QueryIsActiveUserOfType,
	QueryAggregateSumCompare,
	QueryDepositsVsExpensesCompare,
}

// arity returns the number of arguments the query type expects, or -1 for
// unknown types.
func (q QueryType) arity() int {
	switch q {
	case QueryHasProductType, QueryIsActiveUserOfType:
		return 1
	case QueryDepositsVsExpensesCompare:
		return 2
	case QueryAggregateSumCompare:
		return 4
	default:
		return -1
	}
}

// ProductType is the category of a banking product.
type ProductType string

const (
	ProductDebit  ProductType = "DEBIT"
	ProductCredit ProductType = "CREDIT"
	ProductInvest ProductType = "INVEST"
	ProductSaving ProductType = "SAVING"
)

// ParseProductType validates a product type argument.
func ParseProductType(s string) (ProductType, error) {
	switch pt := ProductType(strings.TrimSpace(s)); pt {
	case ProductDebit, ProductCredit, ProductInvest, ProductSaving:
		return pt, nil
	default:
		return "", &argumentError{arg: "productType", value: s}
	}
}

// Direction is the money flow of a transaction.
type Direction string

const (
	DirectionDeposit Direction = "DEPOSIT"
	DirectionExpense Direction = "EXPENSE"
)

// ParseDirection validates a direction argument.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.TrimSpace(s)); d {
	case DirectionDeposit, DirectionExpense:
		return d, nil
	default:
		return "", &argumentError{arg: "direction", value: s}
	}
}

// Condition is one boolean predicate of a rule set.
// This struct mirrors the JSON stored in the rule_conditions table and the
// "rule" array of the control API.
type Condition struct {
	Query     QueryType `json:"query"`
	Arguments []string  `json:"arguments"`
	Negate    bool      `json:"negate"`
}
