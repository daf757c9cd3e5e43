package ruleengine

import (
	"context"

	"github.com/shopspring/decimal"
)

// QueryProvider answers aggregate questions about a user's transactions.
// Implementations may cache results; the engine tolerates bounded staleness.
type QueryProvider interface {
	// HasProductType reports whether the user has at least one transaction on
	// a product of the given type.
	HasProductType(ctx context.Context, userID string, productType ProductType) (bool, error)

	// IsActiveUserOfType reports whether the user has at least
	// ActiveUserThreshold transactions on a product of the given type.
	IsActiveUserOfType(ctx context.Context, userID string, productType ProductType) (bool, error)

	// SumByTypeAndDirection returns the total amount of the user's
	// transactions in one direction on the given product type. A user
	// without matching transactions sums to zero.
	SumByTypeAndDirection(ctx context.Context, userID string, productType ProductType, direction Direction) (decimal.Decimal, error)
}
