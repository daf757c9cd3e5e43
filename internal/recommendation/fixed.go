package recommendation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/ruleengine"
)

// Product ids of the built-in recommendations.
const (
	Invest500ID    = "147f6a0f-3b91-413b-ab99-87f081d60d5a"
	TopSavingID    = "59efc529-2fff-41af-baff-90ccd7402925"
	SimpleCreditID = "ab138afb-f3ba-4a93-b74f-0fcee86d447f"
)

var (
	invest500SavingDeposits = decimal.NewFromInt(1_000)
	topSavingDeposits       = decimal.NewFromInt(50_000)
	simpleCreditExpenses    = decimal.NewFromInt(100_000)
)

// FixedRule is a recommendation compiled into the service. It holds no
// state and is always active.
type FixedRule interface {
	Recommendation() Recommendation
	Matches(ctx context.Context, p ruleengine.QueryProvider, userID string) (bool, error)
}

type fixedRule struct {
	rec   Recommendation
	match func(ctx context.Context, p ruleengine.QueryProvider, userID string) (bool, error)
}

func (r fixedRule) Recommendation() Recommendation { return r.rec }

func (r fixedRule) Matches(ctx context.Context, p ruleengine.QueryProvider, userID string) (bool, error) {
	return r.match(ctx, p, userID)
}

// DefaultFixedRules returns the built-in rules in declaration order.
func DefaultFixedRules() []FixedRule {
	return []FixedRule{
		fixedRule{
			rec: Recommendation{
				ID:   Invest500ID,
				Name: "Invest 500",
				Text: "Open an individual investment account and get a tax deduction on what you invest.",
			},
			match: matchInvest500,
		},
		fixedRule{
			rec: Recommendation{
				ID:   TopSavingID,
				Name: "Top Saving",
				Text: "A piggy bank for your goals: set money aside automatically and watch it grow.",
			},
			match: matchTopSaving,
		},
		fixedRule{
			rec: Recommendation{
				ID:   SimpleCreditID,
				Name: "Simple Credit",
				Text: "Treat yourself to more: a fast credit decision with no paperwork.",
			},
			match: matchSimpleCredit,
		},
	}
}

// matchInvest500: uses DEBIT, never used INVEST, and deposited more than
// 1000 into SAVING.
func matchInvest500(ctx context.Context, p ruleengine.QueryProvider, userID string) (bool, error) {
	hasDebit, err := p.HasProductType(ctx, userID, ruleengine.ProductDebit)
	if err != nil || !hasDebit {
		return false, err
	}
	hasInvest, err := p.HasProductType(ctx, userID, ruleengine.ProductInvest)
	if err != nil || hasInvest {
		return false, err
	}
	saving, err := p.SumByTypeAndDirection(ctx, userID, ruleengine.ProductSaving, ruleengine.DirectionDeposit)
	if err != nil {
		return false, err
	}
	return saving.GreaterThan(invest500SavingDeposits), nil
}

// matchTopSaving: uses DEBIT, deposited at least 50000 into DEBIT or
// SAVING, and DEBIT deposits exceed DEBIT expenses.
func matchTopSaving(ctx context.Context, p ruleengine.QueryProvider, userID string) (bool, error) {
	hasDebit, err := p.HasProductType(ctx, userID, ruleengine.ProductDebit)
	if err != nil || !hasDebit {
		return false, err
	}
	debitIn, err := p.SumByTypeAndDirection(ctx, userID, ruleengine.ProductDebit, ruleengine.DirectionDeposit)
	if err != nil {
		return false, err
	}
	if debitIn.LessThan(topSavingDeposits) {
		savingIn, err := p.SumByTypeAndDirection(ctx, userID, ruleengine.ProductSaving, ruleengine.DirectionDeposit)
		if err != nil || savingIn.LessThan(topSavingDeposits) {
			return false, err
		}
	}
	debitOut, err := p.SumByTypeAndDirection(ctx, userID, ruleengine.ProductDebit, ruleengine.DirectionExpense)
	if err != nil {
		return false, err
	}
	return debitIn.GreaterThan(debitOut), nil
}

// matchSimpleCredit: never used CREDIT, DEBIT deposits exceed DEBIT
// expenses, and DEBIT expenses exceed 100000.
func matchSimpleCredit(ctx context.Context, p ruleengine.QueryProvider, userID string) (bool, error) {
	hasCredit, err := p.HasProductType(ctx, userID, ruleengine.ProductCredit)
	if err != nil || hasCredit {
		return false, err
	}
	debitIn, err := p.SumByTypeAndDirection(ctx, userID, ruleengine.ProductDebit, ruleengine.DirectionDeposit)
	if err != nil {
		return false, err
	}
	debitOut, err := p.SumByTypeAndDirection(ctx, userID, ruleengine.ProductDebit, ruleengine.DirectionExpense)
	if err != nil {
		return false, err
	}
	return debitIn.GreaterThan(debitOut) && debitOut.GreaterThan(simpleCreditExpenses), nil
}
