package ruleengine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// fakeProvider is an in-memory QueryProvider that counts calls.
type fakeProvider struct {
	mu sync.Mutex

	// counts holds the number of transactions per product type.
	counts map[ProductType]int
	// sums holds transaction totals per product type and direction.
	sums map[ProductType]map[Direction]decimal.Decimal
	err  error

	calls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		counts: make(map[ProductType]int),
		sums:   make(map[ProductType]map[Direction]decimal.Decimal),
	}
}

func (f *fakeProvider) withCount(pt ProductType, n int) *fakeProvider {
	f.counts[pt] = n
	return f
}

func (f *fakeProvider) withSum(pt ProductType, dir Direction, amount string) *fakeProvider {
	if f.sums[pt] == nil {
		f.sums[pt] = make(map[Direction]decimal.Decimal)
	}
	f.sums[pt][dir] = decimal.RequireFromString(amount)
	return f
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) record() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeProvider) HasProductType(_ context.Context, _ string, pt ProductType) (bool, error) {
	if err := f.record(); err != nil {
		return false, err
	}
	return f.counts[pt] > 0, nil
}

func (f *fakeProvider) IsActiveUserOfType(_ context.Context, _ string, pt ProductType) (bool, error) {
	if err := f.record(); err != nil {
		return false, err
	}
	return f.counts[pt] >= ActiveUserThreshold, nil
}

func (f *fakeProvider) SumByTypeAndDirection(_ context.Context, _ string, pt ProductType, dir Direction) (decimal.Decimal, error) {
	if err := f.record(); err != nil {
		return decimal.Zero, err
	}
	return f.sums[pt][dir], nil
}
