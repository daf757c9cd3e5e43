package cache

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Compile-time check to verify that Tiered implements QueryCache.
var _ QueryCache = (*Tiered)(nil)

// Tiered reads through L1 then L2 and writes to both. An L2 hit is copied
// into L1. A nil L2 makes Tiered a plain L1 cache.
type Tiered struct {
	l1 QueryCache
	l2 QueryCache
}

// NewTiered combines the two tiers. It panics if l1 is nil.
func NewTiered(l1, l2 QueryCache) *Tiered {
	if l1 == nil {
		panic("cache: l1 cannot be nil")
	}
	return &Tiered{l1: l1, l2: l2}
}

func (t *Tiered) Get(ctx context.Context, key QueryKey) (decimal.Decimal, bool) {
	if v, ok := t.l1.Get(ctx, key); ok {
		return v, true
	}
	if t.l2 == nil {
		return decimal.Zero, false
	}
	v, ok := t.l2.Get(ctx, key)
	if ok {
		t.l1.Set(ctx, key, v)
	}
	return v, ok
}

func (t *Tiered) Set(ctx context.Context, key QueryKey, value decimal.Decimal) {
	t.l1.Set(ctx, key, value)
	if t.l2 != nil {
		t.l2.Set(ctx, key, value)
	}
}

// Clear empties both tiers. L1 is always cleared even if L2 fails.
func (t *Tiered) Clear(ctx context.Context) error {
	err := t.l1.Clear(ctx)
	if t.l2 != nil {
		err = errors.Join(err, t.l2.Clear(ctx))
	}
	return err
}

// ClearUser empties one user's entries in both tiers.
func (t *Tiered) ClearUser(ctx context.Context, userID string) error {
	err := t.l1.ClearUser(ctx, userID)
	if t.l2 != nil {
		err = errors.Join(err, t.l2.ClearUser(ctx, userID))
	}
	return err
}
