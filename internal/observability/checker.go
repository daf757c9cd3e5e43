package observability

import "context"

// Checker is a dependency the readiness probe verifies, such as a database
// pool or the Redis client. Check must honour ctx and be safe for concurrent use.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

func (c CheckerFunc) Name() string { return c.ComponentName }

func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }
