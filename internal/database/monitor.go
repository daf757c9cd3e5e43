package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/recommender/internal/observability"
)

// poolStats is the subset of pgxpool.Stat the monitor reads.
type poolStats interface {
	TotalConns() int32
	IdleConns() int32
	AcquiredConns() int32
	MaxConns() int32
	AcquireCount() int64
	EmptyAcquireCount() int64
}

// RunPoolMonitor samples the pool every interval and publishes its gauges
// under the given pool label until ctx is cancelled.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m := &poolMonitor{name: name}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.record(pool.Stat())
		}
	}
}

// poolMonitor turns the pool's cumulative counters into counter increments.
type poolMonitor struct {
	name         string
	lastAcquire  int64
	lastEmptyAcq int64
}

func (m *poolMonitor) record(s poolStats) {
	conns := observability.DatabasePoolConnections
	conns.WithLabelValues(m.name, "total").Set(float64(s.TotalConns()))
	conns.WithLabelValues(m.name, "idle").Set(float64(s.IdleConns()))
	conns.WithLabelValues(m.name, "in_use").Set(float64(s.AcquiredConns()))
	conns.WithLabelValues(m.name, "max").Set(float64(s.MaxConns()))

	if acquired := s.AcquireCount(); acquired > m.lastAcquire {
		observability.DatabasePoolAcquireCount.WithLabelValues(m.name).Add(float64(acquired - m.lastAcquire))
		m.lastAcquire = acquired
	}
	if waited := s.EmptyAcquireCount(); waited > m.lastEmptyAcq {
		observability.DatabasePoolWaitCount.WithLabelValues(m.name).Add(float64(waited - m.lastEmptyAcq))
		m.lastEmptyAcq = waited
	}
}
