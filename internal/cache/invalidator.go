package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/recommender/internal/observability"
)

// ErrAlreadyStarted is returned by a second call to Invalidator.Start.
var ErrAlreadyStarted = errors.New("cache: invalidator already started")

// invalidation is the pub/sub payload. An empty UserID clears everything.
type invalidation struct {
	Origin string `json:"origin"`
	UserID string `json:"user_id,omitempty"`
}

// Invalidator clears the caches on operator request and keeps the L1 tier
// of every replica in step through Redis pub/sub. Without a Redis client it
// only clears the local caches.
type Invalidator struct {
	cache      QueryCache
	l1         QueryCache
	client     *redis.Client
	channel    string
	instanceID string
	logger     *slog.Logger
	started    atomic.Bool
	done       chan struct{}
}

// NewInvalidator builds an Invalidator.
// cache is the full cache cleared on local requests, l1 the replica-local
// tier cleared on broadcasts from other replicas. client may be nil.
func NewInvalidator(cache, l1 QueryCache, client *redis.Client, channel string, logger *slog.Logger) *Invalidator {
	if cache == nil || l1 == nil {
		panic("cache: invalidator requires both caches")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{
		cache:      cache,
		l1:         l1,
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// ClearAll drops every cached aggregate and tells the other replicas to do the same.
func (i *Invalidator) ClearAll(ctx context.Context) error {
	if err := i.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear caches: %w", err)
	}
	observability.QueryCacheInvalidations.WithLabelValues("local").Inc()
	i.logger.Info("query caches cleared")
	return i.publish(ctx, invalidation{Origin: i.instanceID})
}

// ClearUser drops one user's cached aggregates on every replica.
func (i *Invalidator) ClearUser(ctx context.Context, userID string) error {
	if err := i.cache.ClearUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear caches of user %s: %w", userID, err)
	}
	observability.QueryCacheInvalidations.WithLabelValues("local").Inc()
	i.logger.Info("query caches cleared for user", slog.String("user_id", userID))
	return i.publish(ctx, invalidation{Origin: i.instanceID, UserID: userID})
}

func (i *Invalidator) publish(ctx context.Context, msg invalidation) error {
	if i.client == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Start subscribes to the invalidation channel and returns once the
// subscription is confirmed. Messages are handled in a goroutine until ctx
// is cancelled; Done is closed when it exits. Start is a no-op without a
// Redis client. It runs at most once; later calls return ErrAlreadyStarted.
func (i *Invalidator) Start(ctx context.Context) error {
	if !i.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if i.client == nil {
		close(i.done)
		return nil
	}

	sub := i.client.Subscribe(ctx, i.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		close(i.done)
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("listening for cache invalidations", slog.String("channel", i.channel))

	go func() {
		defer close(i.done)
		defer func() { _ = sub.Close() }()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				i.handle(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

// Done is closed once the listener has stopped.
func (i *Invalidator) Done() <-chan struct{} {
	return i.done
}

func (i *Invalidator) handle(ctx context.Context, payload string) {
	var msg invalidation
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		i.logger.Warn("ignoring malformed invalidation", slog.String("payload", payload))
		return
	}
	// Our own broadcast; the local clear already happened.
	if msg.Origin == i.instanceID {
		return
	}

	var err error
	if msg.UserID == "" {
		err = i.l1.Clear(ctx)
	} else {
		err = i.l1.ClearUser(ctx, msg.UserID)
	}
	if err != nil {
		i.logger.Error("failed to apply invalidation", slog.Any("error", err))
		return
	}

	observability.QueryCacheInvalidations.WithLabelValues("pubsub").Inc()
	i.logger.Debug("applied remote invalidation",
		slog.String("origin", msg.Origin),
		slog.String("user_id", msg.UserID),
	)
}
