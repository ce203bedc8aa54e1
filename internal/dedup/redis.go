// Package dedup remembers consumed event ids so redelivered events are not
// applied twice.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records processed event ids with a bounded TTL. Checking and
// marking are separate so a failed processing attempt can still be
// retried: consumers call Seen before applying side effects and Mark only
// after they succeed.
type Store interface {
	// Seen reports whether eventID has already been processed. It does not
	// mark anything.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Mark records eventID as processed.
	Mark(ctx context.Context, eventID string) error
	Close() error
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(addr, prefix string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+":"+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event seen: %w", err)
	}
	return n > 0, nil
}

// Mark runs after side effects succeed. A crash between the side effect
// and the mark leaves the redelivery to be applied again; at-least-once
// plus dedup cannot give exactly-once, and the marker only narrows the
// window.
func (s *RedisStore) Mark(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, s.prefix+":"+eventID, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event seen: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
