// Package redisstore is a dlrstore.Store backed by Redis, for
// multi-instance deployments where DLR correlation should survive a
// smsbox restart without requiring the bearerbox process itself to
// persist anything to disk.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// Store wraps a *redis.Client. Keys are namespaced under "dlr:" and carry
// a TTL so an SMSC that never sends a matching deliver_sm does not leak
// entries forever.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Store. ttl bounds how long an Add'd entry survives
// without a matching Find; zero disables expiry.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Add(ctx context.Context, smscID, messageID string, m *msg.Msg) error {
	data, err := msg.Pack(m)
	if err != nil {
		return fmt.Errorf("dlrstore/redisstore: pack: %w", err)
	}
	if err := s.client.Set(ctx, key(smscID, messageID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("dlrstore/redisstore: set: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, smscID, messageID, destination string, status msg.DLRStatus) (*msg.Msg, bool, error) {
	k := key(smscID, messageID)
	data, err := s.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dlrstore/redisstore: get: %w", err)
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return nil, false, fmt.Errorf("dlrstore/redisstore: del: %w", err)
	}
	m, err := msg.Unpack(data)
	if err != nil {
		return nil, false, fmt.Errorf("dlrstore/redisstore: unpack: %w", err)
	}
	return m, true, nil
}

func key(smscID, messageID string) string {
	return "dlr:" + smscID + ":" + messageID
}
