package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateTTL bounds how long a consent round-trip may take.
const stateTTL = 10 * time.Minute

// StateStore issues and consumes single-use CSRF states for the
// provider handshake.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) (bool, error)
}

// RedisStateStore keeps states in redis with a TTL, so any instance
// behind the load balancer can complete a handshake another started.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore constructs a RedisStateStore.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func stateKey(state string) string {
	return "oauth:state:" + state
}

// Issue generates a random state and records it.
func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	if err := s.client.Set(ctx, stateKey(state), "1", stateTTL).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Consume reports whether the state was issued by us and removes it so
// it cannot be replayed.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.client.Del(ctx, stateKey(state)).Result()
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}
	return n > 0, nil
}

var _ StateStore = (*RedisStateStore)(nil)
