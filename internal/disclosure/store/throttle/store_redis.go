package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pakngate/pkg/platform/sentinel"
)

const issuanceKeyPrefix = "pakn:otp:issued:"

// RedisStore is a Redis-backed issuance throttle for distributed deployments
// where multiple gateway instances must share the cooldown window.
// Redis key TTL is the single source of truth for the remaining wait.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed issuance throttle.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Remaining reports the leftover issuance window via the key's TTL.
// The injected time is ignored; Redis owns expiry in distributed mode.
func (s *RedisStore) Remaining(ctx context.Context, caseCode string, _ time.Time) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, issuanceKeyPrefix+caseCode).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("throttle ttl: %v: %w", err, sentinel.ErrUnavailable)
	}
	if ttl < 0 {
		// -1 no expiry (should not happen), -2 key missing: window closed either way
		return 0, nil
	}
	return ttl, nil
}

// Reserve opens an issuance window using SET with expiry.
// The value is a marker; the key's existence and TTL are what matter.
func (s *RedisStore) Reserve(ctx context.Context, caseCode string, window time.Duration, _ time.Time) error {
	if window <= 0 {
		return fmt.Errorf("window must be positive: %w", sentinel.ErrInvalidState)
	}
	if err := s.client.Set(ctx, issuanceKeyPrefix+caseCode, "1", window).Err(); err != nil {
		return fmt.Errorf("throttle reserve: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

// Clear removes the issuance window for caseCode.
func (s *RedisStore) Clear(ctx context.Context, caseCode string) error {
	if err := s.client.Del(ctx, issuanceKeyPrefix+caseCode).Err(); err != nil {
		return fmt.Errorf("throttle clear: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}
