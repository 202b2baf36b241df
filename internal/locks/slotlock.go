// Package locks serializes concurrent booking attempts on the same
// slot across API instances using short-lived Redis keys.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSlotHeld is returned when another booking attempt holds the slot.
var ErrSlotHeld = errors.New("locks: slot is held by another booking attempt")

// SlotLocker guards the check-then-create window during booking.
type SlotLocker interface {
	WithSlotLock(ctx context.Context, practitionerID uuid.UUID, startAt time.Time, fn func(ctx context.Context) error) error
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker with one Redis key per
// practitioner and start time. TTL bounds how long a crashed holder
// can block the slot.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) SlotLocker {
	if client == nil {
		panic("locks: redis client required")
	}
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, practitionerID uuid.UUID, startAt time.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:slot:%s:%d", practitionerID, startAt.UTC().Unix())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("locks: acquire slot lock: %w", err)
	}
	if !ok {
		return ErrSlotHeld
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// Release compares the token before deleting so a lock that expired and
// was re-acquired by another instance is never removed from under it.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("locks: release slot lock: %w", err)
	}
	return nil
}

// NoopLocker runs the callback without locking. Used when Redis is not
// configured, e.g. single-instance deployments and tests.
type NoopLocker struct{}

func (NoopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
