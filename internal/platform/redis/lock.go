package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("appointment lock not acquired")

// Locker guards the critical section of a booking attempt for one appointment.
type Locker interface {
	WithLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error
}

type appointmentLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAppointmentLocker creates a locker backed by a per-appointment Redis key.
func NewAppointmentLocker(client *redis.Client, ttl time.Duration) Locker {
	return &appointmentLocker{client: client, ttl: ttl}
}

func (l *appointmentLocker) WithLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:appointment:%s", appointmentID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire appointment lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// Release only deletes the key when it still holds our token, so an expired
// lock reacquired by another booking attempt is never removed from under it.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *appointmentLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release appointment lock: %w", err)
	}
	return nil
}

// NoopLocker runs the critical section without coordination. Used when Redis
// is not configured; the conditional UPDATE in the repository still prevents
// double booking, the lock only narrows the conflict-check window.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
