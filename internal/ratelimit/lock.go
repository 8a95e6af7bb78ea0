package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is a redis mutex over one key namespace, e.g. one lock per user
// for practice submissions. Only the token holder can release a lock.
type Locker struct {
	client    *redis.Client
	script    *redis.Script
	keyFormat string
	poll      time.Duration
}

// NewLocker builds a Locker whose keys are keyFormat applied to the subject.
func NewLocker(client *redis.Client, keyFormat string) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:    client,
		script:    redis.NewScript(lockReleaseScript),
		keyFormat: keyFormat,
		poll:      lockPollInterval,
	}
}

func (l *Locker) key(subject string) string {
	return fmt.Sprintf(l.keyFormat, strings.TrimSpace(subject))
}

// TryLock makes a single SetNX attempt for subject.
func (l *Locker) TryLock(ctx context.Context, subject string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if strings.TrimSpace(subject) == "" {
		return "", false, errors.New("lock subject is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(subject), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Acquire polls TryLock until the lock is taken or wait runs out. Running
// out of wait, even in the middle of a redis round trip, is ErrLockBusy; a
// cancelled ctx is returned as is. The returned func releases the lock.
func (l *Locker) Acquire(ctx context.Context, subject string, ttl, wait time.Duration) (func() error, error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		token, ok, err := l.TryLock(waitCtx, subject, ttl)
		if err != nil {
			return nil, waitError(ctx, waitCtx, err)
		}
		if ok {
			return func() error {
				// Release must outlive a cancelled request context.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				return l.Release(releaseCtx, subject, token)
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, waitError(ctx, waitCtx, waitCtx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *Locker) Release(ctx context.Context, subject, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if strings.TrimSpace(subject) == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.key(subject)}, token).Err()
}

// waitError maps a failure while waiting for a lock. A caller cancellation
// wins, an exhausted wait budget is ErrLockBusy, anything else is a storage
// error.
func waitError(ctx, waitCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitCtx.Err() != nil {
		return ErrLockBusy
	}
	if deadline, ok := waitCtx.Deadline(); ok && !time.Now().Before(deadline) {
		return ErrLockBusy
	}
	return err
}
