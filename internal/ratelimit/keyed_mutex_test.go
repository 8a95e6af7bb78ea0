package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "user-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutexDifferentKeysDoNotContend(t *testing.T) {
	m := NewKeyedMutex()
	unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, m.Len())
}

func TestPracticeGuardWithoutRedis(t *testing.T) {
	g, err := NewPracticeGuard(config.Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	g.lockWait = 20 * time.Millisecond

	assert.False(t, g.RateLimited())
	res, err := g.Allow(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	release, err := g.Acquire(context.Background(), "42")
	require.NoError(t, err)

	_, err = g.Acquire(context.Background(), "42")
	assert.ErrorIs(t, err, ErrLockBusy)

	release()
	release, err = g.Acquire(context.Background(), "42")
	require.NoError(t, err)
	release()
}
