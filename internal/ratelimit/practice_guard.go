package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/mindshift/internal/config"
	"go.uber.org/zap"
)

const (
	keyPracticeRate = "practice:submit:rate:%s"
	keyPracticeLock = "practice:submit:lock:%s"

	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

var (
	// ErrLockBusy is returned when another submission holds the user lock
	// for longer than the wait budget.
	ErrLockBusy = errors.New("lock_busy")
)

// PracticeGuard applies the per-user submission rate limit and serializes
// submissions of one user. Without redis it serializes within the process
// only and never rate limits.
type PracticeGuard struct {
	log    *zap.Logger
	local  *KeyedMutex
	bucket *TokenBucket
	locker *Locker

	rateLimit bool
	rate      float64
	burst     int
	lockTTL   time.Duration
	lockWait  time.Duration
}

func NewPracticeGuard(cfg config.Config, client *redis.Client, log *zap.Logger) (*PracticeGuard, error) {
	g := &PracticeGuard{
		log:      log.Named("ratelimit.practice"),
		local:    NewKeyedMutex(),
		lockTTL:  cfg.Practice.LockTTL,
		lockWait: defaultLockWait,
	}
	if g.lockTTL <= 0 {
		g.lockTTL = defaultLockTTL
	}
	if client == nil {
		return g, nil
	}

	g.locker = NewLocker(client, keyPracticeLock)
	if cfg.Practice.RateLimitEnabled {
		if cfg.Practice.Rate <= 0 || cfg.Practice.Burst <= 0 {
			return nil, errors.New("practice rate limit must be positive")
		}
		g.bucket = NewTokenBucket(client)
		g.rateLimit = true
		g.rate = cfg.Practice.Rate
		g.burst = cfg.Practice.Burst
	}
	return g, nil
}

func (g *PracticeGuard) RateLimited() bool {
	return g != nil && g.rateLimit
}

// Allow consumes one token from the user's submission bucket.
func (g *PracticeGuard) Allow(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !g.RateLimited() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return g.bucket.Allow(ctx, fmt.Sprintf(keyPracticeRate, strings.TrimSpace(userID)), g.rate, g.burst)
}

// Acquire takes the user's submission lock. The in-process lock is always
// taken; the redis lock is added when redis is configured so replicas
// serialize too. Both share one wait budget.
func (g *PracticeGuard) Acquire(ctx context.Context, userID string) (func(), error) {
	key := strings.TrimSpace(userID)
	deadline := time.Now().Add(g.lockWait)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	unlockLocal, err := g.local.Lock(waitCtx, key)
	if err != nil {
		return nil, waitError(ctx, waitCtx, err)
	}
	if g.locker == nil {
		return unlockLocal, nil
	}

	release, err := g.locker.Acquire(ctx, key, g.lockTTL, time.Until(deadline))
	if err != nil {
		unlockLocal()
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			g.log.Warn("release practice lock", zap.String("user_id", key), zap.Error(err))
		}
		unlockLocal()
	}, nil
}
