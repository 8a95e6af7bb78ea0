package ratelimit

import (
	"context"
	"sync"
)

// KeyedMutex serializes callers that share a key while letting different
// keys proceed in parallel. Idle keys are dropped from the map.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the key and must be called exactly once.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() { m.unlock(key, l) }, nil
	case <-ctx.Done():
		m.mu.Lock()
		m.drop(key, l)
		m.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) unlock(key string, l *keyedLock) {
	<-l.ch
	m.mu.Lock()
	m.drop(key, l)
	m.mu.Unlock()
}

// drop must be called with m.mu held.
func (m *KeyedMutex) drop(key string, l *keyedLock) {
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Len reports the number of keys currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
