// Package lock serializes work per key, such as the commands of one chat.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// keyMutex is a one-slot semaphore so acquisition can be abandoned.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// KeyedLock hands out one mutex per key and drops it once nobody holds
// or waits for it.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*keyMutex)}
}

func (kl *KeyedLock) acquireRef(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.refs++
	return m
}

func (kl *KeyedLock) releaseRef(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(kl.locks, key)
	}
}

// LockContext waits for key until ctx is done or timeout elapses.
func (kl *KeyedLock) LockContext(ctx context.Context, key string, timeout time.Duration) error {
	m := kl.acquireRef(key)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.releaseRef(key, m)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (kl *KeyedLock) Unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-m.ch:
		kl.releaseRef(key, m)
	default:
	}
}
