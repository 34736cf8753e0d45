// Package lock provides keyed mutual exclusion. Services hold a user's lock
// while they read, mutate and enqueue that user's state.
package lock

import (
	"context"
	"sync"
	"time"
)

// entry is a mutex with a count of goroutines holding or waiting for it.
type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed hands out one mutex per key. Entries are dropped once nobody holds
// or waits for them.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New creates an empty Keyed lock.
func New[K comparable]() *Keyed[K] {
	return &Keyed[K]{entries: make(map[K]*entry)}
}

func (k *Keyed[K]) acquire(key K) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed[K]) release(key K, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock blocks until the lock for key is held.
func (k *Keyed[K]) Lock(key K) {
	k.acquire(key).mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not locked is a
// no-op.
func (k *Keyed[K]) Unlock(key K) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	k.release(key, e)
}

// TryLock acquires the lock without blocking.
func (k *Keyed[K]) TryLock(key K) bool {
	e := k.acquire(key)
	if e.mu.TryLock() {
		return true
	}
	k.release(key, e)
	return false
}

// LockContext waits for the lock until ctx is done or timeout elapses.
// A zero timeout waits on ctx alone.
func (k *Keyed[K]) LockContext(ctx context.Context, key K, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e := k.acquire(key)
	done := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			e.mu.Unlock()
			k.release(key, e)
		}()
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock runs fn while holding the lock for key.
func (k *Keyed[K]) WithLock(key K, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

// WithLockContext runs fn while holding the lock for key, giving up when
// the lock cannot be taken before ctx is done or timeout elapses.
func (k *Keyed[K]) WithLockContext(ctx context.Context, key K, timeout time.Duration, fn func() error) error {
	if err := k.LockContext(ctx, key, timeout); err != nil {
		return err
	}
	defer k.Unlock(key)
	return fn()
}

// IsLocked is a point-in-time check of whether key is held.
func (k *Keyed[K]) IsLocked(key K) bool {
	k.mu.Lock()
	_, ok := k.entries[key]
	k.mu.Unlock()
	return ok
}

// Len returns the number of keys currently held or awaited.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
