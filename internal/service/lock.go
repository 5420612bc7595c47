package service

import "sync/atomic"

// BatchLock allows one batch at a time. The caller acquires it before starting a
// batch and releases it when a Report with ReleaseLock arrives.
type BatchLock struct {
	held atomic.Bool
}

// TryAcquire takes the lock if it is free.
func (l *BatchLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock. Releasing a free lock is a no-op.
func (l *BatchLock) Release() {
	l.held.Store(false)
}

// Held reports whether a batch is running.
func (l *BatchLock) Held() bool {
	return l.held.Load()
}
