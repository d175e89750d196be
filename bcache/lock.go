package bcache

import (
	"sync"
	"sync/atomic"
)

// contentLock is the per-buffer blocking lock protecting block content.
// Acquiring it may suspend the goroutine until the current holder releases.
// Unlike a bare sync.Mutex it records held state, so contract checks in
// Write and Release can reject callers that never locked the buffer.
type contentLock struct {
	mu     sync.Mutex
	locked atomic.Bool
}

func (l *contentLock) lock() {
	l.mu.Lock()
	l.locked.Store(true)
}

func (l *contentLock) unlock() {
	l.locked.Store(false)
	l.mu.Unlock()
}

// held reports whether some goroutine currently holds the lock.
func (l *contentLock) held() bool { return l.locked.Load() }
