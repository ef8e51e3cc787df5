package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionLocks serialises work per session. Entries are reference counted
// and removed once nobody holds or waits for them.
type SessionLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// TryAcquire takes the lock for id without waiting. ok is false when another
// holder has it.
func (l *SessionLocks) TryAcquire(id uuid.UUID) (release func(), ok bool) {
	entry := l.ref(id)
	select {
	case entry.sem <- struct{}{}:
		return l.releaser(id, entry), true
	default:
		l.unref(id, entry)
		return nil, false
	}
}

// Acquire waits for the lock on id until ctx is done.
func (l *SessionLocks) Acquire(ctx context.Context, id uuid.UUID) (release func(), err error) {
	entry := l.ref(id)
	select {
	case entry.sem <- struct{}{}:
		return l.releaser(id, entry), nil
	case <-ctx.Done():
		l.unref(id, entry)
		return nil, ctx.Err()
	}
}

func (l *SessionLocks) ref(id uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[id] = entry
	}
	entry.refs++
	return entry
}

func (l *SessionLocks) unref(id uuid.UUID, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, id)
	}
}

func (l *SessionLocks) releaser(id uuid.UUID, entry *lockEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.unref(id, entry)
		})
	}
}

func (l *SessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
