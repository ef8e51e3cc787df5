package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionLocksTryAcquire(t *testing.T) {
	locks := NewSessionLocks()
	id := uuid.New()

	release, ok := locks.TryAcquire(id)
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := locks.TryAcquire(id); ok {
		t.Fatal("second acquire should fail while held")
	}
	other, ok := locks.TryAcquire(uuid.New())
	if !ok {
		t.Fatal("other sessions must not be blocked")
	}
	other()

	release()
	release() // double release is harmless

	again, ok := locks.TryAcquire(id)
	if !ok {
		t.Fatal("acquire after release should succeed")
	}
	again()

	if locks.size() != 0 {
		t.Fatalf("expected no lock entries, got %d", locks.size())
	}
}

func TestSessionLocksAcquireWaits(t *testing.T) {
	locks := NewSessionLocks()
	id := uuid.New()

	release, _ := locks.TryAcquire(id)

	acquired := make(chan func())
	go func() {
		r, err := locks.Acquire(context.Background(), id)
		if err != nil {
			t.Errorf("Acquire: %v", err)
			close(acquired)
			return
		}
		acquired <- r
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	r := <-acquired
	if r == nil {
		t.Fatal("expected a release func")
	}
	r()

	if locks.size() != 0 {
		t.Fatalf("expected no lock entries, got %d", locks.size())
	}
}

func TestSessionLocksAcquireHonoursContext(t *testing.T) {
	locks := NewSessionLocks()
	id := uuid.New()

	release, _ := locks.TryAcquire(id)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := locks.Acquire(ctx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if locks.size() != 1 {
		t.Fatalf("expected only the holder's entry, got %d", locks.size())
	}
}
