package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockerLifecycle(t *testing.T) {
	locker := NewLocker()

	unlock, err := locker.Lock(context.Background(), "answer:u1:q1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locker.Len() != 1 {
		t.Fatalf("expected one held key, got %d", locker.Len())
	}

	unlock()
	unlock() // second call is a no-op
	if locker.Len() != 0 {
		t.Fatalf("expected key released, got %d", locker.Len())
	}
}

func TestLockerSerializesSameKey(t *testing.T) {
	locker := NewLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), "k")
		if err != nil {
			return
		}
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatalf("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second lock never acquired")
	}
}

func TestLockerHonoursContext(t *testing.T) {
	locker := NewLocker()
	unlock, _ := locker.Lock(context.Background(), "k")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	other, err := locker.Lock(context.Background(), "other")
	if err != nil {
		t.Fatalf("independent key should not block: %v", err)
	}
	other()
}
