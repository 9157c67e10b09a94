package infra

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_TryAcquire(t *testing.T) {
	rl := NewRateLimiter(2, 10)

	if !rl.TryAcquire() {
		t.Error("expected first TryAcquire to succeed")
	}
	if !rl.TryAcquire() {
		t.Error("expected second TryAcquire to succeed")
	}

	// Third should fail (no tokens left)
	if rl.TryAcquire() {
		t.Error("expected third TryAcquire to fail")
	}
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	// 10 tokens/second, burst of 10; a burst of 15 yields exactly 10
	// immediate grants, and the rest must wait for refill.
	clock := newFakeClock()
	rl := NewRateLimiter(10, 10)
	rl.now = clock.Now
	rl.lastRefill = clock.Now()

	granted := 0
	for i := 0; i < 15; i++ {
		if rl.TryAcquire() {
			granted++
		}
	}
	if granted != 10 {
		t.Fatalf("immediate grants = %d, want exactly 10", granted)
	}

	// After 0.4s only 4 tokens have refilled; the 5 stragglers still
	// cannot all pass.
	clock.Advance(400 * time.Millisecond)
	granted = 0
	for i := 0; i < 5; i++ {
		if rl.TryAcquire() {
			granted++
		}
	}
	if granted != 4 {
		t.Errorf("grants after 0.4s = %d, want 4", granted)
	}

	// At >= 0.5s total the remaining token is available.
	clock.Advance(100 * time.Millisecond)
	if !rl.TryAcquire() {
		t.Error("expected final token at 0.5s")
	}
	if rl.TryAcquire() {
		t.Error("bucket should be empty again")
	}
}

func TestRateLimiter_AcquireBlocks(t *testing.T) {
	rl := NewRateLimiter(1, 100)

	if err := rl.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	// Second Acquire should block ~10ms (1/100 second).
	start := time.Now()
	if err := rl.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("expected Acquire to block, but elapsed=%v", elapsed)
	}
}

func TestRateLimiter_AcquireTimeout(t *testing.T) {
	rl := NewRateLimiter(1, 0.1) // Token every 10 seconds.
	rl.TryAcquire()

	err := rl.Acquire(context.Background(), 20*time.Millisecond)
	if err != ErrTokenWaitTimeout {
		t.Errorf("expected ErrTokenWaitTimeout, got %v", err)
	}
}

func TestRateLimiter_AcquireCancelled(t *testing.T) {
	rl := NewRateLimiter(1, 0.1)
	rl.TryAcquire()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rl.Acquire(ctx, time.Hour)
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not honor cancellation")
	}
}
