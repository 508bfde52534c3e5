package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedWindowLimit(t *testing.T) {
	rl := NewFixedWindow(3, time.Hour)
	t.Cleanup(rl.Close)

	for i := range 3 {
		if ok, _ := rl.Allow("forum.local"); !ok {
			t.Fatalf("call %d: expected to be admitted", i)
		}
	}

	ok, retryAfter := rl.Allow("forum.local")
	if ok {
		t.Fatalf("fourth call should be rejected")
	}
	if retryAfter <= 0 || retryAfter > time.Hour {
		t.Fatalf("retryAfter out of range: %v", retryAfter)
	}

	if ok, _ := rl.Allow("other.local"); !ok {
		t.Fatalf("keys must be limited independently")
	}
}

func TestFixedWindowWaitHonoursContext(t *testing.T) {
	rl := NewFixedWindow(1, time.Hour)
	t.Cleanup(rl.Close)

	if err := rl.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFixedWindowResets(t *testing.T) {
	rl := NewFixedWindow(1, 20*time.Millisecond)
	t.Cleanup(rl.Close)

	if ok, _ := rl.Allow("k"); !ok {
		t.Fatalf("first call rejected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Wait(ctx, "k"); err != nil {
		t.Fatalf("wait across window: %v", err)
	}
}
