package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Burst(t *testing.T) {
	l := New(60) // 1 rps, burst 6
	allowed := 0
	for i := 0; i < 20; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 6 {
		t.Errorf("allowed = %d, want 6", allowed)
	}
	if d := l.RetryAfter(); d <= 0 {
		t.Errorf("RetryAfter = %s, want > 0", d)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0)
	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatalf("request %d rejected by disabled limiter", i)
		}
	}
}

func TestKeyedLimiter_IndependentKeys(t *testing.T) {
	k := NewKeyed(10, time.Minute) // burst 1
	defer k.Close()

	ctx := context.Background()
	if !k.Allow(ctx, "10.0.0.1") {
		t.Fatal("first request for key A rejected")
	}
	if k.Allow(ctx, "10.0.0.1") {
		t.Fatal("second request for key A should be limited")
	}
	if !k.Allow(ctx, "10.0.0.2") {
		t.Fatal("key B should have its own bucket")
	}
	if k.RetryAfter(ctx, "10.0.0.1") <= 0 {
		t.Error("expected positive retry-after for exhausted key")
	}
}
