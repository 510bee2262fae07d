package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New[string, int](0, WithClock(clock.Now))
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "a", 1, time.Minute)

	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("Get = %d, %v", v, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("entry should have expired")
	}
	if n := c.EvictExpired(); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestCache_SetIfAbsent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New[string, struct{}](0, WithClock(clock.Now))
	defer c.Close()

	ctx := context.Background()
	if !c.SetIfAbsent(ctx, "r1", struct{}{}, time.Second) {
		t.Fatal("first insert should succeed")
	}
	if c.SetIfAbsent(ctx, "r1", struct{}{}, time.Second) {
		t.Fatal("second insert should be rejected")
	}

	clock.Advance(2 * time.Second)
	if !c.SetIfAbsent(ctx, "r1", struct{}{}, time.Second) {
		t.Fatal("insert after expiry should succeed")
	}

	c.Delete(ctx, "r1")
	if _, ok := c.Get(ctx, "r1"); ok {
		t.Fatal("deleted entry still present")
	}
}

func TestCache_JanitorStops(t *testing.T) {
	c := New[int, int](time.Millisecond)
	c.Set(context.Background(), 1, 1, time.Nanosecond)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Errorf("janitor did not evict, Len = %d", c.Len())
	}

	c.Close()
	c.Close()
}
