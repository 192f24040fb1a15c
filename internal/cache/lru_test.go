package cache

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Unix(1000, 0)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("a = %q, %v", v, ok)
	}
	if len(evicted) != 1 || evicted[0] != "b" || c.Size() != 2 {
		t.Fatalf("evicted=%v size=%d", evicted, c.Size())
	}
}

func TestLRUSlidingExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("s", "v")

	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatal("entry expired too early")
	}
	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatal("Get should renew the lifetime")
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := c.Get("s"); ok {
		t.Fatal("idle entry should expire")
	}
}

func TestGetOrCreate(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	calls := 0
	create := func() string { calls++; return "new" }

	if v, created := c.GetOrCreate("k", create); !created || v != "new" {
		t.Fatalf("first GetOrCreate = %q, %v", v, created)
	}
	if _, created := c.GetOrCreate("k", create); created || calls != 1 {
		t.Fatalf("second call created again (calls=%d)", calls)
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if _, created := c.GetOrCreate("k", create); !created || calls != 2 {
		t.Fatal("expired entry should be recreated")
	}
}

func TestEachSkipsExpired(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("old", "1")
	clk.t = clk.t.Add(2 * time.Minute)
	c.Set("new", "2")

	var keys []string
	c.Each(func(k, _ string) { keys = append(keys, k) })
	if len(keys) != 1 || keys[0] != "new" {
		t.Fatalf("Each visited %v", keys)
	}
	if n := c.CleanExpired(); n != 1 || c.Size() != 1 {
		t.Fatalf("CleanExpired() = %d, size %d", n, c.Size())
	}
}

func TestManagerCleansAndStops(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("x", "1")
	clk.t = clk.t.Add(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow() = %d", n)
	}

	m.Start(context.Background(), time.Millisecond)
	m.Start(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()
}
