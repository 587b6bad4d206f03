package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}

	c.Set("a", "1")
	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Fatalf("expected hit with %q, got %q ok=%v", "1", got, ok)
	}

	c.Set("a", "2") // overwrite
	got, _ = c.Get("a")
	if got != "2" {
		t.Fatalf("expected overwritten value, got %q", got)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch a so b becomes the oldest
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected least recently used entry evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected touched entry retained")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected newest entry retained")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // deleting a missing key is fine

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry gone")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if c.Size() != 1 {
		t.Fatalf("expected 1 remaining, got %d", c.Size())
	}
}
