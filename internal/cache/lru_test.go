package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Fatalf("Get(c) = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	// b was least recently used, not a
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry should not be returned")
	}
	c.Set("b", 2)
	time.Sleep(5 * time.Millisecond)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d", n)
	}
}

func TestLRUDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("summary:7:%d", i), i)
	}
	c.Set("summary:8:0", 99)

	if n := c.DeletePrefix("summary:7:"); n != 3 {
		t.Fatalf("DeletePrefix = %d", n)
	}
	if _, ok := c.Get("summary:8:0"); !ok {
		t.Fatal("other user's entries should survive")
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
}
