package cache

import (
	"testing"
	"time"
)

func TestLRU_GetAdd(t *testing.T) {
	c := New[string, int]("test", 2, time.Minute, nil)
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a hit")
	}
	c.Add("a", 1)
	c.Add("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d,%v", v, ok)
	}
	c.Add("c", 3) // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestLRU_EvictCallbackOnRemove(t *testing.T) {
	var evicted []string
	c := New[string, string]("test", 4, time.Minute, func(k, _ string) {
		evicted = append(evicted, k)
	})
	c.Add("x", "1")
	c.Remove("x")
	if len(evicted) != 1 || evicted[0] != "x" {
		t.Fatalf("evicted = %v", evicted)
	}
}

func TestLRU_Expiry(t *testing.T) {
	c := New[int, int]("test", 4, 20*time.Millisecond, nil)
	c.Add(1, 1)
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(1); ok {
		t.Fatal("entry should have expired")
	}
}

func TestNew_PanicsOnZeroSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New[int, int]("test", 0, time.Minute, nil)
}
