package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[string], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s missing", key)
		}
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2")

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Errorf("b = %q, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("cleaned %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRU_OverwriteAndDelete(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("a = %q", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
	c.Set("x", "1")
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("size after purge = %d", c.Size())
	}
}

func TestJanitor_Sweep(t *testing.T) {
	c, clk := newTestLRU(10, time.Second)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(time.Minute)

	j := NewJanitor()
	j.Register(c)
	if n := j.Sweep(); n != 2 {
		t.Errorf("swept %d, want 2", n)
	}
	j.Stop()
}
