package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2)
	a, b, d := KeyOf("a"), KeyOf("b"), KeyOf("d")
	c.Set(a, 1)
	c.Set(b, 2)
	if _, ok := c.Get(a); !ok {
		t.Fatal("a should be cached")
	}
	c.Set(d, 3)

	if _, ok := c.Get(b); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []Key{a, d} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%x should be cached", k[:4])
		}
	}
	if s := c.Stats(); s.Len != 2 || s.Evictions != 1 {
		t.Errorf("Stats() = %+v, want Len 2 Evictions 1", s)
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New[string](0)
	key := KeyOf("@compute fn main() {}")
	var calls atomic.Int32
	compute := func() (string, error) {
		calls.Add(1)
		return "module", nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute(key, compute)
			if err != nil || v != "module" {
				t.Errorf("GetOrCompute() = %q, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compute ran %d times, want 1", n)
	}
	if s := c.Stats(); s.Misses != 1 || s.Hits != 7 {
		t.Errorf("Stats() = %+v, want 1 miss and 7 hits", s)
	}
}

func TestErrorsNotCached(t *testing.T) {
	c := New[int](4)
	key := KeyOf("broken")
	errParse := errors.New("parse")

	if _, err := c.GetOrCompute(key, func() (int, error) { return 0, errParse }); !errors.Is(err, errParse) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, errParse)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after a failed compute", c.Len())
	}
	v, err := c.GetOrCompute(key, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("GetOrCompute() = %d, %v, want 7", v, err)
	}
}

func TestDelete(t *testing.T) {
	c := New[int](0)
	k := KeyOf("x")
	c.Set(k, 1)
	c.Set(k, 2)
	if v, _ := c.Get(k); v != 2 {
		t.Errorf("Get() = %d, want 2", v)
	}
	if !c.Delete(k) {
		t.Error("Delete() = false for a stored key")
	}
	if c.Delete(k) {
		t.Error("Delete() = true for a removed key")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
