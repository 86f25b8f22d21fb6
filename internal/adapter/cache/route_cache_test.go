package cache

import (
	"fmt"
	"sync"
	"testing"

	"genesis/internal/adapter/mapper"
)

type countingRouter struct {
	mu    sync.Mutex
	calls int
	m     *mapper.Mapper
}

func (r *countingRouter) Route(name string) mapper.Route {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.m.Route(name)
}

func newRouter(t *testing.T, rules ...mapper.Rule) *countingRouter {
	t.Helper()
	m, err := mapper.New(rules, mapper.Options{OutputRoot: "src"})
	if err != nil {
		t.Fatalf("mapper.New: %v", err)
	}
	return &countingRouter{m: m}
}

func TestCachedRouter_SameResultAsRouter(t *testing.T) {
	inner := newRouter(t, mapper.Rule{Pattern: "ast_", Dir: "ast"})
	r := NewCachedRouter(inner, NewRouteCache(10))

	first := r.Route("ast_free")
	second := r.Route("ast_free")

	if first != second {
		t.Errorf("expected identical routes, got %+v and %+v", first, second)
	}
	if first != inner.m.Route("ast_free") {
		t.Errorf("cached route differs from mapper: %+v", first)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", inner.calls)
	}
}

func TestCachedRouter_ResetInvalidates(t *testing.T) {
	c := NewRouteCache(10)
	r := NewCachedRouter(newRouter(t, mapper.Rule{Pattern: "x", Dir: "one"}), c)

	if got := r.Route("xy").Dir; got != "one" {
		t.Fatalf("expected dir one, got %s", got)
	}

	r.Reset(newRouter(t, mapper.Rule{Pattern: "x", Dir: "two"}))
	if c.Size() != 0 {
		t.Errorf("expected empty cache after reset, got %d", c.Size())
	}
	if got := r.Route("xy").Dir; got != "two" {
		t.Errorf("expected dir two after reset, got %s", got)
	}
}

func TestRouteCache_EvictsOldest(t *testing.T) {
	c := NewRouteCache(2)
	c.Put("a", mapper.Route{Name: "a"})
	c.Put("b", mapper.Route{Name: "b"})
	c.Get("a")
	c.Put("c", mapper.Route{Name: "c"})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive, it was used recently")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestRouteCache_Concurrent(t *testing.T) {
	r := NewCachedRouter(newRouter(t, mapper.Rule{Pattern: "f", Dir: "fs"}), NewRouteCache(16))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := fmt.Sprintf("f%d", j%32)
				if got := r.Route(name).Dir; got != "fs" {
					t.Errorf("expected fs, got %s", got)
				}
			}
		}(i)
	}
	wg.Wait()

	hits, misses := r.cache.Stats()
	if hits+misses != 800 {
		t.Errorf("expected 800 lookups, got %d", hits+misses)
	}
}
