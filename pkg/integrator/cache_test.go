package integrator

import (
	"testing"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

func TestPathCacheAddAndLookup(t *testing.T) {
	cache := NewPathCache(3, 4)

	id0 := cache.Add(0, PathVertex{Depth: 0, AncestorID: -1})
	id1 := cache.Add(0, PathVertex{Depth: 1, AncestorID: id0})
	id2 := cache.Add(2, PathVertex{Depth: 0, AncestorID: -1})

	if id0 != 0 || id1 != 1 {
		t.Errorf("path 0 vertex ids = %d, %d, want 0, 1", id0, id1)
	}
	if id2 != 8 {
		t.Errorf("path 2 first vertex id = %d, want 8", id2)
	}
	if cache.Length(0) != 2 || cache.Length(1) != 0 || cache.Length(2) != 1 {
		t.Errorf("lengths = %d, %d, %d, want 2, 0, 1",
			cache.Length(0), cache.Length(1), cache.Length(2))
	}
	if v := cache.Vertex(id1); v.Depth != 1 || v.AncestorID != id0 {
		t.Errorf("vertex %d = depth %d ancestor %d, want depth 1 ancestor %d",
			id1, v.Depth, v.AncestorID, id0)
	}
}

func TestPathCacheFullPath(t *testing.T) {
	cache := NewPathCache(1, 2)
	if id := cache.Add(0, PathVertex{}); id != 0 {
		t.Fatalf("first add returned %d", id)
	}
	if id := cache.Add(0, PathVertex{}); id != 1 {
		t.Fatalf("second add returned %d", id)
	}
	if id := cache.Add(0, PathVertex{}); id != -1 {
		t.Errorf("add past capacity returned %d, want -1", id)
	}
}

func TestPathCacheClear(t *testing.T) {
	cache := NewPathCache(2, 2)
	cache.Add(0, PathVertex{})
	cache.Add(1, PathVertex{})
	cache.Clear()

	if cache.Length(0) != 0 || cache.Length(1) != 0 {
		t.Error("lengths not reset after Clear")
	}
	if id := cache.Add(1, PathVertex{Depth: 7}); id != 2 {
		t.Errorf("add after clear returned %d, want 2", id)
	}
}

func TestVertexSelectorFlatToID(t *testing.T) {
	// path lengths 2, 0, 3: flat indices must skip the empty path
	cache := NewPathCache(3, 4)
	cache.Add(0, PathVertex{Depth: 10})
	cache.Add(0, PathVertex{Depth: 11})
	cache.Add(2, PathVertex{Depth: 20})
	cache.Add(2, PathVertex{Depth: 21})
	cache.Add(2, PathVertex{Depth: 22})

	var selector VertexSelector
	selector.Build(cache)

	if selector.Count() != 5 {
		t.Fatalf("count = %d, want 5", selector.Count())
	}

	wantDepths := []int32{10, 11, 20, 21, 22}
	for flat, want := range wantDepths {
		id := selector.FlatToID(flat)
		if got := cache.Vertex(id).Depth; got != want {
			t.Errorf("flat %d -> vertex depth %d, want %d", flat, got, want)
		}
	}
}

func TestVertexSelectorSelect(t *testing.T) {
	cache := NewPathCache(4, 3)
	for path := 0; path < 4; path++ {
		for d := 0; d < path; d++ { // lengths 0, 1, 2, 3
			cache.Add(path, PathVertex{Depth: int32(path*10 + d)})
		}
	}
	var selector VertexSelector
	selector.Build(cache)
	if selector.Count() != 6 {
		t.Fatalf("count = %d, want 6", selector.Count())
	}

	rng := core.NewRng(1, 2, 3)
	seen := map[int32]int{}
	for i := 0; i < 6000; i++ {
		v := selector.Select(rng)
		if v == nil {
			t.Fatal("Select returned nil on non-empty cache")
		}
		seen[v.Depth]++
	}
	if len(seen) != 6 {
		t.Fatalf("selected %d distinct vertices, want 6", len(seen))
	}
	for depth, count := range seen {
		if count < 700 || count > 1300 {
			t.Errorf("vertex %d selected %d times out of 6000, want roughly uniform", depth, count)
		}
	}
}

func TestVertexSelectorEmpty(t *testing.T) {
	var selector VertexSelector
	selector.Build(NewPathCache(2, 2))
	if selector.Count() != 0 {
		t.Fatalf("count = %d, want 0", selector.Count())
	}
	if v := selector.Select(core.NewRng(0, 0, 0)); v != nil {
		t.Error("Select on empty cache returned a vertex")
	}
}
