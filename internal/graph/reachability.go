package graph

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Set is an immutable set of symbol ids backed by a roaring bitmap.
type Set struct {
	bm *roaring.Bitmap
}

// NewSet creates a set holding ids.
func NewSet(ids ...SymbolID) *Set {
	bm := roaring.New()
	for _, id := range ids {
		bm.Add(uint32(id))
	}
	return &Set{bm: bm}
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id SymbolID) bool {
	return s.bm.Contains(uint32(id))
}

// Len returns the number of ids in the set.
func (s *Set) Len() int {
	return int(s.bm.GetCardinality())
}

// IDs returns the members in ascending order.
func (s *Set) IDs() []SymbolID {
	out := make([]SymbolID, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, SymbolID(it.Next()))
	}
	return out
}

// Roots returns the root set: every symbol that is public or an entry point.
// It looks at nothing but those two properties.
func Roots(table *SymbolTable) *Set {
	bm := roaring.New()
	for _, s := range table.Symbols() {
		if s.Visibility == syntax.Public || s.IsEntryPoint {
			bm.Add(uint32(s.ID))
		}
	}
	return &Set{bm: bm}
}

// Reachable returns every symbol reachable from roots by following edges,
// roots included. Each node is expanded at most once, so the traversal is
// O(nodes + edges) and terminates on cycles.
func Reachable(cg *CallGraph, roots *Set) (*Set, error) {
	adj, err := cg.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read call graph: %w", err)
	}

	visited := roaring.New()
	queue := make([]SymbolID, 0, roots.Len())
	for _, id := range roots.IDs() {
		if visited.CheckedAdd(uint32(id)) {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for next := range adj[id] {
			if visited.CheckedAdd(uint32(next)) {
				queue = append(queue, next)
			}
		}
	}

	return &Set{bm: visited}, nil
}
