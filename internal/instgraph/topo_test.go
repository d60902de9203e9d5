package instgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"qigraph/internal/qi"
)

func key(id uint64) qi.Key { return qi.Key{ID: id} }

func graphOf(edges ...[2]uint64) *Graph {
	g := &Graph{
		Nodes: make(map[qi.Key]struct{}),
		Edges: make(map[qi.Key]map[qi.Key]struct{}),
		Names: make(map[qi.Key]string),
	}
	for _, e := range edges {
		g.addEdge(key(e[0]), key(e[1]))
	}
	return g
}

func TestDepthDiamond(t *testing.T) {
	g := graphOf([2]uint64{1, 2}, [2]uint64{1, 3}, [2]uint64{2, 4}, [2]uint64{3, 4}, [2]uint64{5, 4})
	d := g.Depth()

	want := &Depth{
		Batches: [][]qi.Key{{key(1), key(5)}, {key(2), key(3)}, {key(4)}},
		Roots:   []qi.Key{key(1), key(5)},
		Longest: 3,
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("depth (-want +got):\n%s", diff)
	}
}

func TestDepthCycle(t *testing.T) {
	g := graphOf([2]uint64{1, 2}, [2]uint64{2, 3}, [2]uint64{3, 2}, [2]uint64{3, 4})
	d := g.Depth()
	if !d.Cyclic {
		t.Fatalf("expected cycle")
	}
	if diff := cmp.Diff([]qi.Key{key(2), key(3), key(4)}, d.Cycles); diff != "" {
		t.Fatalf("cycles (-want +got):\n%s", diff)
	}
	if d.Longest != 1 {
		t.Fatalf("longest = %d", d.Longest)
	}
}

func TestDepthEmpty(t *testing.T) {
	d := graphOf().Depth()
	if d.Longest != 0 || d.Cyclic || len(d.Batches) != 0 {
		t.Fatalf("depth = %+v", d)
	}
}
