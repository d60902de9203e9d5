package instgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"qigraph/internal/qi"
)

// Depth is the layering of the causal graph produced by Kahn's algorithm.
type Depth struct {
	Batches [][]qi.Key // waves: every node's producers are in earlier waves
	Roots   []qi.Key   // nodes nothing triggered
	Longest int        // nodes on the longest causal chain
	Cyclic  bool
	Cycles  []qi.Key // nodes left with producers on a cycle
}

type nodeID uint32

// Depth layers the graph into causal waves. Nodes that sit on or behind a
// cycle are reported in Cycles and are not part of any batch.
func (g *Graph) Depth() *Depth {
	keys := g.SortedNodes()
	index := make(map[qi.Key]nodeID, len(keys))
	for i, k := range keys {
		id, err := safecast.Conv[nodeID](i)
		if err != nil {
			panic(fmt.Errorf("node id overflow: %w", err))
		}
		index[k] = id
	}

	edges := make([][]nodeID, len(keys))
	indeg := make([]int, len(keys))
	for from, succ := range g.Edges {
		f := index[from]
		for to := range succ {
			t := index[to]
			edges[f] = append(edges[f], t)
			indeg[t]++
		}
	}

	d := &Depth{}
	current := make([]nodeID, 0, len(keys))
	for i, k := range keys {
		if indeg[i] == 0 {
			current = append(current, index[k])
		}
	}
	for _, id := range current {
		d.Roots = append(d.Roots, keys[id])
	}

	visited := 0
	for len(current) > 0 {
		batch := make([]qi.Key, 0, len(current))
		next := make([]nodeID, 0)
		for _, id := range current {
			batch = append(batch, keys[id])
			visited++
			for _, to := range edges[id] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		d.Batches = append(d.Batches, batch)
		slices.Sort(next)
		current = next
	}
	d.Longest = len(d.Batches)

	if visited != len(keys) {
		d.Cyclic = true
		for i, k := range keys {
			if indeg[i] > 0 {
				d.Cycles = append(d.Cycles, k)
			}
		}
	}
	return d
}
