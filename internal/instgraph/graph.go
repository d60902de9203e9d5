// Package instgraph connects instantiations into a causal graph: an edge
// u -> v means u produced a term that v matched as a trigger.
package instgraph

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"qigraph/internal/blame"
	"qigraph/internal/qi"
)

// ErrMalformedModel is returned when a node's quantifier name cannot be resolved.
var ErrMalformedModel = errors.New("malformed trace model")

// Source is the part of the trace model the builder reads.
type Source interface {
	All() iter.Seq2[qi.Key, *qi.Instantiation]
	QuantifierName(k qi.Key) (string, error)
}

// Graph is the causal graph of NewMatch instantiations. It is built once and
// not mutated afterwards.
type Graph struct {
	Nodes map[qi.Key]struct{}
	Edges map[qi.Key]map[qi.Key]struct{} // producer -> consumers
	Names map[qi.Key]string
}

// Stats describes what the builder saw besides the graph itself.
type Stats struct {
	Nodes int
	Edges int
	// Triggers whose term has no traced producer.
	UnblamedTriggers int
	// Equality matched-terms are not used for attribution; this counts them.
	SkippedEqualities int
}

// Build derives the causal graph from src and a blame map produced over the
// same model. Discovered instantiations are not part of the graph.
func Build(src Source, b blame.Map) (*Graph, Stats, error) {
	g := &Graph{
		Nodes: make(map[qi.Key]struct{}),
		Edges: make(map[qi.Key]map[qi.Key]struct{}),
		Names: make(map[qi.Key]string),
	}
	var st Stats

	for key, inst := range src.All() {
		if !inst.IsNewMatch() {
			continue
		}
		g.Nodes[key] = struct{}{}
		for _, used := range inst.Origin.Used {
			switch used.Kind {
			case qi.MatchedTrigger:
				producer, ok := b.Lookup(used.Term)
				if !ok {
					st.UnblamedTriggers++
					continue
				}
				g.addEdge(producer, key)
			case qi.MatchedEquality:
				st.SkippedEqualities++
			}
		}
	}

	for key := range g.Nodes {
		name, err := src.QuantifierName(key)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("%w: node %s: %w", ErrMalformedModel, key, err)
		}
		g.Names[key] = name
	}

	st.Nodes = len(g.Nodes)
	st.Edges = g.EdgeCount()
	return g, st, nil
}

// addEdge adds from -> to. Both endpoints become nodes: a producer is always a
// NewMatch record, so this only matters for hand-built blame maps.
func (g *Graph) addEdge(from, to qi.Key) {
	g.Nodes[from] = struct{}{}
	g.Nodes[to] = struct{}{}
	succ, ok := g.Edges[from]
	if !ok {
		succ = make(map[qi.Key]struct{})
		g.Edges[from] = succ
	}
	succ[to] = struct{}{}
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, succ := range g.Edges {
		n += len(succ)
	}
	return n
}

// HasEdge reports whether from -> to is in the graph.
func (g *Graph) HasEdge(from, to qi.Key) bool {
	_, ok := g.Edges[from][to]
	return ok
}

// SortedNodes returns all nodes ordered by key.
func (g *Graph) SortedNodes() []qi.Key {
	return sortedKeys(g.Nodes)
}

// Successors returns the consumers of k ordered by key.
func (g *Graph) Successors(k qi.Key) []qi.Key {
	return sortedKeys(g.Edges[k])
}

// Predecessors returns the producers k was triggered by, ordered by key.
func (g *Graph) Predecessors(k qi.Key) []qi.Key {
	var out []qi.Key
	for from, succ := range g.Edges {
		if _, ok := succ[k]; ok {
			out = append(out, from)
		}
	}
	slices.SortFunc(out, compareKeys)
	return out
}

// InDegrees counts incoming edges for every node.
func (g *Graph) InDegrees() map[qi.Key]int {
	in := make(map[qi.Key]int, len(g.Nodes))
	for _, succ := range g.Edges {
		for to := range succ {
			in[to]++
		}
	}
	return in
}

func sortedKeys[V any](set map[qi.Key]V) []qi.Key {
	out := make([]qi.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.SortFunc(out, compareKeys)
	return out
}

func compareKeys(a, b qi.Key) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// Edge is one producer -> consumer pair.
type Edge struct {
	From qi.Key
	To   qi.Key
}

// SortedEdges lists all edges ordered by source, then target.
func (g *Graph) SortedEdges() []Edge {
	out := make([]Edge, 0, g.EdgeCount())
	for _, from := range sortedKeys(g.Edges) {
		for _, to := range g.Successors(from) {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Assemble rebuilds a graph from its named nodes and edge list, as stored by
// the profile cache.
func Assemble(names map[qi.Key]string, edges []Edge) *Graph {
	g := &Graph{
		Nodes: make(map[qi.Key]struct{}, len(names)),
		Edges: make(map[qi.Key]map[qi.Key]struct{}),
		Names: make(map[qi.Key]string, len(names)),
	}
	for k, name := range names {
		g.Nodes[k] = struct{}{}
		g.Names[k] = name
	}
	for _, e := range edges {
		g.addEdge(e.From, e.To)
	}
	return g
}
