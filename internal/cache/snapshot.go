package cache

import (
	"fmt"
	"time"

	"fortio.org/safecast"

	"qigraph/internal/blame"
	"qigraph/internal/diag"
	"qigraph/internal/instgraph"
	"qigraph/internal/profiler"
	"qigraph/internal/qi"
	"qigraph/internal/rank"
	"qigraph/internal/report"
	"qigraph/internal/z3log"
)

// Snapshot is the stored form of a finished analysis.
type Snapshot struct {
	Schema uint16

	Source    string
	Solver    string
	CreatedAt time.Time

	Nodes []Node
	Edges []Edge // indices into Nodes

	UnblamedTriggers  int
	SkippedEqualities int
	Conflicts         []blame.Conflict

	Costs []rank.Line
	Total uint64

	ParseStats  z3log.Stats
	Diagnostics []diag.Diagnostic
}

type Node struct {
	ID      uint64
	Version uint32
	Name    string
}

type Edge struct {
	From uint32
	To   uint32
}

// FromInput captures a report input for storage.
func FromInput(in *report.Input) (*Snapshot, error) {
	p := in.Profile
	g := p.Graph
	snap := &Snapshot{
		Source:            in.Source,
		Solver:            in.Solver,
		CreatedAt:         time.Now().UTC(),
		UnblamedTriggers:  p.GraphStats.UnblamedTriggers,
		SkippedEqualities: p.GraphStats.SkippedEqualities,
		Conflicts:         p.Conflicts,
		Costs:             p.Costs,
		Total:             p.Total,
	}
	if in.ParseStats != nil {
		snap.ParseStats = *in.ParseStats
	}
	if in.Diagnostics != nil {
		snap.Diagnostics = in.Diagnostics.Items()
	}

	keys := g.SortedNodes()
	index := make(map[qi.Key]uint32, len(keys))
	snap.Nodes = make([]Node, len(keys))
	for i, k := range keys {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("snapshot node index: %w", err)
		}
		index[k] = id
		snap.Nodes[i] = Node{ID: k.ID, Version: k.Version, Name: g.Names[k]}
	}
	for _, e := range g.SortedEdges() {
		snap.Edges = append(snap.Edges, Edge{From: index[e.From], To: index[e.To]})
	}
	return snap, nil
}

// Input rebuilds a report input. Timings are not stored.
func (s *Snapshot) Input() *report.Input {
	names := make(map[qi.Key]string, len(s.Nodes))
	keys := make([]qi.Key, len(s.Nodes))
	for i, n := range s.Nodes {
		keys[i] = qi.Key{ID: n.ID, Version: n.Version}
		names[keys[i]] = n.Name
	}
	edges := make([]instgraph.Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		if int(e.From) >= len(keys) || int(e.To) >= len(keys) {
			continue
		}
		edges = append(edges, instgraph.Edge{From: keys[e.From], To: keys[e.To]})
	}
	g := instgraph.Assemble(names, edges)

	bag := diag.NewBag(max(len(s.Diagnostics), 1))
	for _, d := range s.Diagnostics {
		bag.Add(d)
	}
	stats := s.ParseStats
	return &report.Input{
		Source: s.Source,
		Solver: s.Solver,
		Profile: &profiler.Profile{
			Graph: g,
			GraphStats: instgraph.Stats{
				Nodes:             len(g.Nodes),
				Edges:             g.EdgeCount(),
				UnblamedTriggers:  s.UnblamedTriggers,
				SkippedEqualities: s.SkippedEqualities,
			},
			Depth:     g.Depth(),
			Conflicts: s.Conflicts,
			Costs:     s.Costs,
			Total:     s.Total,
		},
		Diagnostics: bag,
		ParseStats:  &stats,
		Cached:      true,
	}
}
