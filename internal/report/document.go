package report

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"qigraph/internal/observ"
	"qigraph/internal/rank"
	"qigraph/internal/z3log"
)

// Document is the machine-readable report shared by the JSON and YAML outputs.
type Document struct {
	Source      string         `json:"source" yaml:"source"`
	Solver      string         `json:"solver,omitempty" yaml:"solver,omitempty"`
	Cached      bool           `json:"cached,omitempty" yaml:"cached,omitempty"`
	Total       uint64         `json:"total_instantiations" yaml:"total_instantiations"`
	Quantifiers []rank.Line    `json:"quantifiers" yaml:"quantifiers"`
	Graph       GraphDoc       `json:"graph" yaml:"graph"`
	Depth       DepthDoc       `json:"depth" yaml:"depth"`
	Conflicts   []ConflictDoc  `json:"blame_conflicts,omitempty" yaml:"blame_conflicts,omitempty"`
	ParseStats  *z3log.Stats   `json:"parse_stats,omitempty" yaml:"parse_stats,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Timings     *observ.Report `json:"timings,omitempty" yaml:"timings,omitempty"`
}

type NodeDoc struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
	Out  int    `json:"out" yaml:"out"`
	In   int    `json:"in" yaml:"in"`
}

type EdgeDoc struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

type GraphDoc struct {
	Nodes             []NodeDoc `json:"nodes" yaml:"nodes"`
	Edges             []EdgeDoc `json:"edges" yaml:"edges"`
	UnblamedTriggers  int       `json:"unblamed_triggers" yaml:"unblamed_triggers"`
	SkippedEqualities int       `json:"skipped_equalities" yaml:"skipped_equalities"`
}

type DepthDoc struct {
	Longest int      `json:"longest_chain" yaml:"longest_chain"`
	Waves   int      `json:"waves" yaml:"waves"`
	Roots   int      `json:"roots" yaml:"roots"`
	Cycles  []string `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

type ConflictDoc struct {
	Term     string `json:"term" yaml:"term"`
	Previous string `json:"previous" yaml:"previous"`
	Winner   string `json:"winner" yaml:"winner"`
}

// NewDocument flattens in into a Document with every collection in key order.
func NewDocument(in *Input, opts Options) *Document {
	p := in.Profile
	g := p.Graph
	doc := &Document{
		Source:      in.Source,
		Solver:      in.Solver,
		Cached:      in.Cached,
		Total:       p.Total,
		Quantifiers: topCosts(p.Costs, opts.Top),
		ParseStats:  in.ParseStats,
		Timings:     in.Timings,
	}
	if doc.Quantifiers == nil {
		doc.Quantifiers = []rank.Line{}
	}

	indeg := g.InDegrees()
	doc.Graph.Nodes = make([]NodeDoc, 0, len(g.Nodes))
	for _, k := range g.SortedNodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, NodeDoc{
			Key:  k.String(),
			Name: g.Names[k],
			Out:  len(g.Edges[k]),
			In:   indeg[k],
		})
	}
	doc.Graph.Edges = make([]EdgeDoc, 0, g.EdgeCount())
	for _, e := range g.SortedEdges() {
		doc.Graph.Edges = append(doc.Graph.Edges, EdgeDoc{From: e.From.String(), To: e.To.String()})
	}
	doc.Graph.UnblamedTriggers = p.GraphStats.UnblamedTriggers
	doc.Graph.SkippedEqualities = p.GraphStats.SkippedEqualities

	if d := p.Depth; d != nil {
		doc.Depth = DepthDoc{Longest: d.Longest, Waves: len(d.Batches), Roots: len(d.Roots)}
		for _, k := range d.Cycles {
			doc.Depth.Cycles = append(doc.Depth.Cycles, k.String())
		}
	}
	for _, c := range p.Conflicts {
		doc.Conflicts = append(doc.Conflicts, ConflictDoc{
			Term:     c.Term.String(),
			Previous: c.Previous.String(),
			Winner:   c.Winner.String(),
		})
	}
	if in.Diagnostics != nil {
		for _, d := range in.Diagnostics.Items() {
			doc.Diagnostics = append(doc.Diagnostics, d.String())
		}
	}
	return doc
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, in *Input, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(in, opts))
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, in *Input, opts Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(in, opts)); err != nil {
		return err
	}
	return enc.Close()
}
