// Package profiler runs the analysis pipeline over a trace model: blame
// attribution and cost ranking in parallel, then the causal graph.
package profiler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"qigraph/internal/blame"
	"qigraph/internal/instgraph"
	"qigraph/internal/observ"
	"qigraph/internal/qi"
	"qigraph/internal/rank"
	"qigraph/internal/trace"
)

// ErrBlameConflict is returned in strict mode when a term has several producers.
var ErrBlameConflict = errors.New("term claimed by several instantiations")

// Source is what the pipeline needs from a trace model.
type Source interface {
	instgraph.Source
	QuantCosts() []qi.QuantCost
}

// Options tune a run.
type Options struct {
	// StrictBlame turns blame conflicts into an error instead of warnings.
	StrictBlame bool
	// Timer, if set, receives one phase per stage.
	Timer *observ.Timer
}

// Profile is the outcome of one analysis.
type Profile struct {
	Graph      *instgraph.Graph
	GraphStats instgraph.Stats
	Depth      *instgraph.Depth
	Conflicts  []blame.Conflict
	Costs      []rank.Line
	Total      uint64
}

// Run analyses src. The blame and rank stages only read src, so they run
// concurrently; the graph waits for the blame map.
func Run(ctx context.Context, src Source, opts Options) (*Profile, error) {
	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "analyze", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, root)

	p, err := run(ctx, src, opts)
	if err != nil {
		root.Finish(err, "")
		return nil, err
	}
	root.Count("nodes", p.GraphStats.Nodes).
		Count("edges", p.GraphStats.Edges).
		End("")
	return p, nil
}

// CheckConflicts returns ErrBlameConflict naming the first conflict, or nil.
// Profiles restored from the cache go through it as well.
func CheckConflicts(conflicts []blame.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	c := conflicts[0]
	return fmt.Errorf("%w: %s by %s and %s (%d conflicts)",
		ErrBlameConflict, c.Term, c.Previous, c.Winner, len(conflicts))
}

func run(ctx context.Context, src Source, opts Options) (*Profile, error) {
	p := &Profile{}
	var bm blame.Map

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stage(gctx, opts.Timer, "blame", func() (string, error) {
			bm, p.Conflicts = blame.Attribute(src)
			if opts.StrictBlame {
				if err := CheckConflicts(p.Conflicts); err != nil {
					return "", err
				}
			}
			return fmt.Sprintf("%d terms, %d conflicts", len(bm), len(p.Conflicts)), nil
		})
	})
	g.Go(func() error {
		return stage(gctx, opts.Timer, "rank", func() (string, error) {
			lines, total, err := rank.Report(src.QuantCosts())
			if err != nil {
				return "", err
			}
			p.Costs, p.Total = lines, total
			return fmt.Sprintf("%d quantifiers", len(lines)), nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	err := stage(ctx, opts.Timer, "graph", func() (string, error) {
		graph, st, err := instgraph.Build(src, bm)
		if err != nil {
			return "", err
		}
		p.Graph, p.GraphStats = graph, st
		p.Depth = graph.Depth()
		return fmt.Sprintf("%d nodes, %d edges", st.Nodes, st.Edges), nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// stage runs fn as a traced, timed pipeline step unless ctx is already done.
func stage(ctx context.Context, timer *observ.Timer, name string, fn func() (string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, name, trace.CurrentSpan(ctx))
	var note string
	err := timer.Track(name, func() (string, error) {
		var err error
		note, err = fn()
		return note, err
	})
	span.Finish(err, note)
	return err
}
