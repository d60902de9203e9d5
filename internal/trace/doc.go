// Package trace records what qigraph is doing while it reads a log and
// builds the causality graph.
//
// Large solver logs take a while to read; traces help locate where time goes
// and whether the tool is stuck.
//
// # Usage
//
//	qigraph analyze -f z3.log --trace=- --trace-level=phase
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event immediately (file or stderr)
//   - RingTracer: keeps the last N events for a dump after a failure
//   - MultiTracer: fans out to several tracers
//   - ZapTracer: forwards events to a zap logger
//
// # Levels and scopes
//
// ScopeDriver covers CLI commands, ScopePass covers the analysis stages (read,
// blame, graph, rank, report) and ScopeItem covers per-chunk progress inside a
// stage. LevelPhase emits driver and pass events, LevelDetail adds items,
// LevelDebug emits everything.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "blame", 0)
//	defer span.End("")
package trace
