package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "detail", "debug", "PHASE"} {
		if _, err := ParseLevel(s); err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelShouldEmit(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeItem) {
		t.Fatalf("phase level must not emit item scope")
	}
	if !LevelPhase.ShouldEmit(ScopePass) || !LevelDetail.ShouldEmit(ScopeItem) {
		t.Fatalf("unexpected ShouldEmit result")
	}
	if LevelOff.ShouldEmit(ScopeDriver) || LevelError.ShouldEmit(ScopeDriver) {
		t.Fatalf("off/error levels must not emit")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopePass, "blame", 0)
	span.Count("terms", 12)
	span.End("ok")
	Point(tr, ScopeItem, "progress", "skipped at phase level", span.ID())

	out := buf.String()
	if !strings.Contains(out, "→ blame") || !strings.Contains(out, "← blame (ok) {terms=12}") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}
	if strings.Contains(out, "progress") {
		t.Fatalf("item scope leaked at phase level:\n%s", out)
	}
}

func TestStreamTracerChromeIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	span := Begin(tr, ScopeDriver, "analyze", 0)
	Point(tr, ScopeItem, "progress", "1000 lines", span.ID())
	span.End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("chrome output is not JSON: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("events = %d, want 3", len(doc.TraceEvents))
	}
	if doc.TraceEvents[0]["ph"] != "B" || doc.TraceEvents[2]["ph"] != "E" {
		t.Fatalf("unexpected phases: %v", doc.TraceEvents)
	}
}

func TestRingTracerWraps(t *testing.T) {
	tr := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		tr.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: name})
	}
	snap := tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d", len(snap))
	}
	got := snap[0].Name + snap[1].Name + snap[2].Name
	if got != "cde" {
		t.Fatalf("snapshot order = %q, want cde", got)
	}
}

func TestMultiTracerFindsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok {
		t.Fatalf("ModeBoth tracer is %T", tr)
	}
	Begin(tr, ScopePass, "graph", 0).End("")
	if ring := multi.Ring(); ring == nil || len(ring.Snapshot()) != 2 {
		t.Fatalf("ring tracer missing events")
	}
	if buf.Len() == 0 {
		t.Fatalf("stream output is empty")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff, Mode: ModeStream})
	if err != nil || tr.Enabled() {
		t.Fatalf("New(off) = %v, %v", tr, err)
	}
	span := Begin(tr, ScopeDriver, "x", 0)
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatalf("disabled span must be inert")
	}
}

func TestZapTracer(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tr, err := New(Config{Level: LevelPhase, Mode: ModeLog, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopePass, "rank", 0).WithExtra("quantifiers", "4").End("")

	entries := logs.FilterMessage("rank").All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	end := entries[1]
	if end.ContextMap()["quantifiers"] != "4" || end.ContextMap()["kind"] != "end" {
		t.Fatalf("unexpected fields: %v", end.ContextMap())
	}
	if _, err := New(Config{Level: LevelPhase, Mode: ModeLog}); err == nil {
		t.Fatalf("log mode without logger must fail")
	}
}

func TestContextPropagation(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop {
		t.Fatalf("empty context must yield Nop")
	}
	tr := NewRingTracer(8, LevelDebug)
	ctx = WithTracer(ctx, tr)
	if FromContext(ctx) != Tracer(tr) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(tr, ScopeDriver, "root", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Fatalf("span not propagated")
	}
}

func TestHeartbeatStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := NewRingTracer(64, LevelPhase)
	hb := StartHeartbeat(tr, time.Millisecond)
	if hb == nil {
		t.Fatalf("expected heartbeat")
	}
	time.Sleep(10 * time.Millisecond)
	hb.Stop()
	hb.Stop()

	if len(tr.Snapshot()) == 0 {
		t.Fatalf("expected heartbeat events")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("heartbeat on Nop tracer must be nil")
	}
}
