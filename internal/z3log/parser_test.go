package z3log

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"qigraph/internal/diag"
	"qigraph/internal/qi"
)

const sampleLog = `[tool-version] Z3 4.8.5
[mk-quant] #10 |ax-one| 1 #11 #12
[mk-quant] #20 ax_two 1 #21 #22
[mk-app] #1 f #2
[mk-app] #2 g
[attach-meaning] #2 arith 12
[push] 1
[new-match] 0x1 #10 #11 #2 ; #1
[instance] 0x1 #30 ; 1
[attach-enode] #5 1
[attach-enode] #6 1
[end-of-instance]
[new-match] 0x2 #20 #21 #5 ; #5 (#1 #6)
[instance] 0x2 ; 2
[attach-enode] #7 2
[end-of-instance]
[inst-discovered] theory-solving 0x3 #20 #7 ; #6
[pop] 1
[eof]
[mk-app] #99 ignored-after-eof
`

func parseString(t *testing.T, log string, cfg Config) *Result {
	t.Helper()
	res, err := Parse(context.Background(), strings.NewReader(log), int64(len(log)), cfg, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return res
}

func tid(n uint64) qi.TermID { return qi.TermID{Num: n} }

func TestParseSample(t *testing.T) {
	res := parseString(t, sampleLog, DefaultConfig())
	m := res.Model

	if res.Diagnostics.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.Items())
	}
	if m.SolverVersion() != "Z3 4.8.5" {
		t.Fatalf("version = %q", m.SolverVersion())
	}
	wantKeys := []qi.Key{{ID: 1}, {ID: 2}, {ID: 3}}
	if diff := cmp.Diff(wantKeys, m.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}

	first, _ := m.Instantiation(qi.Key{ID: 1})
	if diff := cmp.Diff([]qi.TermID{tid(5), tid(6)}, first.ProducedTerms()); diff != "" {
		t.Fatalf("produced terms (-want +got):\n%s", diff)
	}
	if first.Instances[0].Proof != tid(30) || first.Instances[0].Generation != 1 {
		t.Fatalf("instance = %+v", first.Instances[0])
	}

	second, _ := m.Instantiation(qi.Key{ID: 2})
	wantUsed := []qi.MatchedTerm{qi.Trigger(tid(5)), qi.Equality(tid(1), tid(6))}
	if diff := cmp.Diff(wantUsed, second.Origin.Used); diff != "" {
		t.Fatalf("used (-want +got):\n%s", diff)
	}

	third, _ := m.Instantiation(qi.Key{ID: 3})
	if third.IsNewMatch() || third.Origin.Method != "theory-solving" {
		t.Fatalf("discovered origin = %+v", third.Origin)
	}
	if diff := cmp.Diff([]qi.TermID{tid(6)}, third.Origin.Blamed); diff != "" {
		t.Fatalf("blamed (-want +got):\n%s", diff)
	}

	if name, err := m.TermName(tid(10)); err != nil || name != "ax-one" {
		t.Fatalf("TermName(#10) = %q, %v", name, err)
	}
	if _, ok := m.Term(tid(99)); ok {
		t.Fatalf("term after [eof] was read")
	}
	term, _ := m.Term(tid(2))
	if term.Meaning != "arith 12" {
		t.Fatalf("meaning = %q", term.Meaning)
	}

	want := Stats{Lines: 19, Terms: 4, Matches: 2, Discovered: 1, Instances: 2, Enodes: 3, Ignored: 2}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Fatalf("stats (-want +got):\n%s", diff)
	}
}

func TestParseRepeatedFingerprintBindsLatest(t *testing.T) {
	log := `[mk-quant] #10 q 1 #11 #12
[new-match] 0xa #10 #11 ; #1
[instance] 0xa
[attach-enode] #2 0
[end-of-instance]
[new-match] 0xa #10 #11 ; #2
[instance] 0xa
[attach-enode] #3 0
[end-of-instance]
`
	m := parseString(t, log, DefaultConfig()).Model
	v0, _ := m.Instantiation(qi.Key{ID: 0xa, Version: 0})
	v1, _ := m.Instantiation(qi.Key{ID: 0xa, Version: 1})
	if diff := cmp.Diff([]qi.TermID{tid(2)}, v0.ProducedTerms()); diff != "" {
		t.Fatalf("v0 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]qi.TermID{tid(3)}, v1.ProducedTerms()); diff != "" {
		t.Fatalf("v1 (-want +got):\n%s", diff)
	}
}

func TestParseLenientCollectsWarnings(t *testing.T) {
	log := `garbage
[mk-app] nothash f
[frobnicate] 1
[instance] 0xdead
[new-match] 0x1 #10 #11 ; #1
[attach-enode] #4 0
[instance] 0x1
`
	res := parseString(t, log, DefaultConfig())
	bag := res.Diagnostics
	for _, code := range []diag.Code{diag.LogMalformedLine, diag.LogBadTermID, diag.LogUnknownTag, diag.LogUnknownInstance, diag.LogUnclosedInstance} {
		if bag.Count(code) != 1 {
			t.Errorf("%s count = %d, want 1", code.ID(), bag.Count(code))
		}
	}
	if bag.HasErrors() {
		t.Fatalf("lenient parse produced errors")
	}
	if res.Stats.Invalid != 5 {
		t.Fatalf("invalid = %d", res.Stats.Invalid)
	}
	// enode outside any instance is asserted input, not an error
	if res.Stats.Ignored != 1 {
		t.Fatalf("ignored = %d", res.Stats.Ignored)
	}
}

func TestParseStrictFailsWithLine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreInvalidLines = false
	_, err := Parse(context.Background(), strings.NewReader("[mk-app] #1 f\n[new-match] 0x1\n"), 0, cfg, nil)
	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("err = %v, want *LineError", err)
	}
	if lineErr.Line != 2 || lineErr.Code != diag.LogMissingField {
		t.Fatalf("line error = %+v", lineErr)
	}
}

func TestParseVersionCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipVersionCheck = false
	for _, tc := range []struct {
		line string
		ok   bool
	}{
		{"[tool-version] Z3 4.8.5", true},
		{"[tool-version] Z3 4.12.2", true},
		{"[tool-version] Z3 4.8.4", false},
		{"[tool-version] Z3 3.9", false},
		{"[tool-version] cvc5 1.0.0", false},
	} {
		_, err := Parse(context.Background(), strings.NewReader(tc.line+"\n"), 0, cfg, nil)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.line, err)
		}
		if !tc.ok && !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("%s: err = %v, want ErrUnsupportedVersion", tc.line, err)
		}
	}
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultConfig()
	cfg.ProgressEvery = 1
	_, err := Parse(ctx, strings.NewReader(sampleLog), 0, cfg, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestParseProgressEvents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProgressEvery = 4
	var events []Event
	sink := SinkFunc(func(ev Event) { events = append(events, ev) })
	if _, err := Parse(context.Background(), strings.NewReader(sampleLog), int64(len(sampleLog)), cfg, sink); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) < 2 {
		t.Fatalf("events = %d", len(events))
	}
	last := events[len(events)-1]
	if last.Stage != StageDone || last.Fraction() != 1 {
		t.Fatalf("last event = %+v", last)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Stage != StageRead || ev.Fraction() <= 0 || ev.Fraction() > 1 {
			t.Fatalf("progress event = %+v", ev)
		}
	}
}

func TestParseFileErrors(t *testing.T) {
	_, err := ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.log"), DefaultConfig(), nil)
	if !errors.Is(err, ErrOpenInput) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
	_, err = ParseFile(context.Background(), t.TempDir(), DefaultConfig(), nil)
	if !errors.Is(err, ErrOpenInput) {
		t.Fatalf("dir err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "z3.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := ParseFile(context.Background(), path, DefaultConfig(), nil)
	if err != nil || res.Model.Len() != 3 {
		t.Fatalf("ParseFile = %v, %v", res, err)
	}
}

func TestSplitFields(t *testing.T) {
	got := splitFields("0x2 |a b| #21 ; #5 (#1 #6)")
	want := []string{"0x2", "|a b|", "#21", ";", "#5", "(#1 #6)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("splitFields (-want +got):\n%s", diff)
	}
}
