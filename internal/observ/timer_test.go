package observ

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTimerTrack(t *testing.T) {
	tm := NewTimer()
	if err := tm.Track("read", func() (string, error) { return "42 lines", nil }); err != nil {
		t.Fatalf("Track: %v", err)
	}
	boom := errors.New("boom")
	if err := tm.Track("graph", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("Track err = %v", err)
	}

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d", len(report.Phases))
	}
	if report.Phases[0].Note != "42 lines" || report.Phases[1].Note != "failed" {
		t.Fatalf("notes = %q %q", report.Phases[0].Note, report.Phases[1].Note)
	}
	if _, ok := tm.Duration("graph"); !ok {
		t.Fatalf("Duration(graph) missing")
	}
	if !strings.Contains(tm.Summary(), "read") {
		t.Fatalf("summary misses phase:\n%s", tm.Summary())
	}
}

func TestTimerConcurrentPhases(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for _, name := range []string{"blame", "rank"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin(name), "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 2 {
		t.Fatalf("phases = %d, want 2", got)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer reported phases")
	}
}
