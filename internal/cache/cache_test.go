package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"qigraph/internal/diag"
	"qigraph/internal/profiler"
	"qigraph/internal/report"
	"qigraph/internal/z3log"
)

const log = `[mk-quant] #10 qa 1 #11 #12
[mk-quant] #20 qb 1 #21 #22
[new-match] 0x1 #10 #11 ; #1
[instance] 0x1
[attach-enode] #5 0
[end-of-instance]
[new-match] 0x2 #20 #21 ; #5 (#5 #6)
[instance] 0x2
[end-of-instance]
[bogus]
`

func analyzed(t *testing.T) *report.Input {
	t.Helper()
	res, err := z3log.Parse(context.Background(), strings.NewReader(log), 0, z3log.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p, err := profiler.Run(context.Background(), res.Model, profiler.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return &report.Input{
		Source:      "z3.log",
		Solver:      res.Model.SolverVersion(),
		Profile:     p,
		Diagnostics: res.Diagnostics,
		ParseStats:  &res.Stats,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := Key(strings.NewReader(log), z3log.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	in := analyzed(t)
	snap, err := FromInput(in)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(key, snap); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	restored := got.Input()
	if !restored.Cached {
		t.Fatalf("restored input not marked cached")
	}
	if diff := cmp.Diff(in.Profile.Graph, restored.Profile.Graph); diff != "" {
		t.Fatalf("graph (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(in.Profile.Costs, restored.Profile.Costs); diff != "" {
		t.Fatalf("costs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(in.Profile.GraphStats, restored.Profile.GraphStats); diff != "" {
		t.Fatalf("graph stats (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(*in.ParseStats, *restored.ParseStats); diff != "" {
		t.Fatalf("parse stats (-want +got):\n%s", diff)
	}
	if restored.Diagnostics.Count(diag.LogUnknownTag) != 1 {
		t.Fatalf("diagnostics = %v", restored.Diagnostics.Items())
	}

	entries, err := os.ReadDir(filepath.Join(c.Dir(), "profiles"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("profiles dir = %v, %v (temp files left behind?)", entries, err)
	}
}

func TestGetMissing(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snap, ok, err := c.Get(Digest{1})
	if snap != nil || ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v, %v", snap, ok, err)
	}
	var nilCache *Cache
	if _, ok, err := nilCache.Get(Digest{1}); ok || err != nil {
		t.Fatalf("nil cache Get = %v, %v", ok, err)
	}
}

func TestGetSchemaMismatch(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Digest{2}
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := msgpack.Marshal(&Snapshot{Schema: schemaVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(key); !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("after DropAll: %v, %v", ok, err)
	}
}

func TestKeyDependsOnConfig(t *testing.T) {
	lenient := z3log.DefaultConfig()
	strict := lenient
	strict.IgnoreInvalidLines = false

	a, _ := Key(strings.NewReader(log), lenient)
	b, _ := Key(strings.NewReader(log), strict)
	c, _ := Key(strings.NewReader(log+"[eof]\n"), lenient)
	again, _ := Key(strings.NewReader(log), lenient)
	if a == b || a == c {
		t.Fatalf("keys must differ: %s %s %s", a, b, c)
	}
	if a != again {
		t.Fatalf("key not deterministic")
	}
}

func TestDefaultDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir("qigraph")
	if err != nil || dir != filepath.Join("/tmp/xdg", "qigraph") {
		t.Fatalf("DefaultDir = %q, %v", dir, err)
	}
}
