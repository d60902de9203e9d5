package version

import (
	"os"
	"testing"

	"github.com/fatih/color"
)

func TestCurrentPrefersLdflags(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	Version = " 1.2.3 "
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Current()
	if info.Version != "1.2.3" || info.GitCommit != "abc123def456" || info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Fatalf("Current() = %+v", info)
	}

	Version = ""
	if got := Current().Version; got != "dev" {
		t.Fatalf("empty version = %q, want dev", got)
	}
}

func TestPretty(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	for _, tc := range []struct{ in, want string }{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"1.2", "1.2"},
		{"dev", "dev"},
	} {
		if got := Pretty(tc.in); got != tc.want {
			t.Errorf("Pretty(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPrettyColoured(t *testing.T) {
	if os.Getenv("NO_COLOR") != "" {
		t.Skip("NO_COLOR is set")
	}
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	if got := Pretty("1.2.3"); got == "1.2.3" {
		t.Fatalf("expected colour codes, got %q", got)
	}
}

func BenchmarkCurrent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Current()
	}
}
