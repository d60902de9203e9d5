package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"qigraph/internal/report"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func analyzeCmdWithArgs(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd, _, err := newRootCmd().Find([]string{"analyze"})
	if err != nil {
		t.Fatalf("find analyze: %v", err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, configFileName)
	writeFile(t, cfgPath, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := findConfigFile(nested)
	if err != nil || !ok {
		t.Fatalf("findConfigFile = %q, %v, %v", got, ok, err)
	}
	want, _ := filepath.Abs(cfgPath)
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, `
[parser]
ignore_invalid_lines = false
max_diagnostics = 7

[report]
format = "json"
top = 3

[cache]
enabled = true
dir = "/tmp/qi"
`)
	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	if cfg.Parser.IgnoreInvalidLines || cfg.Parser.MaxDiagnostics != 7 {
		t.Fatalf("parser = %+v", cfg.Parser)
	}
	// keys absent from the file keep their defaults
	if !cfg.Parser.SkipVersionCheck {
		t.Fatalf("skip_version_check lost its default")
	}
	if cfg.Report.Format != "json" || cfg.Report.Top != 3 || !cfg.Cache.Enabled || cfg.Cache.Dir != "/tmp/qi" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, "[report]\nfromat = \"json\"\n")
	_, err := loadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "report.fromat") {
		t.Fatalf("err = %v", err)
	}

	writeFile(t, path, "[report]\ntop = -1\n")
	if _, err := loadConfigFile(path); err == nil {
		t.Fatalf("negative top accepted")
	}
}

func TestResolveSettingsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, "[report]\nformat = \"yaml\"\ntop = 5\n")

	st, err := resolveSettings(analyzeCmdWithArgs(t, "--config", path))
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if st.ConfigPath != path || st.Format != report.FormatYAML || st.Top != 5 {
		t.Fatalf("file settings = %+v", st)
	}
	if !st.Parser.IgnoreInvalidLines {
		t.Fatalf("lenient parsing is the default")
	}

	st, err = resolveSettings(analyzeCmdWithArgs(t, "--config", path, "--format", "dot", "--top", "1", "--strict", "--strict-blame"))
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if st.Format != report.FormatDOT || st.Top != 1 || !st.StrictBlame {
		t.Fatalf("flag settings = %+v", st)
	}
	if st.Parser.IgnoreInvalidLines || st.Parser.SkipVersionCheck {
		t.Fatalf("--strict did not tighten the parser: %+v", st.Parser)
	}
}

func TestResolveSettingsRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, "")
	if _, err := resolveSettings(analyzeCmdWithArgs(t, "--config", path, "--format", "svg")); err == nil {
		t.Fatalf("unknown format accepted")
	}
	if _, err := resolveSettings(analyzeCmdWithArgs(t, "--config", path, "--top", "-2")); err == nil {
		t.Fatalf("negative --top accepted")
	}
	for _, n := range []string{"0", "-1"} {
		if _, err := resolveSettings(analyzeCmdWithArgs(t, "--config", path, "--max-diagnostics", n)); err == nil {
			t.Fatalf("--max-diagnostics %s accepted", n)
		}
	}

	writeFile(t, path, "[parser]\nmax_diagnostics = 0\n")
	if _, err := resolveSettings(analyzeCmdWithArgs(t, "--config", path)); err == nil {
		t.Fatalf("max_diagnostics = 0 in the config file accepted")
	}
}
