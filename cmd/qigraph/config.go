package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"qigraph/internal/report"
	"qigraph/internal/z3log"
)

const configFileName = "qigraph.toml"

type fileConfig struct {
	Parser z3log.Config `toml:"parser"`
	Report reportConfig `toml:"report"`
	Cache  cacheConfig  `toml:"cache"`
}

type reportConfig struct {
	Format string `toml:"format"`
	Top    int    `toml:"top"`
}

type cacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// settings is the effective configuration of one analyze run.
type settings struct {
	ConfigPath  string // empty when no file was used
	Parser      z3log.Config
	Format      report.Format
	Top         int
	Cache       bool
	CacheDir    string
	StrictBlame bool
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Parser: z3log.DefaultConfig(),
		Report: reportConfig{Format: "text"},
	}
}

func findConfigFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfigFile decodes path over the defaults. Unknown keys are an error so
// that typos do not silently fall back to defaults.
func loadConfigFile(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fileConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("report", "top") && cfg.Report.Top < 0 {
		return fileConfig{}, fmt.Errorf("%s: [report].top must not be negative", path)
	}
	return cfg, nil
}

// resolveSettings layers defaults, the config file and explicitly set flags.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	cfg := defaultFileConfig()
	var s settings

	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return s, fmt.Errorf("failed to get config flag: %w", err)
	}
	path := explicit
	if path == "" {
		found, ok, err := findConfigFile(".")
		if err != nil {
			return s, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		cfg, err = loadConfigFile(path)
		if err != nil {
			return s, err
		}
		s.ConfigPath = path
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Report.Format, _ = flags.GetString("format")
	}
	if flags.Changed("top") {
		cfg.Report.Top, _ = flags.GetInt("top")
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir, _ = flags.GetString("cache-dir")
	}
	if flags.Changed("max-diagnostics") {
		cfg.Parser.MaxDiagnostics, _ = flags.GetInt("max-diagnostics")
	}
	if flags.Changed("strict") {
		strict, _ := flags.GetBool("strict")
		cfg.Parser.IgnoreInvalidLines = !strict
		cfg.Parser.SkipVersionCheck = !strict
	}
	s.StrictBlame, _ = flags.GetBool("strict-blame")

	s.Format, err = report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return s, err
	}
	if cfg.Report.Top < 0 {
		return s, fmt.Errorf("--top must not be negative")
	}
	if cfg.Parser.MaxDiagnostics <= 0 {
		return s, fmt.Errorf("--max-diagnostics must be positive, got %d", cfg.Parser.MaxDiagnostics)
	}
	s.Parser = cfg.Parser
	s.Top = cfg.Report.Top
	s.Cache = cfg.Cache.Enabled
	s.CacheDir = cfg.Cache.Dir
	return s, nil
}
