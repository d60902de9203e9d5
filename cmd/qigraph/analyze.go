package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qigraph/internal/cache"
	"qigraph/internal/observ"
	"qigraph/internal/profiler"
	"qigraph/internal/report"
	"qigraph/internal/trace"
	"qigraph/internal/ui"
	"qigraph/internal/z3log"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze -f <z3.log>",
		Short: "Build the instantiation graph and rank quantifiers by cost",
		Long: `analyze reads a Z3 trace log, prints the causal graph of quantifier
instantiations (EDGES, NODE NAMES, NODES) and one line per quantifier with
its share of all instantiations. With --gui the graph opens in a terminal
explorer after the report is printed.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "Z3 trace log to analyze")
	f.BoolP("gui", "g", false, "open the interactive graph explorer")
	f.String("format", "text", "report format (text|pretty|json|yaml|dot)")
	f.StringP("output", "o", "", "write the report to a file instead of stdout")
	f.Int("top", 0, "show only the N most expensive quantifiers (0 = all)")
	f.Bool("cache", false, "reuse and store results in the profile cache")
	f.String("cache-dir", "", "profile cache directory (default $XDG_CACHE_HOME/qigraph)")
	f.Int("max-diagnostics", 100, "maximum number of log diagnostics to keep")
	f.Bool("strict", false, "abort on malformed lines and unsupported solver versions")
	f.Bool("strict-blame", false, "fail when a term is claimed by several instantiations")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("failed to get file flag: %w", err)
	}
	gui, err := cmd.Flags().GetBool("gui")
	if err != nil {
		return fmt.Errorf("failed to get gui flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	progress, err := wantProgress(cmd)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	st, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if st.ConfigPath != "" {
		logger.Debug("using config file", zap.String("path", st.ConfigPath))
	}

	timer := observ.NewTimer()
	in, err := analyzeLog(ctx, path, st, timer, progress)
	if err != nil {
		return err
	}
	if r := timer.Report(); len(r.Phases) > 0 {
		in.Timings = &r
	}

	errOut := cmd.ErrOrStderr()
	if !quiet {
		warnDiagnostics(cmd, in)
	}

	out := cmd.OutOrStdout()
	colorFile := stdoutFile(cmd)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		out, colorFile = f, f
	}
	colored, err := useColor(cmd, colorFile)
	if err != nil {
		return err
	}
	if err := report.Write(out, st.Format, in, report.Options{Top: st.Top, Color: colored}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if showTimings {
		printTimings(errOut, timer)
	}
	if gui {
		return ui.RunExplorer(in.Profile.Graph)
	}
	return nil
}

// analyzeLog returns the report input for path, from the cache when possible.
func analyzeLog(ctx context.Context, path string, st settings, timer *observ.Timer, progress bool) (*report.Input, error) {
	var (
		store *cache.Cache
		key   cache.Digest
	)
	if st.Cache {
		var err error
		store, key, err = openCache(path, st)
		if err != nil {
			// the cache only saves time; analysis goes on without it
			logger.Warn("profile cache disabled", zap.Error(err))
			store = nil
		}
	}
	if store != nil {
		snap, ok, err := store.Get(key)
		switch {
		case err != nil:
			logger.Warn("profile cache entry ignored", zap.String("key", key.String()), zap.Error(err))
		case ok:
			logger.Debug("profile cache hit", zap.String("key", key.String()))
			in := snap.Input()
			if st.StrictBlame {
				if err := profiler.CheckConflicts(in.Profile.Conflicts); err != nil {
					return nil, err
				}
			}
			in.Source = path
			return in, nil
		}
	}

	var res *z3log.Result
	err := timer.Track("read", func() (string, error) {
		var err error
		if progress {
			res, err = parseWithUI(ctx, path, st.Parser)
		} else {
			res, err = z3log.ParseFile(ctx, path, st.Parser, nil)
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d lines", res.Stats.Lines), nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("log read",
		zap.String("path", path),
		zap.Int("lines", res.Stats.Lines),
		zap.Int("terms", res.Stats.Terms),
		zap.Int("instantiations", res.Model.Len()),
		zap.Int("invalid", res.Stats.Invalid))

	p, err := profiler.Run(ctx, res.Model, profiler.Options{StrictBlame: st.StrictBlame, Timer: timer})
	if err != nil {
		return nil, err
	}
	res.Diagnostics.Sort()
	in := &report.Input{
		Source:      path,
		Solver:      res.Model.SolverVersion(),
		Profile:     p,
		Diagnostics: res.Diagnostics,
		ParseStats:  &res.Stats,
	}

	if store != nil {
		snap, err := cache.FromInput(in)
		if err == nil {
			err = store.Put(key, snap)
		}
		if err != nil {
			logger.Warn("profile cache write failed", zap.Error(err))
		}
	}
	return in, nil
}

func openCache(path string, st settings) (*cache.Cache, cache.Digest, error) {
	dir := st.CacheDir
	if dir == "" {
		var err error
		dir, err = cache.DefaultDir("qigraph")
		if err != nil {
			return nil, cache.Digest{}, err
		}
	}
	key, err := cache.KeyFile(path, st.Parser)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cache.Digest{}, fmt.Errorf("%w %q: %w", z3log.ErrOpenInput, path, err)
		}
		return nil, cache.Digest{}, err
	}
	store, err := cache.Open(filepath.Clean(dir))
	if err != nil {
		return nil, cache.Digest{}, err
	}
	return store, key, nil
}

// warnDiagnostics reports log diagnostics and blame conflicts on stderr.
func warnDiagnostics(cmd *cobra.Command, in *report.Input) {
	errOut := cmd.ErrOrStderr()
	colored, err := useColor(cmd, stderrFile(cmd))
	if err != nil {
		colored = false
	}
	if in.Diagnostics != nil && in.Diagnostics.Len() > 0 {
		if err := report.WriteDiagnostics(errOut, in.Diagnostics, colored); err != nil {
			logger.Debug("write diagnostics", zap.Error(err))
		}
	}
	for _, c := range in.Profile.Conflicts {
		logger.Warn("term claimed by several instantiations",
			zap.Stringer("term", c.Term),
			zap.Stringer("previous", c.Previous),
			zap.Stringer("winner", c.Winner))
	}
	if in.Profile.Depth != nil && in.Profile.Depth.Cyclic {
		trace.Point(trace.FromContext(cmd.Context()), trace.ScopeDriver, "cycle", fmt.Sprintf("%d nodes", len(in.Profile.Depth.Cycles)), 0)
		logger.Info("causal graph has cycles", zap.Int("nodes", len(in.Profile.Depth.Cycles)))
	}
}
