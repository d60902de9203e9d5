package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"qigraph/internal/trace"
	"qigraph/internal/version"
)

// logger is built in PersistentPreRunE; a no-op logger until then.
var logger = zap.NewNop()

// cleanups run once after the command, also when it fails.
var (
	cleanupMu sync.Mutex
	cleanups  []func()
)

func addCleanup(fn func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	cleanups = append(cleanups, fn)
}

func runCleanups() {
	cleanupMu.Lock()
	fns := cleanups
	cleanups = nil
	cleanupMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qigraph",
		Short: "Quantifier instantiation profiler for Z3 trace logs",
		Long: `qigraph reads the trace log Z3 writes with trace=true, links quantifier
instantiations into a causal graph (u -> v when u produced a term that
triggered v) and ranks quantifiers by the cost of their instantiations.`,
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogger(cmd); err != nil {
				return err
			}
			stopTrace, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			addCleanup(stopTrace)
			stopProfiling, err := setupProfiling(cmd)
			if err != nil {
				return err
			}
			addCleanup(stopProfiling)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			runCleanups()
		},
	}

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.String("ui", "auto", "progress UI while reading the log (auto|on|off)")
	pf.String("config", "", "path to qigraph.toml (default: search upwards from the working directory)")

	pf.String("trace", "", "write pipeline trace to file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both|log)")
	pf.Int("trace-ring-size", 4096, "ring buffer size for ring/both trace modes")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat trace event at this interval (0 disables)")

	pf.String("cpu-profile", "", "write CPU profile to file")
	pf.String("mem-profile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write Go runtime trace to file")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// setupLogger builds the zap logger. --verbose selects debug, --quiet errors only.
func setupLogger(cmd *cobra.Command) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	config := zap.NewProductionConfig()
	switch {
	case verbose:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quiet:
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = !verbose

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built
	addCleanup(func() {
		_ = logger.Sync()
	})
	return nil
}

// main executes the root command; on error it prints the message and exits with status 1.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	runCleanups()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "qigraph: %v\n", err)
		if activeRing != nil {
			fmt.Fprintln(os.Stderr, "last trace events:")
			_ = activeRing.Dump(os.Stderr, trace.FormatText)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// stdoutFile returns the command's output as a file, or nil when it was
// redirected to something else.
func stdoutFile(cmd *cobra.Command) *os.File {
	f, _ := cmd.OutOrStdout().(*os.File)
	return f
}

func stderrFile(cmd *cobra.Command) *os.File {
	f, _ := cmd.ErrOrStderr().(*os.File)
	return f
}

// useColor resolves --color against the terminal state of f.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "", "auto":
		return os.Getenv("NO_COLOR") == "" && isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}
