package main

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"qigraph/internal/ui"
	"qigraph/internal/z3log"
)

type parseOutcome struct {
	result *z3log.Result
	err    error
}

// parseWithUI reads the log in the background while a progress view renders
// on stderr. Quitting the view with ctrl+c cancels reading.
func parseWithUI(ctx context.Context, path string, cfg z3log.Config) (*z3log.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan z3log.Event, 256)
	outcomeCh := make(chan parseOutcome, 1)

	go func() {
		res, err := z3log.ParseFile(ctx, path, cfg, z3log.ChannelSink{Ch: events})
		outcomeCh <- parseOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("reading "+filepath.Base(path), path, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	final, uiErr := program.Run()
	if p, ok := final.(interface{ Interrupted() bool }); ok && p.Interrupted() {
		cancel()
	}
	// the parser must never block on the final event once the view is gone
	go func() {
		for range events {
		}
	}()

	outcome := <-outcomeCh
	if outcome.err != nil {
		return nil, outcome.err
	}
	if uiErr != nil {
		logger.Debug("progress view failed", zap.Error(uiErr))
	}
	return outcome.result, nil
}
