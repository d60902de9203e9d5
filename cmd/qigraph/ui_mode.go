package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// progressMode is the --ui setting for the log reading view.
type progressMode uint8

const (
	progressAuto progressMode = iota
	progressOn
	progressOff
)

func parseProgressMode(value string) (progressMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return progressAuto, nil
	case "on":
		return progressOn, nil
	case "off":
		return progressOff, nil
	}
	return progressAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// wantProgress reports whether the log is read behind the progress view.
// The view draws on stderr, so auto follows stderr; --quiet wins over --ui.
func wantProgress(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Flags().GetString("ui")
	if err != nil {
		return false, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := parseProgressMode(value)
	if err != nil {
		return false, err
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return false, nil
	}
	switch mode {
	case progressOn:
		return true, nil
	case progressOff:
		return false, nil
	}
	return isTerminal(stderrFile(cmd)), nil
}
