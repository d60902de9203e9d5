// Package report renders a finished profile: the plain debug dump with ranked
// costs, a coloured summary, JSON, YAML and Graphviz DOT.
package report

import (
	"fmt"
	"io"
	"strings"

	"qigraph/internal/diag"
	"qigraph/internal/observ"
	"qigraph/internal/profiler"
	"qigraph/internal/rank"
	"qigraph/internal/z3log"
)

// Format selects the renderer.
type Format uint8

const (
	FormatText Format = iota
	FormatPretty
	FormatJSON
	FormatYAML
	FormatDOT
)

var formatNames = [...]string{"text", "pretty", "json", "yaml", "dot"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// ParseFormat parses a --format value.
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unknown report format %q (want %s)", s, strings.Join(formatNames[:], ", "))
}

// Input is everything a renderer may show.
type Input struct {
	Source      string
	Solver      string
	Profile     *profiler.Profile
	Diagnostics *diag.Bag
	ParseStats  *z3log.Stats // nil when the profile came from the cache
	Timings     *observ.Report
	Cached      bool
}

// Options tune rendering.
type Options struct {
	// Top limits the cost lines; 0 shows all of them.
	Top int
	// Color enables ANSI colour in the pretty report.
	Color bool
}

// Write renders in with the given format.
func Write(w io.Writer, f Format, in *Input, opts Options) error {
	switch f {
	case FormatText:
		return WriteText(w, in, opts)
	case FormatPretty:
		return WritePretty(w, in, opts)
	case FormatJSON:
		return WriteJSON(w, in, opts)
	case FormatYAML:
		return WriteYAML(w, in, opts)
	case FormatDOT:
		return WriteDOT(w, in)
	default:
		return fmt.Errorf("unsupported format %s", f)
	}
}

func topCosts(lines []rank.Line, top int) []rank.Line {
	if top > 0 && top < len(lines) {
		return lines[:top]
	}
	return lines
}
