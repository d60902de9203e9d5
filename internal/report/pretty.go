package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"qigraph/internal/diag"
)

type palette struct {
	title *color.Color
	label *color.Color
	num   *color.Color
	warn  *color.Color
	err   *color.Color
	dim   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title: color.New(color.FgCyan, color.Bold),
		label: color.New(color.FgYellow),
		num:   color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		err:   color.New(color.FgRed, color.Bold),
		dim:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.title, p.label, p.num, p.warn, p.err, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WritePretty writes a human summary: graph shape, causal depth and the cost
// table with grouped digits.
func WritePretty(w io.Writer, in *Input, opts Options) error {
	pal := newPalette(opts.Color)
	pr := message.NewPrinter(language.English)
	bw := bufio.NewWriter(w)
	p := in.Profile

	title := "quantifier instantiation profile"
	if in.Source != "" {
		title += ": " + in.Source
	}
	if in.Cached {
		title += " (cached)"
	}
	pal.title.Fprintln(bw, title)
	if in.Solver != "" {
		pal.dim.Fprintf(bw, "  solver %s\n", in.Solver)
	}

	pr.Fprintf(bw, "  graph        %s nodes, %s edges\n",
		pal.num.Sprint(pr.Sprintf("%d", p.GraphStats.Nodes)),
		pal.num.Sprint(pr.Sprintf("%d", p.GraphStats.Edges)))
	if d := p.Depth; d != nil {
		pr.Fprintf(bw, "  depth        longest chain %d, %d roots, %d waves\n", d.Longest, len(d.Roots), len(d.Batches))
		if d.Cyclic {
			pal.warn.Fprintf(bw, "  cycles       %d nodes sit on or behind a cycle\n", len(d.Cycles))
		}
	}
	if n := p.GraphStats.UnblamedTriggers; n > 0 {
		pr.Fprintf(bw, "  unblamed     %d triggers had no traced producer\n", n)
	}
	if n := p.GraphStats.SkippedEqualities; n > 0 {
		pal.dim.Fprint(bw, pr.Sprintf("  equalities   %d matched equalities not attributed\n", n))
	}
	if n := len(p.Conflicts); n > 0 {
		pal.warn.Fprint(bw, pr.Sprintf("  conflicts    %d terms claimed by several instantiations\n", n))
	}
	bw.WriteString("\n")

	costs := topCosts(p.Costs, opts.Top)
	width := len("quantifier")
	for _, line := range costs {
		width = max(width, len(line.Label))
	}
	pal.title.Fprintf(bw, "  %-*s %14s %14s %6s\n", width, "quantifier", "instances", "cost", "share")
	for _, line := range costs {
		bw.WriteString("  ")
		pal.label.Fprintf(bw, "%-*s", width, line.Label)
		bw.WriteString(pr.Sprintf(" %14d %14d ", line.Instantiations, line.Cost))
		pal.num.Fprintf(bw, "%5d%%", line.Percent)
		bw.WriteString("\n")
	}
	if hidden := len(p.Costs) - len(costs); hidden > 0 {
		pal.dim.Fprint(bw, pr.Sprintf("  ... %d more\n", hidden))
	}
	pr.Fprintf(bw, "  %-*s %14d\n", width, "total", p.Total)

	if in.Diagnostics != nil && in.Diagnostics.Len() > 0 {
		bw.WriteString("\n")
		writeDiagnostics(bw, in.Diagnostics, pal)
	}
	return bw.Flush()
}

// WriteDiagnostics lists parser diagnostics, one per line.
func WriteDiagnostics(w io.Writer, bag *diag.Bag, colored bool) error {
	bw := bufio.NewWriter(w)
	writeDiagnostics(bw, bag, newPalette(colored))
	return bw.Flush()
}

func writeDiagnostics(w io.Writer, bag *diag.Bag, pal palette) {
	for _, d := range bag.Items() {
		c := pal.dim
		switch d.Severity {
		case diag.SevError:
			c = pal.err
		case diag.SevWarning:
			c = pal.warn
		}
		c.Fprint(w, strings.ToLower(d.Severity.String()))
		loc := ""
		if d.Primary.Line != 0 {
			loc = " line " + d.Primary.String()
		}
		io.WriteString(w, " "+d.Code.ID()+loc+": "+d.Message+"\n")
	}
	if n := bag.Dropped(); n > 0 {
		pal.dim.Fprintf(w, "... %d more diagnostics not shown\n", n)
	}
}
