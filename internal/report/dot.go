package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteDOT writes the causal graph in Graphviz syntax. Node labels carry the
// quantifier name and the key.
func WriteDOT(w io.Writer, in *Input) error {
	g := in.Profile.Graph
	bw := bufio.NewWriter(w)
	bw.WriteString("digraph instantiations {\n")
	bw.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	for _, k := range g.SortedNodes() {
		fmt.Fprintf(bw, "  %s [label=%s];\n", strconv.Quote(k.String()), dotLabel(g.Names[k], k.String()))
	}
	for _, e := range g.SortedEdges() {
		fmt.Fprintf(bw, "  %s -> %s;\n", strconv.Quote(e.From.String()), strconv.Quote(e.To.String()))
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// dotLabel quotes lines as one DOT string, joined by the "\n" line break.
func dotLabel(lines ...string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, line := range lines {
		if i > 0 {
			sb.WriteString(`\n`)
		}
		for _, r := range line {
			switch r {
			case '"', '\\':
				sb.WriteByte('\\')
				sb.WriteRune(r)
			case '\n':
				sb.WriteString(`\n`)
			default:
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
