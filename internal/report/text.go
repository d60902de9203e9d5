package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"qigraph/internal/instgraph"
	"qigraph/internal/qi"
)

// WriteText writes the debug dump of the graph followed by one line per
// ranked quantifier. Collections are printed in key order.
func WriteText(w io.Writer, in *Input, opts Options) error {
	bw := bufio.NewWriter(w)
	g := in.Profile.Graph

	bw.WriteString("EDGES: \n")
	bw.WriteString(formatEdges(g))
	bw.WriteString("\n\n\n")
	bw.WriteString("NODE NAMES: \n")
	bw.WriteString(formatNodeNames(g))
	bw.WriteString("\n\n\n")
	bw.WriteString("NODES: \n")
	bw.WriteString(formatNodes(g))
	bw.WriteString("\n")

	for _, line := range topCosts(in.Profile.Costs, opts.Top) {
		fmt.Fprintf(bw, "Instantiated %s %d times (%d%% of the total) \n\n", line.Label, line.Instantiations, line.Percent)
	}
	return bw.Flush()
}

func formatEdges(g *instgraph.Graph) string {
	var sb strings.Builder
	var prev qi.Key
	sb.WriteByte('{')
	for i, e := range g.SortedEdges() {
		if i > 0 && e.From == prev {
			sb.WriteString(", ")
			sb.WriteString(e.To.String())
			continue
		}
		if i > 0 {
			sb.WriteString("}, ")
		}
		sb.WriteString(e.From.String())
		sb.WriteString(": {")
		sb.WriteString(e.To.String())
		prev = e.From
	}
	if sb.Len() > 1 {
		sb.WriteByte('}')
	}
	sb.WriteByte('}')
	return sb.String()
}

func formatNodeNames(g *instgraph.Graph) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range g.SortedNodes() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k.String())
		sb.WriteString(": ")
		sb.WriteString(strconv.Quote(g.Names[k]))
	}
	sb.WriteByte('}')
	return sb.String()
}

func formatNodes(g *instgraph.Graph) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range g.SortedNodes() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
