package formats

import (
	"fmt"
	"strings"

	"semgraph/internal/engine/graph"
	"semgraph/internal/shared/util"
)

// DOTGenerator renders the graph for Graphviz: one cluster per module holding
// its declarations, edges styled by kind.
type DOTGenerator struct {
	graph *graph.Graph
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the graph, drawing edges that lie on one of cycles in red.
func (d *DOTGenerator) Generate(cycles [][]string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph semgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  compound=true;\n\n")

	cycleEdges := cycleEdgeSet(cycles)
	cycleNodes := make(map[string]bool)
	for _, cycle := range cycles {
		for _, p := range cycle {
			cycleNodes[p] = true
		}
	}

	byModule := groupByModule(d.graph.Declarations())
	for i, module := range util.SortedStringKeys(byModule) {
		members := byModule[module]
		buf.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		buf.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeLabel(moduleLabel(module, members))))
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")
		for _, decl := range members {
			buf.WriteString("    " + declNode(decl, cycleNodes[decl.Path]) + "\n")
		}
		buf.WriteString("  }\n\n")
	}

	for _, e := range d.graph.Edges() {
		style := edgeStyle(e.Kind)
		if e.Kind == graph.EdgeCall && cycleEdges[e.From] != nil && cycleEdges[e.From][e.To] {
			style = "color=\"red\", penwidth=3.0, label=\"CYCLE\""
		}
		buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [%s];\n", e.From, e.To, style))
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_module [label=\"Module\", shape=folder];\n")
	buf.WriteString("    legend_function [label=\"Function\", fillcolor=\"white\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_reexport [label=\"Re-export\", shape=cds];\n")
	buf.WriteString("    legend_call [label=\"Call\", shape=plaintext, fontcolor=\"forestgreen\"];\n")
	buf.WriteString("    legend_alias [label=\"Alias\", shape=plaintext, fontcolor=\"royalblue\"];\n")
	buf.WriteString("    legend_cycle [label=\"Call cycle\", shape=plaintext, fontcolor=\"red\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")
	return buf.String(), nil
}

func declNode(d graph.Declaration, inCycle bool) string {
	var attrs string
	switch d.Kind {
	case graph.KindModule:
		attrs = "shape=folder, color=\"darkslategrey\""
	case graph.KindReexport:
		attrs = "shape=cds, color=\"purple\""
	case graph.KindItem:
		attrs = "shape=note, color=\"grey\""
	default:
		attrs = "color=\"darkslategrey\""
	}
	if inCycle {
		attrs += ", style=\"rounded,filled\", fillcolor=\"mistyrose\", penwidth=2.0"
	}
	return fmt.Sprintf("\"%s\" [label=\"%s\", %s];", d.Path, escapeLabel(d.Name), attrs)
}

func edgeStyle(kind graph.EdgeKind) string {
	switch kind {
	case graph.EdgeAlias:
		return "color=\"royalblue\", style=dashed, label=\"as\""
	case graph.EdgeReexport:
		return "color=\"purple\", style=dotted, label=\"pub use\""
	default:
		return "color=\"forestgreen\", penwidth=1.8"
	}
}
