package formats

import (
	"fmt"
	"strings"

	"semgraph/internal/engine/graph"
	"semgraph/internal/shared/util"
)

// MermaidGenerator renders a module-level flowchart: declarations collapse
// into their owning module and parallel edges are counted.
type MermaidGenerator struct {
	graph *graph.Graph
}

func NewMermaidGenerator(g *graph.Graph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

type moduleEdge struct {
	from, to string
	kind     graph.EdgeKind
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'theme': 'base', 'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	owner := make(map[string]string)
	byModule := groupByModule(m.graph.Declarations())
	modules := util.SortedStringKeys(byModule)
	for module, members := range byModule {
		for _, d := range members {
			owner[d.Path] = module
		}
	}
	ids := makeIDs(modules)

	for _, module := range modules {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[module], escapeLabel(strings.ReplaceAll(moduleLabel(module, byModule[module]), "\\n", "<br/>"))))
	}

	counts := make(map[moduleEdge]int)
	var order []moduleEdge
	for _, e := range m.graph.Edges() {
		key := moduleEdge{from: owner[e.From], to: owner[e.To], kind: e.Kind}
		if key.from == key.to {
			continue
		}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	if len(order) > 0 {
		b.WriteString("\n")
	}
	for _, key := range order {
		arrow := "-->"
		switch key.kind {
		case graph.EdgeAlias:
			arrow = "-.->"
		case graph.EdgeReexport:
			arrow = "==>"
		}
		label := string(key.kind)
		if n := counts[key]; n > 1 {
			label = fmt.Sprintf("%s x%d", key.kind, n)
		}
		b.WriteString(fmt.Sprintf("  %s %s|%s| %s\n", ids[key.from], arrow, label, ids[key.to]))
	}

	return b.String(), nil
}
