package formats

import (
	"fmt"
	"strings"
	"unicode"

	"semgraph/internal/engine/graph"
)

// ownerModule returns the module a declaration is drawn inside. Modules own
// themselves.
func ownerModule(d graph.Declaration) string {
	if d.Kind == graph.KindModule {
		return d.Path
	}
	return d.Module
}

// groupByModule buckets declarations by owning module, preserving input order.
func groupByModule(decls []graph.Declaration) map[string][]graph.Declaration {
	out := make(map[string][]graph.Declaration)
	for _, d := range decls {
		owner := ownerModule(d)
		out[owner] = append(out[owner], d)
	}
	return out
}

func moduleLabel(module string, members []graph.Declaration) string {
	funcs, reexports := 0, 0
	for _, d := range members {
		switch d.Kind {
		case graph.KindFunction:
			funcs++
		case graph.KindReexport:
			reexports++
		}
	}
	label := fmt.Sprintf("%s\\n(%d funcs)", module, funcs)
	if reexports > 0 {
		label += fmt.Sprintf("\\n(%d re-exports)", reexports)
	}
	return label
}

// cycleEdgeSet returns the consecutive pairs of every cycle, closing the loop.
func cycleEdgeSet(cycles [][]string) map[string]map[string]bool {
	edges := make(map[string]map[string]bool)
	for _, cycle := range cycles {
		for i := range cycle {
			from := cycle[i]
			to := cycle[(i+1)%len(cycle)]
			if edges[from] == nil {
				edges[from] = make(map[string]bool)
			}
			edges[from][to] = true
		}
	}
	return edges
}

func sanitizeID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
