package graph

import (
	"sort"

	"semgraph/internal/core/errors"
)

// ImpactReport lists what depends on a declaration.
type ImpactReport struct {
	Target            string   `yaml:"target"`
	Module            string   `yaml:"module"`
	DirectCallers     []string `yaml:"direct_callers"`
	TransitiveCallers []string `yaml:"transitive_callers"`
	// Reexports are re-export declarations resolving to Target.
	Reexports []string `yaml:"reexports"`
	// ImportingModules are modules importing Target under a renamed alias.
	ImportingModules []string `yaml:"importing_modules"`
}

// AnalyzeImpact reports the callers of path, direct and transitive, and the
// aliases that expose it. Recursion through path itself is not reported.
func (g *Graph) AnalyzeImpact(path string) (ImpactReport, error) {
	decl, ok := g.decls[path]
	if !ok {
		return ImpactReport{}, errors.AddContext(
			errors.Newf(errors.CodeNotFound, "impact target %q not found", path), errors.CtxSymbol, path)
	}

	report := ImpactReport{Target: path, Module: decl.Module}
	report.Reexports = g.reexportChain(path)
	report.ImportingModules = g.sources(path, EdgeAlias)

	direct := make([]string, 0)
	for _, p := range g.sources(path, EdgeCall) {
		if p != path {
			direct = append(direct, p)
		}
	}
	report.DirectCallers = direct

	seen := map[string]bool{path: true}
	for _, p := range direct {
		seen[p] = true
	}
	queue := append([]string(nil), direct...)
	transitive := make([]string, 0)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range g.sources(curr, EdgeCall) {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			transitive = append(transitive, next)
		}
	}
	sort.Strings(transitive)
	report.TransitiveCallers = transitive
	return report, nil
}

// reexportChain walks incoming re-export edges transitively, so `pub use`
// of a `pub use` of path is reported too.
func (g *Graph) reexportChain(path string) []string {
	seen := map[string]bool{path: true}
	queue := []string{path}
	out := make([]string, 0)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, p := range g.sources(curr, EdgeReexport) {
			if seen[p] {
				continue
			}
			seen[p] = true
			queue = append(queue, p)
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// sources returns the distinct sorted origins of kind edges arriving at path.
func (g *Graph) sources(path string, kind EdgeKind) []string {
	set := make(map[string]bool)
	for _, i := range g.incoming[path] {
		if e := g.edges[i]; e.Kind == kind {
			set[e.From] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
