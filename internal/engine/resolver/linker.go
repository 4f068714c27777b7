package resolver

import (
	stderrors "errors"
	"log/slog"

	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
)

// LinkResult is everything one module contributes to the graph.
type LinkResult struct {
	Edges         []graph.Edge
	Diagnostics   []graph.Diagnostic
	Unused        []graph.UnusedImport
	ExternalSites int
}

// Link resolves every use site of m through its alias table, then ancestor
// scopes, then the crate root, and emits one edge per resolved site. Renamed
// imports and re-exports contribute alias and re-export edges first. The
// declaration table is only read.
func (r *Resolver) Link(m *modtree.Module, aliases *AliasTable) LinkResult {
	var res LinkResult

	for _, b := range aliases.bindings {
		switch {
		case b.Use.Public:
			res.Edges = append(res.Edges, graph.Edge{
				From:     parser.JoinPath(m.Path, b.Use.LocalName()),
				To:       b.Target,
				Kind:     graph.EdgeReexport,
				Location: b.Use.Location,
			})
		case b.Use.Alias != "":
			res.Edges = append(res.Edges, graph.Edge{
				From:     m.Path,
				To:       b.Target,
				Kind:     graph.EdgeAlias,
				Location: b.Use.Location,
			})
		}
	}

	scope := r.scope(m, aliases)
	used := make(map[string]bool, len(m.Sites))
	for _, site := range m.Sites {
		if len(site.Path) == 0 {
			continue
		}
		used[site.Path[0]] = true
		if r.IsExternal(site.Path) {
			res.ExternalSites++
			continue
		}

		target, err := scope.ResolvePath(site.Path)
		if stderrors.Is(err, errExternal) {
			res.ExternalSites++
			continue
		}
		if err != nil && r.inPrelude(site.Path) && !scope.Binds(site.Path[0]) {
			res.ExternalSites++
			continue
		}
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, graph.Diagnostic{
				Code:     diagCode(err, graph.DiagUnresolvedReference),
				Module:   m.Path,
				Subject:  site.Name(),
				Message:  "unresolved reference " + site.Name() + ": " + message(err),
				Location: site.Location,
			})
			continue
		}

		d, _ := r.table.Lookup(target)
		if d.Kind == graph.KindModule {
			res.Diagnostics = append(res.Diagnostics, graph.Diagnostic{
				Code:     graph.DiagUnresolvedReference,
				Module:   m.Path,
				Subject:  site.Name(),
				Message:  site.Name() + " resolves to module " + target + ", not callable",
				Location: site.Location,
			})
			continue
		}

		res.Edges = append(res.Edges, graph.Edge{
			From:     r.enclosing(m, site),
			To:       target,
			Kind:     graph.EdgeCall,
			Location: site.Location,
		})
	}

	res.Unused = r.unusedImports(m, aliases, used)

	slog.Debug("module linked", "module", m.Path, "edges", len(res.Edges), "diagnostics", len(res.Diagnostics))
	return res
}

// enclosing returns the declaration that owns site, falling back to the
// module for module-level code and for bodies that are not declared, such as
// trait impl methods.
func (r *Resolver) enclosing(m *modtree.Module, site parser.UseSite) string {
	if site.Enclosing == "" {
		return m.Path
	}
	path := parser.JoinPath(m.Path, site.Enclosing)
	if _, ok := r.table.Lookup(path); ok {
		return path
	}
	return m.Path
}

// unusedImports reports private imports of functions that no site in m
// names. Types and modules are skipped since only call sites are recorded.
func (r *Resolver) unusedImports(m *modtree.Module, aliases *AliasTable, used map[string]bool) []graph.UnusedImport {
	var out []graph.UnusedImport
	for _, b := range aliases.bindings {
		name := b.Use.LocalName()
		if b.Use.Public || used[name] {
			continue
		}
		if d, ok := r.table.Lookup(b.Target); !ok || d.Kind != graph.KindFunction {
			continue
		}
		out = append(out, graph.UnusedImport{
			Module:   m.Path,
			Name:     name,
			Import:   b.Use.String(),
			Target:   b.Target,
			Location: b.Use.Location,
		})
	}
	return out
}
