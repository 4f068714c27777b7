package resolver

import (
	"log/slog"
	"strings"

	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
)

// ResolveImports builds the alias table of one module from its implicit scope
// and its `use` declarations, processed in declaration order. Failures become
// diagnostics and never stop the remaining imports.
//
// The first segment of an import is looked up in the implicit scopes only,
// never in names bound by earlier imports, so the result does not depend on
// the order imports are written in.
func (r *Resolver) ResolveImports(m *modtree.Module) (*AliasTable, []graph.Diagnostic) {
	aliases := NewAliasTable(m)
	scope := r.scope(m, nil)
	var diags []graph.Diagnostic

	for _, use := range m.Imports {
		target := use.Target()
		if len(target) == 0 {
			continue
		}

		if r.IsExternal(target) {
			if !use.Glob {
				aliases.bind(AliasEntry{
					Name:     use.LocalName(),
					Target:   parser.JoinPath(target...),
					Origin:   OriginImport,
					External: true,
					Location: use.Location,
				})
			}
			continue
		}

		if use.Public && !use.Glob {
			r.bindReexport(aliases, scope, m, use)
			continue
		}

		resolved, err := scope.ResolvePath(target)
		if err != nil {
			diags = append(diags, graph.Diagnostic{
				Code:     diagCode(err, graph.DiagUnresolvedImport),
				Module:   m.Path,
				Subject:  use.String(),
				Message:  "unresolved import " + use.String() + ": " + message(err),
				Location: use.Location,
			})
			continue
		}

		if use.Glob {
			r.bindGlob(aliases, m, resolved, use)
			continue
		}

		aliases.bind(AliasEntry{
			Name:     use.LocalName(),
			Target:   resolved,
			Origin:   OriginImport,
			Location: use.Location,
		})
		aliases.bindings = append(aliases.bindings, Binding{Use: use, Target: resolved})
	}

	slog.Debug("imports resolved", "module", m.Path, "names", aliases.Len(), "diagnostics", len(diags))
	return aliases, diags
}

// bindReexport binds the local name of a `pub use`. Its target was settled by
// the re-export pass, which also reported any failure.
func (r *Resolver) bindReexport(aliases *AliasTable, scope *Scope, m *modtree.Module, use parser.UseDecl) {
	path := parser.JoinPath(m.Path, use.LocalName())
	d, ok := r.table.Lookup(path)
	if !ok || d.Kind != graph.KindReexport || d.Target == "" {
		return
	}
	final, err := scope.follow(path)
	if err != nil {
		return
	}
	aliases.bind(AliasEntry{
		Name:     use.LocalName(),
		Target:   final,
		Origin:   OriginImport,
		Location: use.Location,
	})
	aliases.bindings = append(aliases.bindings, Binding{Use: use, Target: d.Target})
}

// bindGlob binds every declaration directly inside the resolved module. When
// that module encloses m, as with `use super::*`, its private imports are
// visible too and are bound the same way. Glob names never shadow implicit
// scope or explicit imports.
func (r *Resolver) bindGlob(aliases *AliasTable, m *modtree.Module, module string, use parser.UseDecl) {
	d, ok := r.table.Lookup(module)
	if !ok || d.Kind != graph.KindModule {
		// Globs over enums or traits bring in names this graph does not declare.
		return
	}
	for _, child := range r.table.ChildrenOf(module) {
		if strings.Contains(child.Name, parser.PathSep) {
			continue
		}
		aliases.bind(AliasEntry{
			Name:     child.Name,
			Target:   child.Path,
			Origin:   OriginGlob,
			Location: use.Location,
		})
	}

	if !r.encloses(module, m) {
		return
	}
	src, ok := r.tree.Module(module)
	if !ok {
		return
	}
	for _, e := range r.explicitImports(src) {
		e.Origin = OriginGlob
		e.Location = use.Location
		aliases.bind(e)
	}
}

// encloses reports whether module is m or one of its ancestors.
func (r *Resolver) encloses(module string, m *modtree.Module) bool {
	if module == m.Path {
		return true
	}
	for _, anc := range r.tree.Ancestors(m.Path) {
		if anc.Path == module {
			return true
		}
	}
	return false
}

// explicitImports resolves the private, non-glob imports of m without
// reporting failures; m's own import pass reports them. Imports resolve
// against implicit scopes only, so this reads nothing another module's pass
// writes.
func (r *Resolver) explicitImports(m *modtree.Module) []AliasEntry {
	scope := r.scope(m, nil)
	var out []AliasEntry
	for _, use := range m.Imports {
		target := use.Target()
		if use.Glob || use.Public || len(target) == 0 {
			continue
		}
		if r.IsExternal(target) {
			out = append(out, AliasEntry{
				Name:     use.LocalName(),
				Target:   parser.JoinPath(target...),
				External: true,
			})
			continue
		}
		resolved, err := scope.ResolvePath(target)
		if err != nil {
			continue
		}
		out = append(out, AliasEntry{Name: use.LocalName(), Target: resolved})
	}
	return out
}
