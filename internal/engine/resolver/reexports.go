package resolver

import (
	"log/slog"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
)

type reexport struct {
	path   string
	module *modtree.Module
	use    parser.UseDecl
	err    error
}

// ResolveReexports settles the immediate target of every `pub use`
// declaration before any module's imports are resolved. Re-exports that
// depend on other re-exports are retried until a round makes no progress.
// Chains that loop or exceed the alias depth are reported as cyclic and left
// unresolved.
func (r *Resolver) ResolveReexports() []graph.Diagnostic {
	var all []*reexport
	r.tree.Walk(func(m *modtree.Module) bool {
		for _, use := range m.Imports {
			if !use.Public || use.Glob || r.IsExternal(use.Target()) {
				continue
			}
			path := parser.JoinPath(m.Path, use.LocalName())
			if d, ok := r.table.Lookup(path); !ok || d.Kind != graph.KindReexport {
				continue
			}
			all = append(all, &reexport{path: path, module: m, use: use})
		}
		return true
	})

	pending := all
	rounds := 0
	for len(pending) > 0 {
		rounds++
		var next []*reexport
		for _, re := range pending {
			target, err := r.scope(re.module, nil).resolve(re.use.Target(), false)
			if err == nil && target == re.path {
				err = errors.Newf(errors.CodeCyclicAlias, "%q re-exports itself", re.path)
			}
			if err == nil {
				err = r.table.SetTarget(re.path, target)
			}
			if err != nil {
				re.err = err
				next = append(next, re)
			}
		}
		progress := len(next) < len(pending)
		pending = next
		if !progress {
			break
		}
	}

	var diags []graph.Diagnostic
	for _, re := range pending {
		code := diagCode(re.err, graph.DiagUnresolvedImport)
		msg := "unresolved re-export " + re.use.String() + ": " + message(re.err)
		if r.waitsOnCycle(re, pending) {
			code = graph.DiagCyclicAlias
			msg = "re-export " + re.use.String() + " is part of or depends on a re-export cycle"
		}
		diags = append(diags, r.reexportDiag(re, code, msg))
	}

	// Every target now names an existing declaration; chains that still do
	// not end at a direct declaration within the depth bound are cycles.
	var cyclic []*reexport
	for _, re := range all {
		if re.err != nil {
			continue
		}
		if _, err := graph.FollowAlias(r.table, re.path, r.maxDepth); errors.IsCode(err, errors.CodeCyclicAlias) {
			re.err = err
			cyclic = append(cyclic, re)
		}
	}
	for _, re := range cyclic {
		_ = r.table.SetTarget(re.path, "")
		diags = append(diags, r.reexportDiag(re, graph.DiagCyclicAlias, "re-export "+re.use.String()+": "+message(re.err)))
	}

	slog.Debug("re-exports resolved", "reexports", len(all), "rounds", rounds, "diagnostics", len(diags))
	return diags
}

// waitsOnCycle follows the chain of re-exports that re blocked on and reports
// whether it loops.
func (r *Resolver) waitsOnCycle(re *reexport, pending []*reexport) bool {
	if errors.IsCode(re.err, errors.CodeCyclicAlias) {
		return true
	}
	blockers := make(map[string]string, len(pending))
	for _, p := range pending {
		if b, ok := blockedOn(p.err); ok {
			blockers[p.path] = b
		}
	}
	visited := map[string]bool{re.path: true}
	for cur := re.path; ; {
		b, ok := blockers[cur]
		if !ok {
			return false
		}
		if visited[b] {
			return true
		}
		visited[b] = true
		cur = b
	}
}

func (r *Resolver) reexportDiag(re *reexport, code errors.ErrorCode, msg string) graph.Diagnostic {
	return graph.Diagnostic{
		Code:     code,
		Module:   re.module.Path,
		Subject:  re.use.String(),
		Message:  msg,
		Location: re.use.Location,
	}
}
