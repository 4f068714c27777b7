package app

import (
	"context"

	"semgraph/internal/core/errors"
	"semgraph/internal/core/ports"
	"semgraph/internal/data/query"
	"semgraph/internal/engine/parser"
)

// Query answers req against the most recent successful build.
func (a *App) Query(ctx context.Context, req ports.QueryRequest) (ports.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.QueryResult{}, errors.Wrap(err, errors.CodeCanceled, "query canceled")
	}
	g := a.Graph()
	if g == nil {
		return ports.QueryResult{}, errors.New(errors.CodeNotFound, "no graph has been built")
	}

	path := normalizePath(req.Path)
	switch req.Kind {
	case ports.QueryCycles:
		return ports.QueryResult{Cycles: g.CallCycles()}, nil

	case ports.QuerySelect:
		q, err := query.ParseCQL(req.Expr)
		if err != nil {
			return ports.QueryResult{}, err
		}
		return ports.QueryResult{Rows: query.Execute(g, q, req.Limit)}, nil

	case ports.QueryLookup, ports.QueryOutgoing, ports.QueryIncoming:
		decl, ok := g.Lookup(path)
		if !ok {
			return ports.QueryResult{}, errors.AddContext(
				errors.Newf(errors.CodeNotFound, "no declaration at %q", path), errors.CtxSymbol, path)
		}
		result := ports.QueryResult{Declaration: &decl}
		switch req.Kind {
		case ports.QueryOutgoing:
			result.Edges = g.Outgoing(path)
		case ports.QueryIncoming:
			result.Edges = g.Incoming(path)
		}
		return result, nil

	case ports.QueryImpact:
		report, err := g.AnalyzeImpact(path)
		if err != nil {
			return ports.QueryResult{}, err
		}
		return ports.QueryResult{Impact: &report}, nil

	case ports.QueryChain:
		to := normalizePath(req.To)
		for _, p := range []string{path, to} {
			if _, ok := g.Lookup(p); !ok {
				return ports.QueryResult{}, errors.AddContext(
					errors.Newf(errors.CodeNotFound, "no declaration at %q", p), errors.CtxSymbol, p)
			}
		}
		chain, ok := g.FindCallChain(path, to)
		if !ok {
			return ports.QueryResult{}, errors.Newf(errors.CodeNotFound, "no call chain from %q to %q", path, to)
		}
		return ports.QueryResult{Chain: chain}, nil
	}
	return ports.QueryResult{}, errors.Newf(errors.CodeNotSupported, "unknown query kind %q", req.Kind)
}

// normalizePath accepts paths with or without the leading crate segment.
func normalizePath(path string) string {
	segs := parser.SplitPath(path)
	if len(segs) == 0 {
		return parser.SegCrate
	}
	if segs[0] != parser.SegCrate {
		segs = append([]string{parser.SegCrate}, segs...)
	}
	return parser.JoinPath(segs...)
}
