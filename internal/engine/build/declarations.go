package build

import (
	"context"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/resolver"

	"golang.org/x/sync/errgroup"
)

// PopulateDeclarations walks the tree once and inserts every module's
// declarations, running up to workers modules at a time. The first failing
// module in pre-order decides the returned error.
func PopulateDeclarations(ctx context.Context, tree *modtree.Tree, table *graph.DeclTable, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	modules := make([]*modtree.Module, 0, tree.Len())
	tree.Walk(func(m *modtree.Module) bool {
		modules = append(modules, m)
		return true
	})

	errs := make([]error, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range modules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs[i] = resolver.DeclareModule(table, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, errors.CodeCanceled, "declaration pass canceled")
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
