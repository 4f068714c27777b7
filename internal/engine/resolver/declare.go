package resolver

import (
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
)

// DeclareModule inserts the declarations owned by m: the module itself, each
// item, and each non-glob `pub use`. Distinct modules may be declared
// concurrently.
func DeclareModule(table *graph.DeclTable, m *modtree.Module) error {
	if err := table.Insert(graph.Declaration{
		Path:     m.Path,
		Name:     m.Name,
		Kind:     graph.KindModule,
		Module:   m.Parent,
		Location: m.Location,
	}); err != nil {
		return err
	}

	for _, item := range m.Items {
		kind := graph.KindItem
		if item.Kind == parser.ItemFunction {
			kind = graph.KindFunction
		}
		if err := table.Insert(graph.Declaration{
			Path:     parser.JoinPath(m.Path, item.Name),
			Name:     item.Name,
			Kind:     kind,
			Module:   m.Path,
			Location: item.Location,
		}); err != nil {
			return err
		}
	}

	for _, use := range m.Imports {
		if !use.Public || use.Glob {
			continue
		}
		name := use.LocalName()
		if name == "" || name == parser.SegSelf || name == parser.SegCrate || name == parser.SegSuper {
			continue
		}
		if err := table.Insert(graph.Declaration{
			Path:     parser.JoinPath(m.Path, name),
			Name:     name,
			Kind:     graph.KindReexport,
			Module:   m.Path,
			Location: use.Location,
		}); err != nil {
			return err
		}
	}
	return nil
}
