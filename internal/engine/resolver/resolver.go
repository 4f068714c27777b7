package resolver

import (
	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
)

const DefaultMaxAliasDepth = 32

// DefaultExternPrefixes are first segments that always leave the crate.
var DefaultExternPrefixes = []string{"std", "core", "alloc"}

type Options struct {
	MaxAliasDepth  int
	ExternPrefixes []string
	// Prelude names are treated as external when no crate scope binds them.
	// Nil selects the Rust std prelude; an empty slice disables it.
	Prelude []string
}

// Resolver runs the re-export, import and linking passes for one module tree.
// It never inserts declarations; re-export targets are the only table writes.
type Resolver struct {
	tree     *modtree.Tree
	table    *graph.DeclTable
	maxDepth int
	externs  map[string]bool
	prelude  map[string]bool
}

func New(tree *modtree.Tree, table *graph.DeclTable, opts Options) *Resolver {
	if opts.MaxAliasDepth <= 0 {
		opts.MaxAliasDepth = DefaultMaxAliasDepth
	}
	if opts.ExternPrefixes == nil {
		opts.ExternPrefixes = DefaultExternPrefixes
	}
	externs := make(map[string]bool, len(opts.ExternPrefixes))
	for _, p := range opts.ExternPrefixes {
		externs[p] = true
	}
	prelude := preludeNames
	if opts.Prelude != nil {
		prelude = make(map[string]bool, len(opts.Prelude))
		for _, p := range opts.Prelude {
			prelude[p] = true
		}
	}
	return &Resolver{
		tree:     tree,
		table:    table,
		maxDepth: opts.MaxAliasDepth,
		externs:  externs,
		prelude:  prelude,
	}
}

// IsExternal reports whether a path's first segment names another crate.
func (r *Resolver) IsExternal(segments []string) bool {
	return isExternalPath(segments, r.externs)
}

// inPrelude reports whether an unresolved path starts at a prelude name.
func (r *Resolver) inPrelude(segments []string) bool {
	return len(segments) > 0 && r.prelude[segments[0]]
}

func (r *Resolver) scope(m *modtree.Module, aliases *AliasTable) *Scope {
	return NewScope(r.tree, r.table, m, aliases, r.maxDepth)
}

// diagCode maps a resolution error to the diagnostic code reported for it.
func diagCode(err error, fallback errors.ErrorCode) errors.ErrorCode {
	if errors.IsCode(err, errors.CodeCyclicAlias) {
		return errors.CodeCyclicAlias
	}
	return fallback
}

func message(err error) string {
	var de *errors.DomainError
	if asDomain(err, &de) {
		return de.Message
	}
	return err.Error()
}
