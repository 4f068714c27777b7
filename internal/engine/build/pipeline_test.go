package build

import (
	"context"
	"errors"
	"fmt"
	"testing"

	semerrors "semgraph/internal/core/errors"
	"semgraph/internal/engine/enginetest"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(opts)
	require.NoError(t, err)
	return p
}

func TestRun_Fixture(t *testing.T) {
	g, err := newPipeline(t, Options{Workers: 4}).Run(context.Background(), enginetest.FixtureForest())
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Empty(t, g.Diagnostics())
	assert.NotEmpty(t, g.BuildID())
	assert.Equal(t, "fixture", g.Crate())

	var targets []string
	for _, e := range g.Outgoing("crate::main") {
		if e.Kind == graph.EdgeCall {
			targets = append(targets, e.To)
		}
	}
	assert.Equal(t, enginetest.FixtureCallTargets, targets)

	stats := g.Stats()
	assert.Equal(t, 8, stats.Modules)
	assert.Equal(t, 6, stats.Functions)
	assert.Equal(t, 5, stats.CallEdges)
	assert.Equal(t, 1, stats.AliasEdges)

	for _, d := range g.Declarations() {
		got, ok := g.Lookup(d.Path)
		require.True(t, ok)
		assert.Equal(t, d, got)
	}

	in := g.Incoming("crate::my_module::bar::bar_function")
	require.Len(t, in, 2)
	assert.Equal(t, graph.EdgeAlias, in[0].Kind)
	assert.Equal(t, graph.EdgeCall, in[1].Kind)
}

// wideForest has enough modules that workers interleave.
func wideForest(n int) parser.Forest {
	f := parser.Forest{Crate: "wide"}
	root := parser.ModuleDecl{Path: "crate", Items: []parser.Item{{Name: "main", Kind: parser.ItemFunction}}}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("m%02d", i)
		root.Children = append(root.Children, name)
		// Repeated call sites keep their multiplicity.
		root.Sites = append(root.Sites,
			enginetest.Call("main", name, "work"),
			enginetest.Call("main", name, "work"),
		)
		next := fmt.Sprintf("m%02d", (i+1)%n)
		f.Modules = append(f.Modules, parser.ModuleDecl{
			Path:   "crate::" + name,
			Parent: "crate",
			Items:  []parser.Item{{Name: "work", Kind: parser.ItemFunction}},
			Uses:   []parser.UseDecl{{Path: []string{"crate", next, "work"}, Alias: "next"}},
			Sites:  []parser.UseSite{enginetest.Call("work", "next"), enginetest.Call("work", "missing")},
		})
	}
	f.Modules = append([]parser.ModuleDecl{root}, f.Modules...)
	return f
}

func TestRun_DeterministicAcrossWorkers(t *testing.T) {
	forest := wideForest(24)

	base, err := newPipeline(t, Options{Workers: 1}).Run(context.Background(), forest)
	require.NoError(t, err)
	assert.Equal(t, 48+24, base.Stats().CallEdges)
	assert.Len(t, base.Diagnostics(), 24)

	for _, workers := range []int{2, 4, 16} {
		for run := 0; run < 3; run++ {
			g, err := newPipeline(t, Options{Workers: workers}).Run(context.Background(), forest)
			require.NoError(t, err)
			assert.Equal(t, base.Declarations(), g.Declarations())
			assert.Equal(t, base.Edges(), g.Edges())
			assert.Equal(t, base.Diagnostics(), g.Diagnostics())
			assert.Equal(t, base.Fingerprint(), g.Fingerprint())
			assert.NotEqual(t, base.BuildID(), g.BuildID())
		}
	}
}

func TestRun_StructuralErrors(t *testing.T) {
	t.Run("duplicate module path", func(t *testing.T) {
		forest := enginetest.FixtureForest()
		forest.Modules = append(forest.Modules, parser.ModuleDecl{Path: "crate::foo", Parent: "crate"})
		g, err := newPipeline(t, Options{}).Run(context.Background(), forest)
		assert.Nil(t, g)
		assert.True(t, semerrors.IsCode(err, semerrors.CodeDuplicateModulePath))
	})

	t.Run("duplicate declaration", func(t *testing.T) {
		forest := enginetest.FixtureForest()
		foo := enginetest.Module(&forest, "crate::foo")
		foo.Items = append(foo.Items, parser.Item{Name: "foo", Kind: parser.ItemOther})
		g, err := newPipeline(t, Options{Workers: 3}).Run(context.Background(), forest)
		assert.Nil(t, g)
		assert.True(t, semerrors.IsCode(err, semerrors.CodeDuplicateDeclaration))
	})
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := newPipeline(t, Options{}).Run(ctx, enginetest.FixtureForest())
	assert.Nil(t, g)
	assert.True(t, semerrors.IsCode(err, semerrors.CodeCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_IgnoreUnresolved(t *testing.T) {
	forest := enginetest.FixtureForest()
	root := enginetest.Module(&forest, "crate")
	root.Sites = append(root.Sites,
		enginetest.Call("main", "log", "info"),
		enginetest.Call("main", "log", "nested", "warn"),
		enginetest.Call("main", "other"),
	)

	g, err := newPipeline(t, Options{IgnoreUnresolved: []string{"log::*"}}).Run(context.Background(), forest)
	require.NoError(t, err)

	var subjects []string
	for _, d := range g.Diagnostics() {
		subjects = append(subjects, d.Subject)
	}
	assert.Equal(t, []string{"log::nested::warn", "other"}, subjects)
}

func TestNewPipeline_BadPattern(t *testing.T) {
	_, err := NewPipeline(Options{IgnoreUnresolved: []string{"[unclosed"}})
	assert.True(t, semerrors.IsCode(err, semerrors.CodeValidationError))
}

func TestPopulateDeclarations(t *testing.T) {
	tree, err := modtree.Build(enginetest.FixtureForest())
	require.NoError(t, err)

	table := graph.NewDeclTable()
	require.NoError(t, PopulateDeclarations(context.Background(), tree, table, 3))
	// 8 modules plus 6 functions.
	assert.Equal(t, 14, table.Len())

	d, ok := table.Lookup("crate::my_module::utils")
	require.True(t, ok)
	assert.Equal(t, graph.KindModule, d.Kind)
	assert.Equal(t, "crate::my_module", d.Module)
}
