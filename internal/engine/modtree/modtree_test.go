package modtree

import (
	"testing"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/enginetest"
	"semgraph/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Fixture(t *testing.T) {
	tree, err := Build(enginetest.FixtureForest())
	require.NoError(t, err)

	assert.Equal(t, "fixture", tree.Crate())
	assert.Equal(t, 8, tree.Len())
	assert.Equal(t, []string{
		"crate",
		"crate::my_module",
		"crate::my_module::sub_module",
		"crate::my_module::bar",
		"crate::my_module::utils",
		"crate::my_other_module",
		"crate::my_other_module::helper",
		"crate::foo",
	}, tree.Paths())

	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, "crate", root.Name)
	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, "crate::main", root.Scope["main"])
	assert.Equal(t, "crate::foo", root.Scope["foo"])
	assert.Equal(t, []string{"foo", "main", "my_module", "my_other_module"}, root.ScopeNames())

	utils, ok := tree.Module("crate::my_module::utils")
	require.True(t, ok)
	assert.Equal(t, "utils", utils.Name)
	assert.Equal(t, 2, utils.Depth())
	assert.Equal(t, "crate::my_module::utils::utility_function", utils.Scope["utility_function"])
}

func TestBuild_Ancestors(t *testing.T) {
	tree, err := Build(enginetest.FixtureForest())
	require.NoError(t, err)

	var paths []string
	for _, m := range tree.Ancestors("crate::my_module::sub_module") {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []string{"crate::my_module", "crate"}, paths)
	assert.Empty(t, tree.Ancestors("crate"))
	assert.Nil(t, tree.Ancestors("crate::missing"))
}

func TestBuild_Walk(t *testing.T) {
	tree, err := Build(enginetest.FixtureForest())
	require.NoError(t, err)

	var visited []string
	tree.Walk(func(m *Module) bool {
		visited = append(visited, m.Path)
		return len(visited) < 3
	})
	assert.Equal(t, []string{"crate", "crate::my_module", "crate::my_module::sub_module"}, visited)
}

func TestBuild_DuplicateModulePath(t *testing.T) {
	forest := enginetest.FixtureForest()
	forest.Modules = append(forest.Modules, parser.ModuleDecl{
		Path:   "crate::foo",
		Parent: "crate",
		File:   "src/foo/mod.rs",
	})

	tree, err := Build(forest)
	assert.Nil(t, tree)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateModulePath))
	assert.True(t, errors.IsStructural(err))
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		modules []parser.ModuleDecl
	}{
		{
			name:    "missing root",
			modules: []parser.ModuleDecl{{Path: "crate::a", Parent: "crate"}},
		},
		{
			name:    "second root",
			modules: []parser.ModuleDecl{{Path: "crate"}, {Path: "other"}},
		},
		{
			name:    "missing parent",
			modules: []parser.ModuleDecl{{Path: "crate"}, {Path: "crate::a::b", Parent: "crate::a"}},
		},
		{
			name:    "bad nesting",
			modules: []parser.ModuleDecl{{Path: "crate"}, {Path: "crate::a"}, {Path: "crate::b", Parent: "crate::a"}},
		},
		{
			name:    "empty path",
			modules: []parser.ModuleDecl{{Path: "crate"}, {Path: " "}},
		},
		{
			name:    "reserved segment",
			modules: []parser.ModuleDecl{{Path: "crate"}, {Path: "crate::super", Parent: "crate"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(parser.Forest{Crate: "c", Modules: tt.modules})
			assert.Nil(t, tree)
			assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)
		})
	}
}

func TestBuild_PlaceholderForMissingChild(t *testing.T) {
	forest := parser.Forest{
		Crate: "c",
		Modules: []parser.ModuleDecl{
			{Path: "crate", Children: []string{"gone", "here"}},
			{Path: "crate::here", Parent: "crate"},
		},
	}

	tree, err := Build(forest)
	require.NoError(t, err)

	gone, ok := tree.Module("crate::gone")
	require.True(t, ok)
	assert.True(t, gone.Placeholder)
	assert.Equal(t, "crate", gone.Parent)
	assert.Equal(t, []string{"crate::gone", "crate::here"}, tree.Root().Children)
}

func TestBuild_ChildrenOrder(t *testing.T) {
	forest := parser.Forest{
		Crate: "c",
		Modules: []parser.ModuleDecl{
			{Path: "crate", Children: []string{"b"}},
			{Path: "crate::a", Parent: "crate"},
			{Path: "crate::b", Parent: "crate"},
			{Path: "crate::c", Parent: "crate"},
		},
	}

	tree, err := Build(forest)
	require.NoError(t, err)
	assert.Equal(t, []string{"crate::b", "crate::a", "crate::c"}, tree.Root().Children)
	assert.Equal(t, []string{"crate", "crate::b", "crate::a", "crate::c"}, tree.Paths())
}

func TestBuild_ScopeSkipsMethods(t *testing.T) {
	forest := parser.Forest{
		Crate: "c",
		Modules: []parser.ModuleDecl{{
			Path: "crate",
			Items: []parser.Item{
				{Name: "Point", Kind: parser.ItemOther},
				{Name: "Point::new", Kind: parser.ItemFunction},
			},
		}},
	}

	tree, err := Build(forest)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Point": "crate::Point"}, tree.Root().Scope)
}
