package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"semgraph/internal/engine/build"
	"semgraph/internal/engine/enginetest"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, forest parser.Forest) *graph.Graph {
	t.Helper()
	p, err := build.NewPipeline(build.Options{Workers: 2})
	require.NoError(t, err)
	g, err := p.Run(context.Background(), forest)
	require.NoError(t, err)
	return g
}

func TestRenderSummary(t *testing.T) {
	g := buildGraph(t, enginetest.SampleForest())
	out := RenderSummary(g, SummaryOptions{Plain: true})

	assert.Contains(t, out, "semgraph: crate sample")
	assert.Contains(t, out, "build "+g.BuildID())
	assert.Contains(t, out, "Diagnostics (1)")
	assert.Contains(t, out, "[UNRESOLVED_REFERENCE]")
	assert.Contains(t, out, "src/main.rs:9:1")
	assert.Contains(t, out, "Call cycles (1)")
	assert.Contains(t, out, "CYCLE crate::a::f -> crate::a::g -> crate::a::f")
	assert.Contains(t, out, "Unused imports (1)")
	assert.Contains(t, out, "crate: a::g")
	assert.Contains(t, out, "1 diagnostics, 1 call cycles")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderSummary_Limit(t *testing.T) {
	forest := enginetest.SampleForest()
	root := &forest.Modules[0]
	root.Sites = append(root.Sites,
		parser.UseSite{Path: []string{"nope1"}, Enclosing: "main", Kind: parser.SiteCall},
		parser.UseSite{Path: []string{"nope2"}, Enclosing: "main", Kind: parser.SiteCall},
	)
	g := buildGraph(t, forest)

	out := RenderSummary(g, SummaryOptions{Plain: true, MaxEntries: 1})
	assert.Contains(t, out, "Diagnostics (3)")
	assert.Contains(t, out, "... 2 more")
	assert.Equal(t, 1, strings.Count(out, "[UNRESOLVED_REFERENCE]"))
}

func TestRenderSummary_Clean(t *testing.T) {
	g := buildGraph(t, parser.Forest{
		Crate:   "clean",
		Modules: []parser.ModuleDecl{{Path: "crate", Items: []parser.Item{{Name: "main", Kind: parser.ItemFunction}}}},
	})
	out := RenderSummary(g, SummaryOptions{Plain: true})
	assert.Contains(t, out, "all references resolved")
	assert.NotContains(t, out, "Diagnostics")
}

func TestReplaceBetweenMarkers(t *testing.T) {
	content := "# Title\n<!-- semgraph:mods:start -->\nold\n<!-- semgraph:mods:end -->\ntail\n"
	got, err := ReplaceBetweenMarkers(content, "mods", "new\n")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n<!-- semgraph:mods:start -->\nnew\n<!-- semgraph:mods:end -->\ntail\n", got)

	crlf := "a\r\n<!-- semgraph:m:start -->\r\n<!-- semgraph:m:end -->\r\n"
	got, err = ReplaceBetweenMarkers(crlf, "m", "x\ny")
	require.NoError(t, err)
	assert.Equal(t, "a\r\n<!-- semgraph:m:start -->\r\nx\r\ny\r\n<!-- semgraph:m:end -->\r\n", got)
}

func TestReplaceBetweenMarkers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		marker  string
		want    string
	}{
		{"empty marker", "", " ", "must not be empty"},
		{"missing", "no markers", "m", "exactly once"},
		{"duplicated", "<!-- semgraph:m:start --><!-- semgraph:m:start --><!-- semgraph:m:end -->", "m", "exactly once"},
		{"reversed", "<!-- semgraph:m:end -->\n<!-- semgraph:m:start -->", "m", "invalid marker order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReplaceBetweenMarkers(tt.content, tt.marker, "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInjectDiagram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, os.WriteFile(path, []byte("intro\n<!-- semgraph:graph:start -->\n<!-- semgraph:graph:end -->\n"), 0o600))

	g := buildGraph(t, enginetest.SampleForest())
	diagram, err := NewMermaidGenerator(g).Generate()
	require.NoError(t, err)
	require.NoError(t, InjectDiagram(path, "graph", "mermaid", diagram))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!-- semgraph:graph:start -->\n```mermaid\nflowchart")
	assert.Contains(t, string(data), "```\n<!-- semgraph:graph:end -->")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Re-injecting the same diagram leaves the file untouched.
	require.NoError(t, InjectDiagram(path, "graph", "mermaid", diagram))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	err = InjectDiagram(filepath.Join(t.TempDir(), "missing.md"), "graph", "mermaid", diagram)
	assert.Error(t, err)
}
