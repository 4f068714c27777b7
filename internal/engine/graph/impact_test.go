package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semgraph/internal/core/errors"
)

func TestAnalyzeImpact_Callers(t *testing.T) {
	g := callGraph(t, [][2]string{
		{"crate::main", "crate::a"},
		{"crate::a", "crate::b"},
		{"crate::c", "crate::b"},
		{"crate::main", "crate::c"},
		{"crate::b", "crate::b"},
		{"crate::b", "crate::d"},
	})

	report, err := g.AnalyzeImpact("crate::b")
	require.NoError(t, err)
	assert.Equal(t, "crate::b", report.Target)
	assert.Equal(t, []string{"crate::a", "crate::c"}, report.DirectCallers)
	assert.Equal(t, []string{"crate::main"}, report.TransitiveCallers)
	assert.Empty(t, report.Reexports)

	report, err = g.AnalyzeImpact("crate::main")
	require.NoError(t, err)
	assert.Empty(t, report.DirectCallers)
	assert.Empty(t, report.TransitiveCallers)
}

func TestAnalyzeImpact_Aliases(t *testing.T) {
	table := NewDeclTable()
	for _, d := range []Declaration{
		{Path: "crate", Kind: KindModule},
		{Path: "crate::net", Kind: KindModule, Module: "crate"},
		{Path: "crate::net::send", Kind: KindFunction, Module: "crate::net"},
		{Path: "crate::send", Kind: KindReexport, Module: "crate", Target: "crate::net::send"},
		{Path: "crate::main", Kind: KindFunction, Module: "crate"},
	} {
		require.NoError(t, table.Insert(d))
	}
	g, err := Freeze(table, []Edge{
		{From: "crate::send", To: "crate::net::send", Kind: EdgeReexport},
		{From: "crate", To: "crate::net::send", Kind: EdgeAlias},
		{From: "crate::main", To: "crate::net::send", Kind: EdgeCall},
	}, nil, Meta{})
	require.NoError(t, err)

	report, err := g.AnalyzeImpact("crate::net::send")
	require.NoError(t, err)
	assert.Equal(t, "crate::net", report.Module)
	assert.Equal(t, []string{"crate::send"}, report.Reexports)
	assert.Equal(t, []string{"crate"}, report.ImportingModules)
	assert.Equal(t, []string{"crate::main"}, report.DirectCallers)

	_, err = g.AnalyzeImpact("crate::ghost")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestAnalyzeImpact_ReexportChain(t *testing.T) {
	table := NewDeclTable()
	for _, d := range []Declaration{
		{Path: "crate", Kind: KindModule},
		{Path: "crate::net", Kind: KindModule, Module: "crate"},
		{Path: "crate::net::send", Kind: KindFunction, Module: "crate::net"},
		{Path: "crate::net::transmit", Kind: KindReexport, Module: "crate::net", Target: "crate::net::send"},
		{Path: "crate::transmit", Kind: KindReexport, Module: "crate", Target: "crate::net::transmit"},
	} {
		require.NoError(t, table.Insert(d))
	}
	g, err := Freeze(table, []Edge{
		{From: "crate::net::transmit", To: "crate::net::send", Kind: EdgeReexport},
		{From: "crate::transmit", To: "crate::net::transmit", Kind: EdgeReexport},
	}, nil, Meta{})
	require.NoError(t, err)

	report, err := g.AnalyzeImpact("crate::net::send")
	require.NoError(t, err)
	assert.Equal(t, []string{"crate::net::transmit", "crate::transmit"}, report.Reexports)
}
