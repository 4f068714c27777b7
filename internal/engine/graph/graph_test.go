package graph

import (
	"testing"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *DeclTable {
	t.Helper()
	table := NewDeclTable()
	for _, d := range []Declaration{
		{Path: "crate", Name: "crate", Kind: KindModule},
		{Path: "crate::main", Name: "main", Kind: KindFunction, Module: "crate"},
		{Path: "crate::util", Name: "util", Kind: KindModule, Module: "crate"},
		{Path: "crate::util::helper", Name: "helper", Kind: KindFunction, Module: "crate::util"},
		{Path: "crate::util::Config", Name: "Config", Kind: KindItem, Module: "crate::util"},
		{Path: "crate::helper", Name: "helper", Kind: KindReexport, Module: "crate", Target: "crate::util::helper"},
	} {
		require.NoError(t, table.Insert(d))
	}
	return table
}

func TestFreeze_Queries(t *testing.T) {
	edges := []Edge{
		{From: "crate::main", To: "crate::util::helper", Kind: EdgeCall, Location: parser.Location{File: "main.rs", Line: 3, Column: 5}},
		{From: "crate::main", To: "crate::util::helper", Kind: EdgeCall, Location: parser.Location{File: "main.rs", Line: 4, Column: 5}},
		{From: "crate::helper", To: "crate::util::helper", Kind: EdgeReexport},
	}
	diags := []Diagnostic{{Code: DiagUnresolvedImport, Module: "crate", Subject: "nope::x", Message: "no match"}}

	g, err := Freeze(sampleTable(t), edges, diags, Meta{BuildID: "b1", Crate: "demo", ExternalSites: 2})
	require.NoError(t, err)

	assert.Equal(t, "b1", g.BuildID())
	assert.Equal(t, "demo", g.Crate())

	d, ok := g.Lookup("crate::util::helper")
	require.True(t, ok)
	assert.Equal(t, KindFunction, d.Kind)

	out := g.Outgoing("crate::main")
	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].Location.Line)
	assert.Equal(t, 4, out[1].Location.Line)
	assert.Len(t, g.Incoming("crate::util::helper"), 3)
	assert.Nil(t, g.Outgoing("crate::util"))

	decls := g.Declarations()
	require.Len(t, decls, 6)
	assert.Equal(t, "crate", decls[0].Path)

	assert.Equal(t, Stats{
		Modules:       2,
		Functions:     2,
		Items:         1,
		Reexports:     1,
		CallEdges:     2,
		ReexportEdges: 1,
		Diagnostics:   1,
		ExternalSites: 2,
	}, g.Stats())
	require.Len(t, g.Diagnostics(), 1)
	assert.True(t, errors.IsCode(g.Diagnostics()[0].Err(), errors.CodeUnresolvedImport))
}

func TestFreeze_RejectsDanglingEdge(t *testing.T) {
	_, err := Freeze(sampleTable(t), []Edge{{From: "crate::main", To: "crate::gone", Kind: EdgeCall}}, nil, Meta{})
	assert.True(t, errors.IsCode(err, errors.CodeInternal))

	_, err = Freeze(sampleTable(t), []Edge{{From: "crate::gone", To: "crate::main", Kind: EdgeCall}}, nil, Meta{})
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
}

func TestFreeze_ReturnedSlicesAreCopies(t *testing.T) {
	edges := []Edge{{From: "crate::main", To: "crate::util::helper", Kind: EdgeCall}}
	g, err := Freeze(sampleTable(t), edges, nil, Meta{})
	require.NoError(t, err)

	edges[0].To = "crate::main"
	got := g.Edges()
	got[0].From = "x"
	assert.Equal(t, "crate::util::helper", g.Edges()[0].To)
	assert.Equal(t, "crate::main", g.Edges()[0].From)
}

func TestFingerprint(t *testing.T) {
	edges := []Edge{
		{From: "crate::main", To: "crate::util::helper", Kind: EdgeCall},
		{From: "crate::main", To: "crate::helper", Kind: EdgeCall},
	}
	a, err := Freeze(sampleTable(t), edges, nil, Meta{BuildID: "one"})
	require.NoError(t, err)
	b, err := Freeze(sampleTable(t), edges, []Diagnostic{{Code: DiagCyclicAlias}}, Meta{BuildID: "two"})
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "build id and diagnostics do not contribute")
	assert.Len(t, a.FingerprintHex(), 16)

	swapped := []Edge{edges[1], edges[0]}
	c, err := Freeze(sampleTable(t), swapped, nil, Meta{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "edge order contributes")

	doubled := append(append([]Edge(nil), edges...), edges[0])
	d, err := Freeze(sampleTable(t), doubled, nil, Meta{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint(), "edge multiplicity contributes")
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Code: DiagUnresolvedReference, Module: "crate", Message: "x not found"}
	assert.Equal(t, "crate: UNRESOLVED_REFERENCE: x not found", d.String())

	d.Location = parser.Location{File: "main.rs", Line: 2, Column: 1}
	assert.Equal(t, "main.rs:2:1: UNRESOLVED_REFERENCE: x not found", d.String())
}
