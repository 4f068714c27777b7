package graph

import (
	"fmt"
	"testing"
)

// ringGraph builds n functions calling their successor, closing one cycle.
func ringGraph(b *testing.B, n int) *Graph {
	b.Helper()
	table := NewDeclTable()
	edges := make([]Edge, 0, n)
	for i := 0; i < n; i++ {
		if err := table.Insert(Declaration{Path: fmt.Sprintf("crate::f%d", i), Kind: KindFunction, Module: "crate"}); err != nil {
			b.Fatal(err)
		}
		edges = append(edges, Edge{From: fmt.Sprintf("crate::f%d", i), To: fmt.Sprintf("crate::f%d", (i+1)%n), Kind: EdgeCall})
	}
	g, err := Freeze(table, edges, nil, Meta{})
	if err != nil {
		b.Fatal(err)
	}
	return g
}

func BenchmarkCallCycles(b *testing.B) {
	g := ringGraph(b, 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.CallCycles()
	}
}

func BenchmarkFindCallChain(b *testing.B) {
	g := ringGraph(b, 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.FindCallChain("crate::f0", "crate::f499")
	}
}

func BenchmarkAnalyzeImpact(b *testing.B) {
	g := ringGraph(b, 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.AnalyzeImpact("crate::f250")
	}
}
