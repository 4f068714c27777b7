package graph

import (
	"encoding/hex"
	"strconv"

	"semgraph/internal/core/errors"

	"github.com/zeebo/xxh3"
)

// Meta carries build metadata stored alongside the frozen graph.
type Meta struct {
	BuildID       string
	Crate         string
	ExternalSites int
	Unused        []UnusedImport
}

type Stats struct {
	Modules       int `yaml:"modules"`
	Functions     int `yaml:"functions"`
	Items         int `yaml:"items"`
	Reexports     int `yaml:"reexports"`
	CallEdges     int `yaml:"call_edges"`
	AliasEdges    int `yaml:"alias_edges"`
	ReexportEdges int `yaml:"reexport_edges"`
	Diagnostics   int `yaml:"diagnostics"`
	ExternalSites int `yaml:"external_sites"`
	UnusedImports int `yaml:"unused_imports"`
}

// Graph is the frozen result of one build. It has no mutation API and is safe
// for concurrent readers.
type Graph struct {
	meta        Meta
	decls       map[string]Declaration
	order       []string
	edges       []Edge
	outgoing    map[string][]int
	incoming    map[string][]int
	diagnostics []Diagnostic
	stats       Stats
	fingerprint uint64
}

// Freeze freezes table and assembles the graph. Every edge endpoint must be a
// declaration in table.
func Freeze(table *DeclTable, edges []Edge, diags []Diagnostic, meta Meta) (*Graph, error) {
	table.Freeze()
	decls := table.snapshot()

	g := &Graph{
		meta:        meta,
		decls:       make(map[string]Declaration, len(decls)),
		order:       make([]string, 0, len(decls)),
		edges:       append([]Edge(nil), edges...),
		outgoing:    make(map[string][]int),
		incoming:    make(map[string][]int),
		diagnostics: append([]Diagnostic(nil), diags...),
	}
	for _, d := range decls {
		g.decls[d.Path] = d
		g.order = append(g.order, d.Path)
		switch d.Kind {
		case KindModule:
			g.stats.Modules++
		case KindFunction:
			g.stats.Functions++
		case KindItem:
			g.stats.Items++
		case KindReexport:
			g.stats.Reexports++
		}
	}

	for i, e := range g.edges {
		if _, ok := g.decls[e.From]; !ok {
			return nil, errors.Newf(errors.CodeInternal, "edge %s has unknown source", e)
		}
		if _, ok := g.decls[e.To]; !ok {
			return nil, errors.Newf(errors.CodeInternal, "edge %s has unknown target", e)
		}
		g.outgoing[e.From] = append(g.outgoing[e.From], i)
		g.incoming[e.To] = append(g.incoming[e.To], i)
		switch e.Kind {
		case EdgeCall:
			g.stats.CallEdges++
		case EdgeAlias:
			g.stats.AliasEdges++
		case EdgeReexport:
			g.stats.ReexportEdges++
		}
	}
	g.stats.Diagnostics = len(g.diagnostics)
	g.stats.ExternalSites = meta.ExternalSites
	g.stats.UnusedImports = len(meta.Unused)
	g.meta.Unused = append([]UnusedImport(nil), meta.Unused...)
	g.fingerprint = g.computeFingerprint()
	return g, nil
}

func (g *Graph) Lookup(path string) (Declaration, bool) {
	d, ok := g.decls[path]
	return d, ok
}

// Outgoing returns edges leaving path in build order.
func (g *Graph) Outgoing(path string) []Edge {
	return g.pick(g.outgoing[path])
}

// Incoming returns edges arriving at path in build order.
func (g *Graph) Incoming(path string) []Edge {
	return g.pick(g.incoming[path])
}

func (g *Graph) pick(idx []int) []Edge {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Edge, len(idx))
	for i, n := range idx {
		out[i] = g.edges[n]
	}
	return out
}

// Declarations returns every declaration sorted by path.
func (g *Graph) Declarations() []Declaration {
	out := make([]Declaration, len(g.order))
	for i, p := range g.order {
		out[i] = g.decls[p]
	}
	return out
}

func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), g.diagnostics...)
}

func (g *Graph) UnusedImports() []UnusedImport {
	return append([]UnusedImport(nil), g.meta.Unused...)
}

func (g *Graph) Stats() Stats {
	return g.stats
}

func (g *Graph) BuildID() string {
	return g.meta.BuildID
}

func (g *Graph) Crate() string {
	return g.meta.Crate
}

// Fingerprint hashes the declaration set and the ordered edge list. Build IDs
// and diagnostics do not contribute, so identical inputs always agree.
func (g *Graph) Fingerprint() uint64 {
	return g.fingerprint
}

func (g *Graph) FingerprintHex() string {
	var buf [8]byte
	v := g.fingerprint
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return hex.EncodeToString(buf[:])
}

func (g *Graph) computeFingerprint() uint64 {
	h := xxh3.New()
	for _, p := range g.order {
		d := g.decls[p]
		_, _ = h.WriteString(d.Path)
		_, _ = h.WriteString("\x00" + string(d.Kind) + "\x00" + d.Target + "\n")
	}
	for _, e := range g.edges {
		_, _ = h.WriteString(e.From + "\x00" + e.To + "\x00" + string(e.Kind) + "\x00")
		_, _ = h.WriteString(e.Location.File + ":" + strconv.Itoa(e.Location.Line) + ":" + strconv.Itoa(e.Location.Column) + "\n")
	}
	return h.Sum64()
}
