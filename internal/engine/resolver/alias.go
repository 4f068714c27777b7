package resolver

import (
	"sort"
	"strings"

	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
)

// Origin records how a name entered a module's alias table. Higher origins
// replace lower ones.
type Origin int

const (
	OriginGlob Origin = iota + 1
	OriginScope
	OriginImport
)

func (o Origin) String() string {
	switch o {
	case OriginGlob:
		return "glob"
	case OriginScope:
		return "scope"
	case OriginImport:
		return "import"
	default:
		return "unknown"
	}
}

type AliasEntry struct {
	Name   string
	Target string // canonical path, or the written path when External
	Origin Origin
	// External entries name something outside the crate, such as
	// `use std::fmt`. Sites through them are counted but never linked.
	External bool
	Location parser.Location
}

// Binding is one resolved import, kept in declaration order so the linker can
// emit alias and re-export edges.
type Binding struct {
	Use    parser.UseDecl
	Target string
}

// AliasTable maps the short names usable inside one module to canonical paths.
// It is written by the import pass and read-only afterwards.
type AliasTable struct {
	module   string
	entries  map[string]AliasEntry
	bindings []Binding
}

// NewAliasTable seeds the table with the module's implicit scope.
func NewAliasTable(m *modtree.Module) *AliasTable {
	at := &AliasTable{
		module:  m.Path,
		entries: make(map[string]AliasEntry, len(m.Scope)+len(m.Imports)),
	}
	for name, target := range m.Scope {
		at.entries[name] = AliasEntry{Name: name, Target: target, Origin: OriginScope}
	}
	return at
}

func (a *AliasTable) Module() string {
	return a.module
}

// bind stores e unless a higher-origin entry already owns the name. Imports
// always win, so a later `use` replaces an earlier one.
func (a *AliasTable) bind(e AliasEntry) bool {
	if e.Name == "" || strings.Contains(e.Name, parser.PathSep) {
		return false
	}
	if cur, ok := a.entries[e.Name]; ok && cur.Origin > e.Origin {
		return false
	}
	if cur, ok := a.entries[e.Name]; ok && cur.Origin == e.Origin && e.Origin != OriginImport {
		return false
	}
	a.entries[e.Name] = e
	return true
}

func (a *AliasTable) Lookup(name string) (string, bool) {
	e, ok := a.entries[name]
	if !ok || e.External {
		return "", false
	}
	return e.Target, true
}

func (a *AliasTable) Entry(name string) (AliasEntry, bool) {
	e, ok := a.entries[name]
	return e, ok
}

func (a *AliasTable) Bindings() []Binding {
	return append([]Binding(nil), a.bindings...)
}

func (a *AliasTable) Len() int {
	return len(a.entries)
}

// Names returns the bound names in sorted order.
func (a *AliasTable) Names() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
