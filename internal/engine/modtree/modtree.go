// Package modtree assembles the per-crate module hierarchy from a parsed forest.
package modtree

import (
	"log/slog"
	"sort"
	"strings"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/parser"
)

// RootPath is the canonical path of every crate root.
const RootPath = parser.SegCrate

// Module is an immutable node of the module tree.
type Module struct {
	Path        string
	Name        string
	Parent      string
	Children    []string // canonical paths, declaration order
	Items       []parser.Item
	Imports     []parser.UseDecl
	Sites       []parser.UseSite
	File        string
	Inline      bool
	Placeholder bool
	Location    parser.Location

	// Scope is the synthesized implicit visibility of the module: every item
	// and child module reachable by bare name without a `use`.
	Scope map[string]string
}

// Depth returns the number of segments below the crate root.
func (m *Module) Depth() int {
	return strings.Count(m.Path, parser.PathSep)
}

type Tree struct {
	crate   string
	modules map[string]*Module
	order   []string
}

func (t *Tree) Crate() string {
	return t.crate
}

func (t *Tree) Root() *Module {
	return t.modules[RootPath]
}

func (t *Tree) Module(path string) (*Module, bool) {
	m, ok := t.modules[path]
	return m, ok
}

func (t *Tree) Len() int {
	return len(t.order)
}

// Paths returns module paths in pre-order.
func (t *Tree) Paths() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Walk visits modules in pre-order, stopping early when fn returns false.
func (t *Tree) Walk(fn func(*Module) bool) {
	for _, p := range t.order {
		if !fn(t.modules[p]) {
			return
		}
	}
}

// Ancestors returns the parent chain of path, nearest first, ending at the root.
func (t *Tree) Ancestors(path string) []*Module {
	var out []*Module
	m, ok := t.modules[path]
	if !ok {
		return nil
	}
	for m.Parent != "" {
		parent, ok := t.modules[m.Parent]
		if !ok {
			break
		}
		out = append(out, parent)
		m = parent
	}
	return out
}

// Build validates the forest and produces the module tree. Structural problems
// abort the build and no partial tree is returned.
func Build(forest parser.Forest) (*Tree, error) {
	modules := make(map[string]*Module, len(forest.Modules))
	inputOrder := make([]string, 0, len(forest.Modules))

	for i := range forest.Modules {
		decl := &forest.Modules[i]
		path := strings.TrimSpace(decl.Path)
		if path == "" {
			return nil, errors.Newf(errors.CodeValidationError, "module #%d has an empty path", i)
		}
		if _, exists := modules[path]; exists {
			err := errors.Newf(errors.CodeDuplicateModulePath, "module path %q is declared more than once", path)
			return nil, errors.AddContext(err, errors.CtxPath, decl.File)
		}
		if err := validatePath(path, decl.Parent); err != nil {
			return nil, err
		}
		modules[path] = &Module{
			Path:     path,
			Name:     parser.LastSegment(path),
			Parent:   decl.Parent,
			Items:    append([]parser.Item(nil), decl.Items...),
			Imports:  append([]parser.UseDecl(nil), decl.Uses...),
			Sites:    append([]parser.UseSite(nil), decl.Sites...),
			File:     decl.File,
			Inline:   decl.Inline,
			Location: decl.Location,
		}
		inputOrder = append(inputOrder, path)
	}

	if _, ok := modules[RootPath]; !ok {
		return nil, errors.New(errors.CodeValidationError, "forest has no crate root module")
	}

	declared := make(map[string][]string, len(forest.Modules))
	for _, decl := range forest.Modules {
		declared[decl.Path] = decl.Children
	}

	// Declared children without a module body become placeholders so the
	// `mod x;` declaration stays addressable.
	for _, path := range inputOrder {
		for _, name := range declared[path] {
			child := parser.JoinPath(path, name)
			if _, ok := modules[child]; ok {
				continue
			}
			slog.Debug("module declared without body", "module", child)
			modules[child] = &Module{
				Path:        child,
				Name:        name,
				Parent:      path,
				Placeholder: true,
				Location:    modules[path].Location,
			}
			inputOrder = append(inputOrder, child)
		}
	}

	for _, path := range inputOrder {
		m := modules[path]
		if m.Parent == "" {
			continue
		}
		if _, ok := modules[m.Parent]; !ok {
			return nil, errors.Newf(errors.CodeValidationError, "module %q names missing parent %q", path, m.Parent)
		}
	}

	linkChildren(modules, declared, inputOrder)

	t := &Tree{
		crate:   forest.Crate,
		modules: modules,
		order:   make([]string, 0, len(modules)),
	}
	t.order = preorder(modules, RootPath, t.order)
	if len(t.order) != len(modules) {
		// Parent links follow path nesting, so this indicates a builder bug.
		return nil, errors.New(errors.CodeInternal, "module tree is not connected")
	}

	for _, path := range t.order {
		synthesizeScope(modules[path], modules)
	}
	return t, nil
}

func validatePath(path, parent string) error {
	if parent == "" {
		if path != RootPath {
			return errors.Newf(errors.CodeValidationError, "module %q has no parent but is not the crate root", path)
		}
		return nil
	}
	if path == RootPath {
		return errors.Newf(errors.CodeValidationError, "crate root must not declare parent %q", parent)
	}
	if parser.ParentPath(path) != parent {
		return errors.Newf(errors.CodeValidationError, "module %q does not nest under declared parent %q", path, parent)
	}
	name := parser.LastSegment(path)
	if name == "" || name == parser.SegSelf || name == parser.SegSuper || name == parser.SegCrate {
		return errors.Newf(errors.CodeValidationError, "module %q has an invalid final segment", path)
	}
	return nil
}

func linkChildren(modules map[string]*Module, declared map[string][]string, inputOrder []string) {
	seen := make(map[string]bool, len(modules))
	for _, path := range inputOrder {
		parent := modules[path]
		for _, name := range declared[path] {
			child := parser.JoinPath(path, name)
			if seen[child] {
				continue
			}
			seen[child] = true
			parent.Children = append(parent.Children, child)
		}
	}
	for _, path := range inputOrder {
		m := modules[path]
		if m.Parent == "" || seen[path] {
			continue
		}
		seen[path] = true
		modules[m.Parent].Children = append(modules[m.Parent].Children, path)
	}
}

func preorder(modules map[string]*Module, path string, out []string) []string {
	out = append(out, path)
	for _, child := range modules[path].Children {
		out = preorder(modules, child, out)
	}
	return out
}

func synthesizeScope(m *Module, modules map[string]*Module) {
	m.Scope = make(map[string]string, len(m.Items)+len(m.Children))
	for _, item := range m.Items {
		// Inherent methods are declared as `Type::method` and are only
		// reachable through their type.
		if strings.Contains(item.Name, parser.PathSep) {
			continue
		}
		m.Scope[item.Name] = parser.JoinPath(m.Path, item.Name)
	}
	for _, child := range m.Children {
		m.Scope[modules[child].Name] = child
	}
}

// ScopeNames returns the module's implicit names in sorted order.
func (m *Module) ScopeNames() []string {
	names := make([]string, 0, len(m.Scope))
	for name := range m.Scope {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
