package graph

import (
	"sort"
	"sync"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/parser"
)

type DeclKind string

const (
	KindModule   DeclKind = "module"
	KindFunction DeclKind = "function"
	KindItem     DeclKind = "item"
	KindReexport DeclKind = "reexport"
)

// Declaration is one addressable symbol. A KindReexport declaration points at
// Target once the re-export pass has resolved it; every other kind is direct.
type Declaration struct {
	Path     string          `yaml:"path"`
	Name     string          `yaml:"name"`
	Kind     DeclKind        `yaml:"kind"`
	Module   string          `yaml:"module,omitempty"` // containing module, "" for the root
	Target   string          `yaml:"target,omitempty"`
	Location parser.Location `yaml:"location,omitempty"`
}

func (d Declaration) IsAlias() bool {
	return d.Kind == KindReexport
}

// DeclLookup is satisfied by both the build-time table and the frozen graph.
type DeclLookup interface {
	Lookup(path string) (Declaration, bool)
}

// DeclTable maps canonical paths to declarations. Inserts are safe from
// multiple goroutines; after Freeze the table only serves reads.
type DeclTable struct {
	mu       sync.RWMutex
	decls    map[string]*Declaration
	children map[string][]string // module path -> declaration paths it contains
	frozen   bool
}

func NewDeclTable() *DeclTable {
	return &DeclTable{
		decls:    make(map[string]*Declaration),
		children: make(map[string][]string),
	}
}

// Insert adds d or fails with CodeDuplicateDeclaration when its path is taken.
func (t *DeclTable) Insert(d Declaration) error {
	if d.Path == "" {
		return errors.New(errors.CodeValidationError, "declaration has an empty path")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.Newf(errors.CodeConflict, "declaration table is frozen, cannot insert %q", d.Path)
	}
	if existing, ok := t.decls[d.Path]; ok {
		err := errors.Newf(errors.CodeDuplicateDeclaration, "%q is declared as both %s and %s", d.Path, existing.Kind, d.Kind)
		return errors.AddContext(err, errors.CtxModule, d.Module)
	}
	rec := d
	t.decls[d.Path] = &rec
	if d.Module != "" {
		t.children[d.Module] = append(t.children[d.Module], d.Path)
	}
	return nil
}

// SetTarget records the resolved target of a re-export. It is only valid
// before Freeze.
func (t *DeclTable) SetTarget(path, target string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.Newf(errors.CodeConflict, "declaration table is frozen, cannot retarget %q", path)
	}
	d, ok := t.decls[path]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "no declaration at %q", path)
	}
	if d.Kind != KindReexport {
		return errors.Newf(errors.CodeValidationError, "%q is a %s, not a re-export", path, d.Kind)
	}
	d.Target = target
	return nil
}

func (t *DeclTable) Lookup(path string) (Declaration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.decls[path]
	if !ok {
		return Declaration{}, false
	}
	return *d, true
}

// ChildrenOf returns the declarations directly contained in module path,
// sorted by path.
func (t *DeclTable) ChildrenOf(path string) []Declaration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := append([]string(nil), t.children[path]...)
	sort.Strings(paths)
	out := make([]Declaration, 0, len(paths))
	for _, p := range paths {
		out = append(out, *t.decls[p])
	}
	return out
}

// Reexports returns every re-export declaration sorted by path.
func (t *DeclTable) Reexports() []Declaration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Declaration
	for _, d := range t.decls {
		if d.Kind == KindReexport {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (t *DeclTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.decls)
}

func (t *DeclTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

func (t *DeclTable) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// snapshot copies every declaration sorted by path.
func (t *DeclTable) snapshot() []Declaration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Declaration, 0, len(t.decls))
	for _, d := range t.decls {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FollowAlias walks re-export targets from path to the first direct
// declaration. An unresolved re-export reports CodeUnresolvedReference and a
// chain longer than maxDepth reports CodeCyclicAlias.
func FollowAlias(l DeclLookup, path string, maxDepth int) (Declaration, error) {
	d, ok := l.Lookup(path)
	if !ok {
		return Declaration{}, errors.Newf(errors.CodeNotFound, "no declaration at %q", path)
	}
	for hops := 0; d.Kind == KindReexport; hops++ {
		if hops >= maxDepth {
			return Declaration{}, errors.Newf(errors.CodeCyclicAlias, "re-export chain from %q exceeds %d hops", path, maxDepth)
		}
		if d.Target == "" {
			err := errors.Newf(errors.CodeUnresolvedReference, "re-export %q has no resolved target", d.Path)
			return Declaration{}, errors.AddContext(err, errors.CtxSymbol, d.Path)
		}
		next, ok := l.Lookup(d.Target)
		if !ok {
			return Declaration{}, errors.Newf(errors.CodeNotFound, "re-export %q points at missing %q", d.Path, d.Target)
		}
		d = next
	}
	return d, nil
}
