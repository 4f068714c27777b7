package resolver

import (
	stderrors "errors"
	"strings"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
)

// errExternal marks a path that leaves the crate through an external alias.
var errExternal = stderrors.New("external path")

// Scope is the ordered lookup chain for one module: its alias table when one
// exists (or its implicit scope), each ancestor's implicit scope nearest
// first, and finally the crate root.
type Scope struct {
	tree     *modtree.Tree
	table    graph.DeclLookup
	module   *modtree.Module
	aliases  *AliasTable
	maxDepth int
}

func NewScope(tree *modtree.Tree, table graph.DeclLookup, module *modtree.Module, aliases *AliasTable, maxDepth int) *Scope {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxAliasDepth
	}
	return &Scope{tree: tree, table: table, module: module, aliases: aliases, maxDepth: maxDepth}
}

// ResolvePath resolves a written path to the canonical path of the
// declaration it finally names, following re-exports.
func (s *Scope) ResolvePath(segments []string) (string, error) {
	return s.resolve(segments, true)
}

// resolve walks segments. Intermediate re-exports are always followed; the
// last one only when followLast is set.
func (s *Scope) resolve(segments []string, followLast bool) (string, error) {
	if len(segments) == 0 {
		return "", errors.New(errors.CodeValidationError, "empty path")
	}

	switch segments[0] {
	case parser.SegCrate:
		return s.walk(modtree.RootPath, segments[1:], followLast)
	case parser.SegSelf, parser.SegSuper:
		start, rest, err := s.relativeStart(segments)
		if err != nil {
			return "", err
		}
		return s.walk(start, rest, followLast)
	}

	candidates, err := s.candidates(segments[0])
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", errors.Newf(errors.CodeNotFound, "%q is not visible from %s", segments[0], s.module.Path)
	}

	var firstErr error
	for _, c := range candidates {
		path, err := s.walk(c, segments[1:], followLast)
		if err == nil {
			return path, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

func (s *Scope) relativeStart(segments []string) (string, []string, error) {
	cur := s.module
	i := 0
	if segments[0] == parser.SegSelf {
		i++
	}
	for ; i < len(segments) && segments[i] == parser.SegSuper; i++ {
		if cur.Parent == "" {
			return "", nil, errors.Newf(errors.CodeNotFound, "`super` goes past the crate root from %s", s.module.Path)
		}
		parent, ok := s.tree.Module(cur.Parent)
		if !ok {
			return "", nil, errors.Newf(errors.CodeNotFound, "missing parent module %q", cur.Parent)
		}
		cur = parent
	}
	return cur.Path, segments[i:], nil
}

// Binds reports whether any scope visible from the module names first.
func (s *Scope) Binds(first string) bool {
	c, err := s.candidates(first)
	return err == nil && len(c) > 0
}

// candidates lists the paths the first segment may name, nearest scope first.
func (s *Scope) candidates(first string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if s.aliases != nil {
		if e, ok := s.aliases.Entry(first); ok {
			if e.External {
				return nil, errExternal
			}
			add(e.Target)
		}
	} else {
		add(s.scopeEntry(s.module, first))
	}

	for _, anc := range s.tree.Ancestors(s.module.Path) {
		add(s.scopeEntry(anc, first))
	}

	root := parser.JoinPath(modtree.RootPath, first)
	if _, ok := s.table.Lookup(root); ok {
		add(root)
	}
	return out, nil
}

// scopeEntry looks first up in m's implicit scope, then among m's own
// re-exports, which are declared but not part of the synthesized scope.
func (s *Scope) scopeEntry(m *modtree.Module, first string) string {
	if target, ok := m.Scope[first]; ok {
		return target
	}
	path := parser.JoinPath(m.Path, first)
	if d, ok := s.table.Lookup(path); ok && d.Kind == graph.KindReexport {
		return path
	}
	return ""
}

func (s *Scope) walk(start string, rest []string, followLast bool) (string, error) {
	cur := start
	if len(rest) > 0 || followLast {
		var err error
		if cur, err = s.follow(cur); err != nil {
			return "", err
		}
	}
	for i, seg := range rest {
		if seg == parser.SegSelf || seg == parser.SegSuper || seg == parser.SegCrate {
			return "", errors.Newf(errors.CodeValidationError, "%q is only allowed at the start of a path", seg)
		}
		next := parser.JoinPath(cur, seg)
		if _, ok := s.table.Lookup(next); !ok {
			return "", errors.Newf(errors.CodeNotFound, "%q has no member %q", cur, seg)
		}
		cur = next
		if i < len(rest)-1 || followLast {
			var err error
			if cur, err = s.follow(cur); err != nil {
				return "", err
			}
		}
	}
	return cur, nil
}

func (s *Scope) follow(path string) (string, error) {
	d, err := graph.FollowAlias(s.table, path, s.maxDepth)
	if err != nil {
		return "", err
	}
	return d.Path, nil
}

// blockedOn reports the re-export an error is waiting on, if any.
func blockedOn(err error) (string, bool) {
	if !errors.IsCode(err, errors.CodeUnresolvedReference) {
		return "", false
	}
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		return "", false
	}
	sym, ok := de.Context[errors.CtxSymbol].(string)
	return sym, ok && sym != ""
}

func isExternalPath(segments []string, externs map[string]bool) bool {
	return len(segments) > 0 && externs[strings.TrimPrefix(segments[0], "::")]
}

func asDomain(err error, target **errors.DomainError) bool {
	return stderrors.As(err, target)
}
