package parser

import (
	"fmt"
	"strings"
)

// PathSep separates canonical path segments.
const PathSep = "::"

// Path markers recognized at the start of a use path.
const (
	SegCrate = "crate"
	SegSelf  = "self"
	SegSuper = "super"
)

// Forest is the parsed input for one compilation unit.
type Forest struct {
	Crate   string       `yaml:"crate"`
	Modules []ModuleDecl `yaml:"modules"`
}

// ModuleDecl is one module as delivered by a front-end. Path is canonical
// (rooted at "crate"); Parent is empty only for the root.
type ModuleDecl struct {
	Path     string    `yaml:"path"`
	Parent   string    `yaml:"parent,omitempty"`
	File     string    `yaml:"file,omitempty"`
	Inline   bool      `yaml:"inline,omitempty"`
	Children []string  `yaml:"children,omitempty"` // declared child names, in order
	Items    []Item    `yaml:"items,omitempty"`
	Uses     []UseDecl `yaml:"uses,omitempty"`
	Sites    []UseSite `yaml:"sites,omitempty"`
	Location Location  `yaml:"location,omitempty"`
}

type ItemKind string

const (
	ItemFunction ItemKind = "function"
	ItemOther    ItemKind = "item"
)

type Item struct {
	Name     string   `yaml:"name"`
	Kind     ItemKind `yaml:"kind"`
	Public   bool     `yaml:"public,omitempty"`
	Location Location `yaml:"location,omitempty"`
}

// UseDecl is a single import as written. A `use a::{b, c as d}` statement is
// flattened into one UseDecl per leaf by the front-end.
type UseDecl struct {
	Path     []string `yaml:"path"`
	Alias    string   `yaml:"alias,omitempty"`
	Glob     bool     `yaml:"glob,omitempty"`
	Public   bool     `yaml:"public,omitempty"`
	Location Location `yaml:"location,omitempty"`
}

// LocalName is the key the import binds in the importing module.
func (u UseDecl) LocalName() string {
	if u.Alias != "" {
		return u.Alias
	}
	n := len(u.Path)
	if n == 0 {
		return ""
	}
	if u.Path[n-1] == SegSelf && n > 1 {
		return u.Path[n-2]
	}
	return u.Path[n-1]
}

// Target returns the written path with a trailing `self` removed.
func (u UseDecl) Target() []string {
	n := len(u.Path)
	if n > 1 && u.Path[n-1] == SegSelf {
		return u.Path[:n-1]
	}
	return u.Path
}

func (u UseDecl) String() string {
	s := JoinPath(u.Path...)
	if u.Glob {
		s += PathSep + "*"
	}
	if u.Alias != "" {
		s += " as " + u.Alias
	}
	return s
}

type SiteKind string

const (
	SiteCall SiteKind = "call"
)

// UseSite is a symbol-use site inside an executable body. Enclosing names the
// declaring item relative to the module ("" for module-level code).
type UseSite struct {
	Path      []string `yaml:"path"`
	Enclosing string   `yaml:"enclosing,omitempty"`
	Kind      SiteKind `yaml:"kind"`
	Location  Location `yaml:"location,omitempty"`
}

func (s UseSite) Name() string {
	return JoinPath(s.Path...)
}

type Location struct {
	File   string `yaml:"file,omitempty"`
	Line   int    `yaml:"line,omitempty"`
	Column int    `yaml:"column,omitempty"`
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

func (l Location) IsZero() bool {
	return l == Location{}
}

func JoinPath(segments ...string) string {
	return strings.Join(segments, PathSep)
}

func SplitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSep)
}

// ParentPath returns everything before the last segment, or "" for a single
// segment path.
func ParentPath(path string) string {
	idx := strings.LastIndex(path, PathSep)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// LastSegment returns the final segment of a canonical path.
func LastSegment(path string) string {
	idx := strings.LastIndex(path, PathSep)
	if idx < 0 {
		return path
	}
	return path[idx+len(PathSep):]
}
