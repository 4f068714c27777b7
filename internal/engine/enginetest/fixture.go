// Package enginetest holds in-memory forests shared by engine package tests.
package enginetest

import "semgraph/internal/engine/parser"

func fn(name string) parser.Item {
	return parser.Item{Name: name, Kind: parser.ItemFunction, Public: true}
}

func use(path ...string) parser.UseDecl {
	return parser.UseDecl{Path: path}
}

func call(enclosing string, path ...string) parser.UseSite {
	return parser.UseSite{Path: path, Enclosing: enclosing, Kind: parser.SiteCall}
}

// FixtureForest is the sample crate: a root with `main` that imports from
// three sibling modules and calls one function through a qualified path.
func FixtureForest() parser.Forest {
	return parser.Forest{
		Crate: "fixture",
		Modules: []parser.ModuleDecl{
			{
				Path:     "crate",
				File:     "src/main.rs",
				Children: []string{"my_module", "my_other_module", "foo"},
				Items:    []parser.Item{{Name: "main", Kind: parser.ItemFunction}},
				Uses: []parser.UseDecl{
					use("my_module", "sub_module", "sub_function"),
					use("my_other_module", "helper", "helper_function"),
					use("crate", "foo", "foo"),
					{Path: []string{"my_module", "bar", "bar_function"}, Alias: "bar"},
				},
				Sites: []parser.UseSite{
					call("main", "sub_function"),
					call("main", "helper_function"),
					call("main", "foo"),
					call("main", "my_module", "utils", "utility_function"),
					call("main", "bar"),
				},
			},
			{
				Path:     "crate::my_module",
				Parent:   "crate",
				File:     "src/my_module/mod.rs",
				Children: []string{"sub_module", "bar", "utils"},
			},
			{
				Path:   "crate::my_module::sub_module",
				Parent: "crate::my_module",
				File:   "src/my_module/sub_module.rs",
				Items:  []parser.Item{fn("sub_function")},
			},
			{
				Path:   "crate::my_module::bar",
				Parent: "crate::my_module",
				File:   "src/my_module/bar.rs",
				Items:  []parser.Item{fn("bar_function")},
			},
			{
				Path:   "crate::my_module::utils",
				Parent: "crate::my_module",
				File:   "src/my_module/utils.rs",
				Items:  []parser.Item{fn("utility_function")},
			},
			{
				Path:     "crate::my_other_module",
				Parent:   "crate",
				File:     "src/my_other_module/mod.rs",
				Children: []string{"helper"},
			},
			{
				Path:   "crate::my_other_module::helper",
				Parent: "crate::my_other_module",
				File:   "src/my_other_module/helper.rs",
				Items:  []parser.Item{fn("helper_function")},
			},
			{
				Path:   "crate::foo",
				Parent: "crate",
				File:   "src/foo.rs",
				Items:  []parser.Item{fn("foo")},
			},
		},
	}
}

// FixtureCallTargets lists the call targets expected from `crate::main`, in
// source order.
var FixtureCallTargets = []string{
	"crate::my_module::sub_module::sub_function",
	"crate::my_other_module::helper::helper_function",
	"crate::foo::foo",
	"crate::my_module::utils::utility_function",
	"crate::my_module::bar::bar_function",
}

// Module returns a pointer to the declaration for path, or nil.
func Module(f *parser.Forest, path string) *parser.ModuleDecl {
	for i := range f.Modules {
		if f.Modules[i].Path == path {
			return &f.Modules[i]
		}
	}
	return nil
}

// Use builds a plain import.
func Use(path ...string) parser.UseDecl { return use(path...) }

// Call builds a call site inside enclosing.
func Call(enclosing string, path ...string) parser.UseSite { return call(enclosing, path...) }

// SampleForest exercises every output: an alias edge, a re-export, a pair of
// mutually recursive functions, one unresolved call and one unused import.
func SampleForest() parser.Forest {
	at := func(file string, line int) parser.Location {
		return parser.Location{File: file, Line: line, Column: 1}
	}
	return parser.Forest{
		Crate: "sample",
		Modules: []parser.ModuleDecl{
			{
				Path:     "crate",
				File:     "src/main.rs",
				Children: []string{"a"},
				Items:    []parser.Item{{Name: "main", Kind: parser.ItemFunction, Location: at("src/main.rs", 6)}},
				Uses: []parser.UseDecl{
					{Path: []string{"a", "f"}, Location: at("src/main.rs", 2)},
					{Path: []string{"a", "g"}, Location: at("src/main.rs", 3)},
					{Path: []string{"a", "h"}, Alias: "hh", Location: at("src/main.rs", 4)},
				},
				Sites: []parser.UseSite{
					{Path: []string{"f"}, Enclosing: "main", Kind: parser.SiteCall, Location: at("src/main.rs", 7)},
					{Path: []string{"hh"}, Enclosing: "main", Kind: parser.SiteCall, Location: at("src/main.rs", 8)},
					{Path: []string{"missing"}, Enclosing: "main", Kind: parser.SiteCall, Location: at("src/main.rs", 9)},
				},
			},
			{
				Path:   "crate::a",
				Parent: "crate",
				File:   "src/a.rs",
				Items: []parser.Item{
					{Name: "f", Kind: parser.ItemFunction, Public: true, Location: at("src/a.rs", 3)},
					{Name: "g", Kind: parser.ItemFunction, Public: true, Location: at("src/a.rs", 4)},
					{Name: "h", Kind: parser.ItemFunction, Public: true, Location: at("src/a.rs", 5)},
				},
				Uses: []parser.UseDecl{
					{Path: []string{"self", "f"}, Alias: "ff", Public: true, Location: at("src/a.rs", 1)},
				},
				Sites: []parser.UseSite{
					{Path: []string{"g"}, Enclosing: "f", Kind: parser.SiteCall, Location: at("src/a.rs", 3)},
					{Path: []string{"f"}, Enclosing: "g", Kind: parser.SiteCall, Location: at("src/a.rs", 4)},
				},
			},
		},
	}
}
