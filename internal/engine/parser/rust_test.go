package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, src, modulePath string) *FileResult {
	t.Helper()
	l, err := NewCrateLoader(LoaderOptions{})
	require.NoError(t, err)
	res, err := l.ParseSource([]byte(src), "src/lib.rs", modulePath)
	require.NoError(t, err)
	return res
}

func sitePaths(m ModuleDecl) []string {
	out := make([]string, 0, len(m.Sites))
	for _, s := range m.Sites {
		out = append(out, s.Name())
	}
	return out
}

func TestRustExtractor_CrateRoot(t *testing.T) {
	src := `mod my_module;
mod my_other_module;
mod foo;

use my_module::sub_module::sub_function;
use my_other_module::helper::helper_function;
use crate::foo::foo;

use my_module::bar::bar_function as bar;

fn main() {
    sub_function();
    helper_function();
    foo();
    my_module::utils::utility_function();
    bar();
}
`
	res := extract(t, src, SegCrate)
	require.Len(t, res.Modules, 1)
	root := res.Modules[0]

	assert.Equal(t, SegCrate, root.Path)
	assert.Empty(t, root.Parent)
	assert.Equal(t, []string{"my_module", "my_other_module", "foo"}, root.Children)
	require.Len(t, res.FileMods, 3)
	assert.Equal(t, "crate::my_module", res.FileMods[0].Path)
	assert.Empty(t, res.FileMods[0].Dir)

	require.Len(t, root.Items, 1)
	assert.Equal(t, Item{Name: "main", Kind: ItemFunction, Location: Location{File: "src/lib.rs", Line: 11, Column: 1}}, root.Items[0])

	require.Len(t, root.Uses, 4)
	assert.Equal(t, []string{"my_module", "sub_module", "sub_function"}, root.Uses[0].Path)
	assert.Equal(t, []string{"crate", "foo", "foo"}, root.Uses[2].Path)
	assert.Equal(t, "bar", root.Uses[3].Alias)
	assert.Equal(t, "bar", root.Uses[3].LocalName())
	assert.Equal(t, 9, root.Uses[3].Location.Line)

	assert.Equal(t, []string{
		"sub_function",
		"helper_function",
		"foo",
		"my_module::utils::utility_function",
		"bar",
	}, sitePaths(root))
	for _, s := range root.Sites {
		assert.Equal(t, "main", s.Enclosing)
		assert.Equal(t, SiteCall, s.Kind)
	}
}

func TestRustExtractor_UseTrees(t *testing.T) {
	src := `pub use a::{b, c as d, e::*};
use super::x::{self, y};
use std::fmt::Debug as _;
pub(crate) use self::z;
`
	res := extract(t, src, "crate::m")
	m := res.Modules[0]
	assert.Equal(t, "crate", m.Parent)

	var got []string
	for _, u := range m.Uses {
		got = append(got, u.String())
	}
	assert.Equal(t, []string{
		"a::b",
		"a::c as d",
		"a::e::*",
		"super::x::self",
		"super::x::y",
		"self::z",
	}, got)

	assert.True(t, m.Uses[0].Public)
	assert.True(t, m.Uses[2].Glob)
	assert.False(t, m.Uses[3].Public)
	assert.Equal(t, "x", m.Uses[3].LocalName())
	assert.Equal(t, []string{"super", "x"}, m.Uses[3].Target())
	assert.True(t, m.Uses[5].Public, "pub(crate) still counts as a re-export")
}

func TestRustExtractor_InlineModules(t *testing.T) {
	src := `pub mod outer {
    pub fn f() { inner::g(); }
    mod inner {
        pub fn g() {}
        mod deep;
    }
}
`
	res := extract(t, src, SegCrate)
	require.Len(t, res.Modules, 3)

	outer := res.Modules[1]
	assert.Equal(t, "crate::outer", outer.Path)
	assert.Equal(t, "crate", outer.Parent)
	assert.True(t, outer.Inline)
	assert.Equal(t, []string{"inner"}, outer.Children)
	assert.Equal(t, []string{"inner::g"}, sitePaths(outer))

	inner := res.Modules[2]
	assert.Equal(t, "crate::outer::inner", inner.Path)
	assert.Equal(t, []string{"deep"}, inner.Children)

	require.Len(t, res.FileMods, 1)
	assert.Equal(t, "crate::outer::inner::deep", res.FileMods[0].Path)
	assert.Equal(t, []string{"outer", "inner"}, res.FileMods[0].Dir)
}

func TestRustExtractor_ImplsAndTraits(t *testing.T) {
	src := `pub struct S;
trait Tr { fn m(); }
impl S {
    pub fn new() -> S { helper(); S }
}
impl Tr for S {
    fn m() { other(); }
}
fn helper() {}
fn other() {}
`
	res := extract(t, src, SegCrate)
	m := res.Modules[0]

	var names []string
	for _, it := range m.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"S", "Tr", "S::new", "helper", "other"}, names)
	assert.True(t, m.Items[0].Public)
	assert.Equal(t, ItemOther, m.Items[0].Kind)
	assert.Equal(t, ItemFunction, m.Items[2].Kind)

	require.Len(t, m.Sites, 2)
	assert.Equal(t, "S::new", m.Sites[0].Enclosing)
	assert.Equal(t, "helper", m.Sites[0].Name())
	assert.Equal(t, "", m.Sites[1].Enclosing, "trait impl bodies are attributed to the module")
}

func TestRustExtractor_GenericImplsShareMethod(t *testing.T) {
	src := `pub struct Foo<T>(T);
impl Foo<u8> {
    pub fn new() { first(); }
}
impl Foo<u16> {
    fn new() { second(); }
}
fn first() {}
fn second() {}
`
	m := extract(t, src, SegCrate).Modules[0]

	var methods []Item
	for _, it := range m.Items {
		if it.Name == "Foo::new" {
			methods = append(methods, it)
		}
	}
	require.Len(t, methods, 1)
	assert.True(t, methods[0].Public, "the first impl declares the method")
	assert.Equal(t, 3, methods[0].Location.Line)

	for _, site := range m.Sites {
		if site.Name() == "first" || site.Name() == "second" {
			assert.Equal(t, "Foo::new", site.Enclosing)
		}
	}
}

func TestRustExtractor_SkipsLocalsAndMethods(t *testing.T) {
	src := `fn run(cb: fn()) {
    let g = pick;
    cb();
    g();
    real();
    value.method();
    parse::<u8>();
    fn nested() { inside(); }
}
`
	res := extract(t, src, SegCrate)
	m := res.Modules[0]

	assert.Len(t, m.Items, 1, "nested functions are not declared")
	assert.Equal(t, []string{"real", "parse", "inside"}, sitePaths(m))
	for _, s := range m.Sites {
		assert.Equal(t, "run", s.Enclosing)
	}
}

func TestRustExtractor_UseInsideBody(t *testing.T) {
	src := `fn run() {
    use crate::util::go;
    go();
}
`
	res := extract(t, src, SegCrate)
	m := res.Modules[0]
	require.Len(t, m.Uses, 1)
	assert.False(t, m.Uses[0].Public)
	assert.Equal(t, []string{"go"}, sitePaths(m))
}
