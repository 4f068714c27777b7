package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// FileMod is a `mod name;` declaration whose body lives in another file.
type FileMod struct {
	Path     string   // canonical path of the declared module
	Dir      []string // directory segments below the declaring file's module directory
	Location Location
}

// FileResult is everything extracted from one source file: the file's own
// module, any inline modules nested in it, and the out-of-line modules it
// declares.
type FileResult struct {
	Modules  []ModuleDecl
	FileMods []FileMod
}

// RustExtractor turns a Rust syntax tree into module declarations. Only names
// and paths are recorded; method calls and calls through local bindings are
// skipped because resolving them needs type information.
type RustExtractor struct {
	engine  *ExtractorEngine
	modules []*ModuleDecl
	mods    []FileMod
}

func NewRustExtractor() *RustExtractor {
	return &RustExtractor{}
}

func (e *RustExtractor) handlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"mod_item":           e.extractMod,
		"function_item":      e.extractFunction,
		"impl_item":          e.extractImpl,
		"struct_item":        e.extractType,
		"enum_item":          e.extractType,
		"union_item":         e.extractType,
		"trait_item":         e.extractTrait,
		"type_item":          e.extractType,
		"const_item":         e.extractType,
		"static_item":        e.extractType,
		"use_declaration":    e.extractUse,
		"let_declaration":    e.extractLet,
		"parameters":         e.extractLocals,
		"closure_parameters": e.extractLocals,
		"call_expression":    e.extractCall,
		"macro_definition":   skipNode,
		"attribute_item":     skipNode,
	}
}

// Extract walks root, the parsed contents of file, as the body of the module
// at modulePath.
func (e *RustExtractor) Extract(root *sitter.Node, source []byte, file, modulePath string) (*FileResult, error) {
	e.engine = NewExtractorEngine(e.handlers())
	e.modules = nil
	e.mods = nil

	top := &ModuleDecl{
		Path:     modulePath,
		Parent:   ParentPath(modulePath),
		File:     file,
		Location: Location{File: file, Line: 1, Column: 1},
	}
	e.modules = append(e.modules, top)

	ctx := &ExtractionContext{Source: source, File: file, Module: top}
	e.engine.WalkChildren(ctx, root)

	res := &FileResult{FileMods: e.mods}
	for _, m := range e.modules {
		res.Modules = append(res.Modules, *m)
	}
	return res, nil
}

func skipNode(ctx *ExtractionContext, node *sitter.Node) bool {
	return true
}

func isPublic(ctx *ExtractionContext, node *sitter.Node) bool {
	return strings.HasPrefix(ctx.ChildText(node, "visibility_modifier"), "pub")
}

func (e *RustExtractor) extractMod(ctx *ExtractionContext, node *sitter.Node) bool {
	if ctx.InBody() {
		return true
	}
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return true
	}
	path := JoinPath(ctx.Module.Path, name)
	ctx.Module.Children = append(ctx.Module.Children, name)
	childDir := append(append([]string(nil), ctx.Dir...), name)

	body := node.ChildByFieldName("body")
	if body == nil {
		e.mods = append(e.mods, FileMod{Path: path, Dir: ctx.Dir, Location: ctx.Location(node)})
		return true
	}

	child := &ModuleDecl{
		Path:     path,
		Parent:   ctx.Module.Path,
		File:     ctx.File,
		Inline:   true,
		Location: ctx.Location(node),
	}
	e.modules = append(e.modules, child)

	nested := &ExtractionContext{Source: ctx.Source, File: ctx.File, Module: child, Dir: childDir}
	e.engine.WalkChildren(nested, body)
	return true
}

func (e *RustExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return true
	}
	enclosing := ctx.Enclosing
	if !ctx.InBody() {
		ctx.Module.Items = append(ctx.Module.Items, Item{
			Name:     name,
			Kind:     ItemFunction,
			Public:   isPublic(ctx, node),
			Location: ctx.Location(node),
		})
		enclosing = name
	}
	// Nested functions are not declared; their calls count for the outer one.
	e.walkBody(ctx, node, enclosing)
	return true
}

// walkBody walks a function's parameters and body with fresh locals.
func (e *RustExtractor) walkBody(ctx *ExtractionContext, fn *sitter.Node, enclosing string) {
	locals := make(map[string]bool)
	for k := range ctx.Locals {
		locals[k] = true
	}
	body := &ExtractionContext{
		Source:    ctx.Source,
		File:      ctx.File,
		Module:    ctx.Module,
		Dir:       ctx.Dir,
		Enclosing: enclosing,
		Locals:    locals,
	}
	e.engine.Walk(body, fn.ChildByFieldName("parameters"))
	e.engine.Walk(body, fn.ChildByFieldName("body"))
}

func (e *RustExtractor) extractImpl(ctx *ExtractionContext, node *sitter.Node) bool {
	body := node.ChildByFieldName("body")
	if body == nil {
		return true
	}
	typeName := typeBaseName(ctx, node.ChildByFieldName("type"))
	inherent := node.ChildByFieldName("trait") == nil && typeName != "" && !ctx.InBody()

	for i := uint(0); i < body.NamedChildCount(); i++ {
		item := body.NamedChild(i)
		if item.Kind() != "function_item" {
			continue
		}
		name := ctx.Text(item.ChildByFieldName("name"))
		if name == "" {
			continue
		}
		enclosing := ctx.Enclosing
		if inherent {
			method := typeName + PathSep + name
			// Impls of one generic type over different parameters may
			// repeat a method name; the first one declares it.
			if !hasItem(ctx.Module, method) {
				ctx.Module.Items = append(ctx.Module.Items, Item{
					Name:     method,
					Kind:     ItemFunction,
					Public:   isPublic(ctx, item),
					Location: ctx.Location(item),
				})
			}
			enclosing = method
		}
		// Trait impl bodies keep the outer enclosing, which is the module
		// itself at top level.
		e.walkBody(ctx, item, enclosing)
	}
	return true
}

func (e *RustExtractor) extractTrait(ctx *ExtractionContext, node *sitter.Node) bool {
	e.extractType(ctx, node)
	// Default method bodies are linked from the module.
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			if item := body.NamedChild(i); item.Kind() == "function_item" {
				e.walkBody(ctx, item, ctx.Enclosing)
			}
		}
	}
	return true
}

func (e *RustExtractor) extractType(ctx *ExtractionContext, node *sitter.Node) bool {
	if ctx.InBody() {
		return false
	}
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return false
	}
	ctx.Module.Items = append(ctx.Module.Items, Item{
		Name:     name,
		Kind:     ItemOther,
		Public:   isPublic(ctx, node),
		Location: ctx.Location(node),
	})
	// Const and static initializers may contain calls.
	return false
}

func (e *RustExtractor) extractUse(ctx *ExtractionContext, node *sitter.Node) bool {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return true
	}
	public := isPublic(ctx, node) && !ctx.InBody()
	loc := ctx.Location(node)
	for _, u := range flattenUse(ctx, arg, nil) {
		u.Public = public
		u.Location = loc
		ctx.Module.Uses = append(ctx.Module.Uses, u)
	}
	return true
}

// flattenUse expands a use tree into one UseDecl per leaf.
func flattenUse(ctx *ExtractionContext, node *sitter.Node, prefix []string) []UseDecl {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier", "scoped_identifier", "self", "super", "crate":
		segs := pathSegments(ctx, node)
		if segs == nil {
			return nil
		}
		return []UseDecl{{Path: joinSegments(prefix, segs)}}
	case "use_as_clause":
		segs := pathSegments(ctx, node.ChildByFieldName("path"))
		alias := ctx.Text(node.ChildByFieldName("alias"))
		if segs == nil || alias == "" {
			return nil
		}
		if alias == "_" {
			// `use Trait as _` only brings methods into scope.
			return nil
		}
		return []UseDecl{{Path: joinSegments(prefix, segs), Alias: alias}}
	case "use_wildcard":
		var segs []string
		if node.NamedChildCount() > 0 {
			segs = pathSegments(ctx, node.NamedChild(0))
		}
		path := joinSegments(prefix, segs)
		if len(path) == 0 {
			return nil
		}
		return []UseDecl{{Path: path, Glob: true}}
	case "use_list":
		var out []UseDecl
		for i := uint(0); i < node.NamedChildCount(); i++ {
			out = append(out, flattenUse(ctx, node.NamedChild(i), prefix)...)
		}
		return out
	case "scoped_use_list":
		next := prefix
		if p := node.ChildByFieldName("path"); p != nil {
			segs := pathSegments(ctx, p)
			if segs == nil {
				return nil
			}
			next = joinSegments(prefix, segs)
		}
		return flattenUse(ctx, node.ChildByFieldName("list"), next)
	}
	return nil
}

func (e *RustExtractor) extractLet(ctx *ExtractionContext, node *sitter.Node) bool {
	// Bindings become visible after the initializer, but a flow-insensitive
	// set is close enough for call-site filtering.
	ctx.AddLocalIdentifiers(node.ChildByFieldName("pattern"))
	return false
}

func (e *RustExtractor) extractLocals(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		param := node.NamedChild(i)
		if pattern := param.ChildByFieldName("pattern"); pattern != nil {
			ctx.AddLocalIdentifiers(pattern)
			continue
		}
		ctx.AddLocalIdentifiers(param)
	}
	return false
}

func (e *RustExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn != nil && fn.Kind() == "generic_function" {
		fn = fn.ChildByFieldName("function")
	}
	if fn == nil {
		return false
	}
	if fn.Kind() != "identifier" && fn.Kind() != "scoped_identifier" {
		// Method calls, closures in fields and other computed callees.
		return false
	}
	segs := pathSegments(ctx, fn)
	if len(segs) == 0 {
		return false
	}
	if len(segs) == 1 && ctx.Locals[segs[0]] {
		return false
	}
	ctx.Module.Sites = append(ctx.Module.Sites, UseSite{
		Path:      segs,
		Enclosing: ctx.Enclosing,
		Kind:      SiteCall,
		Location:  ctx.Location(node),
	})
	// Arguments may contain further calls.
	return false
}

func hasItem(m *ModuleDecl, name string) bool {
	for _, it := range m.Items {
		if it.Name == name {
			return true
		}
	}
	return false
}
