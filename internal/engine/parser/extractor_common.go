package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// pathSegments returns the segments of a simple path node, or nil when the
// node is not a plain path (generic arguments, qualified `<T as Trait>`
// paths and similar).
func pathSegments(ctx *ExtractionContext, node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier", "type_identifier", "self", "super", "crate":
		name := strings.TrimSpace(ctx.Text(node))
		if name == "" {
			return nil
		}
		return []string{name}
	case "scoped_identifier", "scoped_type_identifier":
		var segs []string
		if p := node.ChildByFieldName("path"); p != nil {
			segs = pathSegments(ctx, p)
			if segs == nil {
				return nil
			}
		}
		name := strings.TrimSpace(ctx.Text(node.ChildByFieldName("name")))
		if name == "" {
			return nil
		}
		return append(segs, name)
	}
	return nil
}

// typeBaseName strips generic arguments and paths from an impl target type.
func typeBaseName(ctx *ExtractionContext, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "type_identifier":
		return ctx.Text(node)
	case "generic_type":
		return typeBaseName(ctx, node.ChildByFieldName("type"))
	case "scoped_type_identifier":
		// `impl other::Type` adds methods to a type declared elsewhere.
		return ""
	}
	return ""
}

func joinSegments(prefix, segs []string) []string {
	out := make([]string, 0, len(prefix)+len(segs))
	out = append(out, prefix...)
	return append(out, segs...)
}
