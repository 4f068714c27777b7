package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for the extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the state of one file walk. Handlers that descend
// into a nested module or function body swap Module, Enclosing and Locals for
// the duration of the nested walk.
type ExtractionContext struct {
	Source []byte
	File   string
	Module *ModuleDecl
	// Dir holds the directory segments below the file's module directory
	// where `mod x;` declarations of the current module are looked up.
	Dir []string
	// Enclosing names the current function relative to Module; empty at
	// module level.
	Enclosing string
	// Locals holds bindings of the current body that shadow module names.
	Locals map[string]bool

	ProcessedChildren bool // If true, the walker will skip this node's children
}

func (c *ExtractionContext) ResetProcessedChildren() {
	c.ProcessedChildren = false
}

func (c *ExtractionContext) InBody() bool {
	return c.Enclosing != ""
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	ctx.ResetProcessedChildren()
	stop := false
	if handler, ok := e.handlers[node.Kind()]; ok {
		stop = handler(ctx, node)
	}

	if !stop && !ctx.ProcessedChildren {
		for i := uint(0); i < node.ChildCount(); i++ {
			e.Walk(ctx, node.Child(i))
		}
	}
}

// WalkChildren walks every child of node without dispatching node itself.
func (e *ExtractorEngine) WalkChildren(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Location(node *sitter.Node) Location {
	return Location{
		File:   c.File,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (c *ExtractionContext) ChildText(node *sitter.Node, kind string) string {
	if node == nil {
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return c.Text(child)
		}
	}
	return ""
}

// AddLocalIdentifiers records every identifier bound by a pattern.
func (c *ExtractionContext) AddLocalIdentifiers(node *sitter.Node) {
	if node == nil || c.Locals == nil {
		return
	}
	if node.Kind() == "identifier" {
		c.Locals[c.Text(node)] = true
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		c.AddLocalIdentifiers(node.Child(i))
	}
}
