// Package source opens modules straight from source files: a tree-sitter
// parse of a Java or Go file yields the same type facts a descriptor would,
// so uncompiled code can be listed, inspected and diffed like any other
// module.
package source

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeHandler processes one syntax node. Returns true when the handler has
// consumed the node's children and the walker should not descend.
type nodeHandler func(ctx *walkContext, node *sitter.Node) bool

// walkContext carries the source bytes and the facts collected so far.
type walkContext struct {
	source    []byte
	types     []*typeFact
	namespace string
}

func (c *walkContext) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.source[node.StartByte():node.EndByte()])
}

func (c *walkContext) childText(node *sitter.Node, kind string) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return c.text(child)
		}
	}
	return ""
}

func (c *walkContext) fieldText(node *sitter.Node, field string) string {
	return c.text(node.ChildByFieldName(field))
}

// walker dispatches node handlers by node kind, depth first.
type walker struct {
	handlers map[string]nodeHandler
}

func newWalker(handlers map[string]nodeHandler) *walker {
	return &walker{handlers: handlers}
}

func (w *walker) walk(ctx *walkContext, node *sitter.Node) {
	if node == nil {
		return
	}
	stop := false
	if handler, ok := w.handlers[node.Kind()]; ok {
		stop = handler(ctx, node)
	}
	if !stop {
		for i := uint(0); i < node.ChildCount(); i++ {
			w.walk(ctx, node.Child(i))
		}
	}
}
