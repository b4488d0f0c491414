// Package dast defines the node set of the decompiled-source AST the Block
// Simulator (lang/simulate) builds from a recovered CFG (§3 "AST nodes"). It
// is a tagged statement-or-expression variant set, modeled on the shape of
// the teacher's parser AST (lang/ast): a shared Node interface, Expr/Stmt
// capability markers, and a Visitor/Walk pair. Unlike a parser AST, these
// nodes are synthesized rather than scanned from text, so there is no
// source position to carry; Addr reports the originating instruction's
// address instead, for diagnostics and golden-text line anchoring.
package dast

import "fmt"

// Node represents any node in the decompiled AST.
type Node interface {
	// Every Node implements fmt.Formatter so a tree can be printed for
	// debugging without a full printer.Printer. Only 'v' and 's' are
	// supported, matching lang/ast's convention.
	fmt.Formatter

	// Addr reports the bytecode address of the instruction this node was
	// built from (the entry instruction for a composite node).
	Addr() int

	// Walk visits this node's children to implement the Visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression: something that leaves exactly one value on
// the simulated stack.
type Expr interface {
	Node
	expr()
}

// Stmt represents a statement.
type Stmt interface {
	Node

	// BlockEnding reports whether this statement may only appear last in a
	// block (return, exit, break, continue).
	BlockEnding() bool
}

func format(f fmt.State, verb rune, label string) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(dast)", verb)
		return
	}
	fmt.Fprint(f, label)
}
