package printer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
)

// Printer renders a lang/dast tree as source text, the way the teacher's
// ast.Printer renders a parsed tree — except where that one dumps an
// indented label per node (adequate for a debug trace of a tree with real
// source positions), this one must produce text a human reads as the
// recovered program, so it recurses on concrete statement/expression types
// instead of walking the generic Visitor interface.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// Config controls blank-line and semicolon formatting policy.
	Config Config
}

// Print renders root, which must be a *dast.BlockStmt (the AST Builder's
// only top-level output shape; see lang/decompile.Result.AST).
func (p *Printer) Print(root dast.Node) error {
	block, ok := root.(*dast.BlockStmt)
	if !ok {
		return errors.New("printer: root node must be a *dast.BlockStmt")
	}
	if p.Output == nil {
		return errors.New("printer: Output is nil")
	}

	pp := &printer{w: p.Output, cfg: p.Config}
	pp.stmts(block.Stmts, 0)
	return pp.err
}

type printer struct {
	w   io.Writer
	cfg Config
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func indent(depth int) string { return strings.Repeat("    ", depth) }

func isBranchStmt(s dast.Stmt) bool {
	switch s.(type) {
	case *dast.IfStmt, *dast.WhileStmt, *dast.DoUntilStmt, *dast.SwitchStmt:
		return true
	default:
		return false
	}
}

func (p *printer) stmts(list []dast.Stmt, depth int) {
	for i, s := range list {
		if p.cfg.EmptyLineAroundBranchStatements && isBranchStmt(s) && i > 0 {
			p.printf("\n")
		}
		p.stmt(s, depth)
		if p.cfg.EmptyLineAroundBranchStatements && isBranchStmt(s) && i < len(list)-1 {
			p.printf("\n")
		}
	}
}

func (p *printer) block(b *dast.BlockStmt, depth int) {
	p.printf(" {\n")
	if b != nil {
		p.stmts(b.Stmts, depth+1)
	}
	p.printf("%s}", indent(depth))
}

func (p *printer) stmt(s dast.Stmt, depth int) {
	if p.err != nil {
		return
	}

	switch n := s.(type) {
	case *dast.BlockStmt:
		p.printf("%s", indent(depth))
		p.block(n, depth)
		p.printf("\n")

	case *dast.AssignStmt:
		p.printf("%s%s = %s%s\n", indent(depth), p.expr(n.Left), p.expr(n.Right), p.cfg.terminator())

	case *dast.ReturnStmt:
		if n.Value != nil {
			p.printf("%sreturn %s%s\n", indent(depth), p.expr(n.Value), p.cfg.terminator())
		} else {
			p.printf("%sreturn%s\n", indent(depth), p.cfg.terminator())
		}

	case *dast.ExitStmt:
		p.printf("%sexit%s\n", indent(depth), p.cfg.terminator())

	case *dast.ExprStmt:
		p.printf("%s%s%s\n", indent(depth), p.expr(n.Expr), p.cfg.terminator())

	case *dast.BreakStmt:
		p.printf("%sbreak%s\n", indent(depth), p.cfg.terminator())

	case *dast.ContinueStmt:
		p.printf("%scontinue%s\n", indent(depth), p.cfg.terminator())

	case *dast.IfStmt:
		p.ifStmt(n, depth, true)

	case *dast.WhileStmt:
		p.printf("%swhile (%s)", indent(depth), p.expr(n.Cond))
		p.block(n.Body, depth)
		p.printf("\n")

	case *dast.DoUntilStmt:
		p.printf("%sdo", indent(depth))
		p.block(n.Body, depth)
		p.printf(" until (%s)%s\n", p.expr(n.Cond), p.cfg.terminator())

	case *dast.RepeatStmt:
		p.printf("%srepeat (%s)", indent(depth), p.expr(n.Count))
		p.block(n.Body, depth)
		p.printf("\n")

	case *dast.WithStmt:
		p.printf("%swith (%s)", indent(depth), p.expr(n.Target))
		p.block(n.Body, depth)
		p.printf("\n")

	case *dast.SwitchStmt:
		p.switchStmt(n, depth)

	case *dast.TryCatchFinallyStmt:
		p.printf("%stry", indent(depth))
		p.block(n.Try, depth)
		if n.Catch != nil {
			p.printf(" catch")
			p.block(n.Catch, depth)
		}
		p.printf(" finally")
		p.block(n.Finally, depth)
		p.printf("\n")

	default:
		p.err = fmt.Errorf("printer: unsupported statement type %T", s)
	}
}

// ifStmt prints an if/else chain, folding an Else block that contains
// exactly one IfStmt into "else if (...)" instead of nesting another level
// of braces, matching how the compiled else-if idiom reads in source.
func (p *printer) ifStmt(n *dast.IfStmt, depth int, leading bool) {
	if leading {
		p.printf("%s", indent(depth))
	}
	p.printf("if (%s)", p.expr(n.Cond))
	p.block(n.Then, depth)

	switch {
	case n.Else == nil:
		p.printf("\n")
	case len(n.Else.Stmts) == 1:
		if elseIf, ok := n.Else.Stmts[0].(*dast.IfStmt); ok {
			p.printf(" else ")
			p.ifStmt(elseIf, depth, false)
			return
		}
		fallthrough
	default:
		p.printf(" else")
		p.block(n.Else, depth)
		p.printf("\n")
	}
}

func (p *printer) switchStmt(n *dast.SwitchStmt, depth int) {
	p.printf("%sswitch (%s) {\n", indent(depth), p.expr(n.Subject))
	for i, c := range n.Cases {
		if p.cfg.EmptyLineBeforeSwitchCases && i > 0 {
			p.printf("\n")
		}

		if c.IsDefault {
			p.printf("%sdefault:\n", indent(depth+1))
		} else {
			for _, v := range c.Values {
				p.printf("%scase %s:\n", indent(depth+1), p.expr(v))
			}
		}
		if c.Body != nil {
			p.stmts(c.Body.Stmts, depth+2)
		}

		if p.cfg.EmptyLineAfterSwitchCases && i < len(n.Cases)-1 {
			p.printf("\n")
		}
	}
	p.printf("%s}\n", indent(depth))
}

// expr renders e inline; unlike statements, expressions never span lines.
func (p *printer) expr(e dast.Expr) string {
	if p.err != nil || e == nil {
		return ""
	}

	switch n := e.(type) {
	case *dast.IntExpr:
		return strconv.FormatInt(n.Value, 10)
	case *dast.DoubleExpr:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *dast.StringExpr:
		return strconv.Quote(n.Value)
	case *dast.BoolExpr:
		return strconv.FormatBool(n.Value)
	case *dast.VariableExpr:
		return p.variableExpr(n)
	case *dast.BinaryExpr:
		return p.binaryExpr(n)
	case *dast.UnaryExpr:
		return n.Instr.Opcode.UnaryKind() + p.expr(n.Operand)
	case *dast.CallExpr:
		return p.expr(n.Fn) + "(" + p.exprList(n.Args) + ")"
	case *dast.FuncRefExpr:
		if n.Ref != nil {
			return n.Ref.Name
		}
		return "<func>"
	case *dast.NewObjectExpr:
		return "new " + p.expr(n.Fn) + "(" + p.exprList(n.Args) + ")"
	case *dast.ShortCircuitExpr:
		return p.shortCircuitExpr(n)
	case *dast.InstanceTypeExpr:
		return n.Type.String()
	default:
		p.err = fmt.Errorf("printer: unsupported expression type %T", e)
		return ""
	}
}

func (p *printer) binaryExpr(n *dast.BinaryExpr) string {
	var op string
	if n.Instr.Opcode == ir.Compare {
		op = n.Instr.Comparison.String()
	} else {
		op = n.Instr.Opcode.ArithKind()
	}
	return "(" + p.expr(n.Left) + " " + op + " " + p.expr(n.Right) + ")"
}

func (p *printer) exprList(list []dast.Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = p.expr(e)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) variableExpr(n *dast.VariableExpr) string {
	name := "?"
	if n.Ref != nil {
		name = n.Ref.Name
	}

	base := name
	if n.Left != nil {
		base = p.expr(n.Left) + "." + name
	}
	if len(n.Indices) > 0 {
		base += "[" + p.exprList(n.Indices) + "]"
	}
	return base
}

func (p *printer) shortCircuitExpr(n *dast.ShortCircuitExpr) string {
	op := " && "
	if n.Logic == cfg.LogicOr {
		op = " || "
	}
	parts := make([]string, len(n.Conditions))
	for i, c := range n.Conditions {
		parts[i] = p.expr(c)
	}
	return "(" + strings.Join(parts, op) + ")"
}
