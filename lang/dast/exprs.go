package dast

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
)

// Header carries the one field every node needs: the address of the
// instruction it was built from. Embedded by every concrete node, the same
// way lang/cfg.Header is embedded by every CFG node.
type Header struct {
	At int
}

// Addr implements Node.
func (h Header) Addr() int { return h.At }

type (
	// IntExpr is an integer constant of the width the originating Push
	// instruction carried (Int16, Int32 or Int64).
	IntExpr struct {
		Header
		Width ir.DataType
		Value int64
	}

	// DoubleExpr is a floating-point constant.
	DoubleExpr struct {
		Header
		Value float64
	}

	// StringExpr is a string constant.
	StringExpr struct {
		Header
		Value string
	}

	// BoolExpr is a boolean constant, produced either by a literal bool
	// push or by Convert's Int16-to-bool coercion (§4.3).
	BoolExpr struct {
		Header
		Value bool
	}

	// VariableExpr is a variable read or the left-hand side of an
	// assignment. Left is the resolved left-operand expression when
	// RefType is RefStackTop or RefArray (nil for a plain named variable).
	// Indices holds 1 or 2 array index expressions when RefType is
	// RefArray; nil otherwise.
	VariableExpr struct {
		Header
		Ref     *ir.VariableRef
		RefType ir.ReferenceVarType
		Left    Expr
		Indices []Expr
	}

	// BinaryExpr is a binary operator application. Instr is the originating
	// arithmetic/bitwise/Compare instruction, carrying both the operator
	// and the operand typing the printer needs.
	BinaryExpr struct {
		Header
		Left, Right Expr
		Instr       ir.Instruction
	}

	// UnaryExpr is a unary operator application (Not, Negate).
	UnaryExpr struct {
		Header
		Operand Expr
		Instr   ir.Instruction
	}

	// CallExpr is a function call.
	CallExpr struct {
		Header
		Fn   Expr
		Args []Expr
	}

	// FuncRefExpr is a bare function reference, pushed by a Push Int32
	// instruction carrying a function reference instead of an int32.
	FuncRefExpr struct {
		Header
		Ref *ir.FunctionRef
	}

	// NewObjectExpr is a call to the VM's new-object intrinsic.
	NewObjectExpr struct {
		Header
		Fn   Expr
		Args []Expr
	}

	// ShortCircuitExpr is a recovered &&/|| cascade.
	ShortCircuitExpr struct {
		Header
		Logic      cfg.LogicKind
		Conditions []Expr
	}

	// InstanceTypeExpr is a bare instance-type constant (self, other,
	// global, …), used as a variable's left operand when it is not itself
	// a resolved expression.
	InstanceTypeExpr struct {
		Header
		Type ir.InstanceType
	}
)

func (n *IntExpr) Format(f fmt.State, verb rune) {
	format(f, verb, fmt.Sprintf("%s %d", n.Width, n.Value))
}
func (n *IntExpr) Walk(_ Visitor) {}
func (n *IntExpr) expr()          {}

func (n *DoubleExpr) Format(f fmt.State, verb rune) { format(f, verb, fmt.Sprintf("f64 %g", n.Value)) }
func (n *DoubleExpr) Walk(_ Visitor)                {}
func (n *DoubleExpr) expr()                         {}

func (n *StringExpr) Format(f fmt.State, verb rune) { format(f, verb, fmt.Sprintf("str %q", n.Value)) }
func (n *StringExpr) Walk(_ Visitor)                {}
func (n *StringExpr) expr()                         {}

func (n *BoolExpr) Format(f fmt.State, verb rune) { format(f, verb, fmt.Sprintf("bool %v", n.Value)) }
func (n *BoolExpr) Walk(_ Visitor)                {}
func (n *BoolExpr) expr()                         {}

func (n *VariableExpr) Format(f fmt.State, verb rune) {
	lbl := "var"
	if n.Ref != nil {
		lbl += " " + n.Ref.Name
	}
	format(f, verb, lbl)
}
func (n *VariableExpr) Walk(v Visitor) {
	if n.Left != nil {
		Walk(v, n.Left)
	}
	for _, idx := range n.Indices {
		Walk(v, idx)
	}
}
func (n *VariableExpr) expr() {}

func (n *BinaryExpr) Format(f fmt.State, verb rune) {
	op := n.Instr.Comparison.String()
	if n.Instr.Opcode != ir.Compare {
		op = n.Instr.Opcode.ArithKind()
	}
	format(f, verb, "binary "+op)
}
func (n *BinaryExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinaryExpr) expr() {}

func (n *UnaryExpr) Format(f fmt.State, verb rune) { format(f, verb, "unary "+n.Instr.Opcode.UnaryKind()) }
func (n *UnaryExpr) Walk(v Visitor)                { Walk(v, n.Operand) }
func (n *UnaryExpr) expr()                         {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, fmt.Sprintf("call (%d args)", len(n.Args)))
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *CallExpr) expr() {}

func (n *FuncRefExpr) Format(f fmt.State, verb rune) {
	lbl := "funcref"
	if n.Ref != nil {
		lbl += " " + n.Ref.Name
	}
	format(f, verb, lbl)
}
func (n *FuncRefExpr) Walk(_ Visitor) {}
func (n *FuncRefExpr) expr()          {}

func (n *NewObjectExpr) Format(f fmt.State, verb rune) {
	format(f, verb, fmt.Sprintf("new (%d args)", len(n.Args)))
}
func (n *NewObjectExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *NewObjectExpr) expr() {}

func (n *ShortCircuitExpr) Format(f fmt.State, verb rune) {
	format(f, verb, fmt.Sprintf("%s (%d conditions)", n.Logic, len(n.Conditions)))
}
func (n *ShortCircuitExpr) Walk(v Visitor) {
	for _, c := range n.Conditions {
		Walk(v, c)
	}
}
func (n *ShortCircuitExpr) expr() {}

func (n *InstanceTypeExpr) Format(f fmt.State, verb rune) { format(f, verb, n.Type.String()) }
func (n *InstanceTypeExpr) Walk(_ Visitor)                {}
func (n *InstanceTypeExpr) expr()                         {}
