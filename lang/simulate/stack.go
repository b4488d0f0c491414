package simulate

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/dast"
)

// stackSlot is one element of the abstract expression stack. duplicated
// marks a value produced by Duplicate, the signal PopDelete uses to discard
// a now-redundant evaluation instead of emitting it as a statement (§9
// "Stack simulator").
type stackSlot struct {
	expr       dast.Expr
	duplicated bool
}

// Stack is the per-fragment abstract expression stack the block simulator
// pushes to and pops from in place of the VM's runtime stack (§3 "Expression
// stack").
type Stack struct {
	slots []stackSlot
}

// Len returns the number of values currently on the stack.
func (s *Stack) Len() int { return len(s.slots) }

// Push pushes expr as an ordinary (non-duplicated) value.
func (s *Stack) Push(expr dast.Expr) {
	s.slots = append(s.slots, stackSlot{expr: expr})
}

// PushDuplicated pushes expr marked as the product of a Duplicate
// instruction.
func (s *Stack) PushDuplicated(expr dast.Expr) {
	s.slots = append(s.slots, stackSlot{expr: expr, duplicated: true})
}

// Pop removes and returns the top value along with whether it was marked
// duplicated. Popping an empty stack is an error; callers that document an
// empty-stack no-op (PopDelete) check Len first instead of relying on this
// error.
func (s *Stack) Pop() (dast.Expr, bool, error) {
	if len(s.slots) == 0 {
		return nil, false, fmt.Errorf("simulate: pop on empty stack")
	}
	top := s.slots[len(s.slots)-1]
	s.slots = s.slots[:len(s.slots)-1]
	return top.expr, top.duplicated, nil
}

// Peek returns the top value without removing it, and whether the stack is
// non-empty.
func (s *Stack) Peek() (dast.Expr, bool) {
	if len(s.slots) == 0 {
		return nil, false
	}
	return s.slots[len(s.slots)-1].expr, true
}

// ReplaceTop overwrites the top value's expression in place, keeping its
// duplicated mark. Used by Convert's in-place boolean coercion. A no-op on
// an empty stack.
func (s *Stack) ReplaceTop(expr dast.Expr) {
	if len(s.slots) == 0 {
		return
	}
	s.slots[len(s.slots)-1].expr = expr
}

// Tail returns the expressions of the top n slots, in bottom-to-top order,
// without modifying the stack. Returns nil if n is non-positive or exceeds
// the stack's depth.
func (s *Stack) Tail(n int) []dast.Expr {
	if n <= 0 || n > len(s.slots) {
		return nil
	}
	out := make([]dast.Expr, n)
	for i := 0; i < n; i++ {
		out[i] = s.slots[len(s.slots)-n+i].expr
	}
	return out
}
