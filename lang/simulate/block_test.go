package simulate

import (
	"testing"

	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState() *simState {
	return &simState{ctx: NewFragmentContext(nil), entryName: "root"}
}

func TestSimulateInstr_Arith(t *testing.T) {
	st := newState()
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Push, Type1: ir.TypeInt32, Value: ir.Value{Int: 1}}, &out))
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Push, Type1: ir.TypeInt32, Value: ir.Value{Int: 2}}, &out))
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Add}, &out))

	require.Empty(t, out)
	top, ok := st.stack.Peek()
	require.True(t, ok)
	bin := top.(*dast.BinaryExpr)
	assert.Equal(t, int64(1), bin.Left.(*dast.IntExpr).Value)
	assert.Equal(t, int64(2), bin.Right.(*dast.IntExpr).Value)
}

func TestSimulateInstr_Unary(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.BoolExpr{Value: true})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Not}, &out))

	require.Len(t, out, 1)
	es := out[0].(*dast.ExprStmt)
	assert.Equal(t, true, es.Expr.(*dast.UnaryExpr).Operand.(*dast.BoolExpr).Value)
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateInstr_ConvertBoolCoercion(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Width: ir.TypeInt16, Value: 1})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Convert, Type1: ir.TypeInt32, Type2: ir.TypeBoolean}, &out))

	top, _ := st.stack.Peek()
	assert.Equal(t, true, top.(*dast.BoolExpr).Value)
}

func TestSimulateInstr_ConvertNoOpOtherwise(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Width: ir.TypeInt32, Value: 42})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Convert, Type1: ir.TypeInt32, Type2: ir.TypeDouble}, &out))

	top, _ := st.stack.Peek()
	assert.Equal(t, int64(42), top.(*dast.IntExpr).Value)
}

func TestSimulateInstr_Return(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 9})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Return}, &out))

	require.Len(t, out, 1)
	assert.Equal(t, int64(9), out[0].(*dast.ReturnStmt).Value.(*dast.IntExpr).Value)
}

func TestSimulateInstr_Exit(t *testing.T) {
	st := newState()
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Exit}, &out))
	require.Len(t, out, 1)
	_, ok := out[0].(*dast.ExitStmt)
	assert.True(t, ok)
}

func TestSimulateInstr_PopDeleteEmptyIsNoop(t *testing.T) {
	st := newState()
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.PopDelete}, &out))
	assert.Empty(t, out)
}

func TestSimulateInstr_PopDeleteDiscardsDuplicated(t *testing.T) {
	st := newState()
	st.stack.PushDuplicated(&dast.IntExpr{Value: 1})
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.PopDelete}, &out))
	assert.Empty(t, out)
}

func TestSimulateInstr_PopDeleteDiscardsBareVariable(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.VariableExpr{Ref: &ir.VariableRef{Name: "x"}})
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.PopDelete}, &out))
	assert.Empty(t, out)
}

func TestSimulateInstr_PopDeleteEmitsExprStmt(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.CallExpr{})
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.PopDelete}, &out))
	require.Len(t, out, 1)
	_, ok := out[0].(*dast.ExprStmt).Expr.(*dast.CallExpr)
	assert.True(t, ok)
}

func TestSimulateInstr_CallOrdinary(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 1})
	st.stack.Push(&dast.IntExpr{Value: 2})
	var out []dast.Stmt

	fn := &ir.FunctionRef{Name: "show_debug_message"}
	require.NoError(t, simulateInstr(st, ir.Instruction{
		Opcode: ir.Call, Function: fn, Value: ir.Value{Int: 2},
	}, &out))

	top, ok := st.stack.Peek()
	require.True(t, ok)
	call := top.(*dast.CallExpr)
	require.Len(t, call.Args, 2)
	assert.Equal(t, int64(1), call.Args[0].(*dast.IntExpr).Value)
	assert.Equal(t, int64(2), call.Args[1].(*dast.IntExpr).Value)
	assert.Same(t, fn, call.Fn.(*dast.FuncRefExpr).Ref)
}

func TestSimulateInstr_CallNewObject(t *testing.T) {
	st := newState()
	st.vmCfg.NewObjectFunctionName = "@@NewGMLObject@@"
	ctorFn := &dast.FuncRefExpr{Ref: &ir.FunctionRef{Name: "MyClass"}}
	st.stack.Push(ctorFn)
	st.stack.Push(&dast.IntExpr{Value: 10})
	st.stack.Push(&dast.IntExpr{Value: 20})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{
		Opcode: ir.Call, Function: &ir.FunctionRef{Name: "@@NewGMLObject@@"}, Value: ir.Value{Int: 3},
	}, &out))

	top, ok := st.stack.Peek()
	require.True(t, ok)
	no := top.(*dast.NewObjectExpr)
	require.Len(t, no.Args, 2)
	assert.Same(t, ctorFn, no.Fn)
}

func TestSimulateInstr_PushInt32FuncRef(t *testing.T) {
	st := newState()
	var out []dast.Stmt
	fn := &ir.FunctionRef{Name: "f"}
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Push, Type1: ir.TypeInt32, Function: fn}, &out))
	top, _ := st.stack.Peek()
	assert.Same(t, fn, top.(*dast.FuncRefExpr).Ref)
}

func TestSimulateInstr_PushImmediate(t *testing.T) {
	st := newState()
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.PushImmediate, Value: ir.Value{Short: 5}}, &out))
	top, _ := st.stack.Peek()
	ie := top.(*dast.IntExpr)
	assert.Equal(t, ir.TypeInt16, ie.Width)
	assert.Equal(t, int64(5), ie.Value)
}

func TestSimulateInstr_PushVariableRefNormal(t *testing.T) {
	st := newState()
	var out []dast.Stmt
	require.NoError(t, simulateInstr(st, ir.Instruction{
		Opcode: ir.Push, Type1: ir.TypeVariable,
		Variable: &ir.VariableRef{Name: "x", InstanceType: ir.Self}, InstanceType: ir.Self,
	}, &out))
	top, _ := st.stack.Peek()
	ve := top.(*dast.VariableExpr)
	assert.Equal(t, "x", ve.Ref.Name)
	assert.Equal(t, ir.Self, ve.Left.(*dast.InstanceTypeExpr).Type)
}

func TestSimulateInstr_PushVariableStackTopModernChain(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.VariableExpr{Ref: &ir.VariableRef{Name: "obj"}})
	st.stack.Push(&dast.IntExpr{Width: ir.TypeInt16, Value: int64(ir.StackTop)})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{
		Opcode: ir.Push, Type1: ir.TypeVariable, ReferenceVarType: ir.RefStackTop,
		Variable: &ir.VariableRef{Name: "field"},
	}, &out))

	top, _ := st.stack.Peek()
	ve := top.(*dast.VariableExpr)
	assert.Equal(t, "obj", ve.Left.(*dast.VariableExpr).Ref.Name)
}

func TestSimulateInstr_ResolveArrayIndicesModern(t *testing.T) {
	st := newState()
	st.vmCfg.ModernArrays = true
	st.stack.Push(&dast.IntExpr{Value: 3})

	indices, err := resolveArrayIndices(st, ir.Instruction{})
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, int64(3), indices[0].(*dast.IntExpr).Value)
}

func TestSimulateInstr_ResolveArrayIndicesLegacyDecompose(t *testing.T) {
	st := newState()
	st.vmCfg.ModernArrays = false
	st.vmCfg.OldArrayLimit = 32000

	outer := &dast.IntExpr{Width: ir.TypeInt32, Value: 2}
	inner := &dast.IntExpr{Width: ir.TypeInt32, Value: 5}
	mul := &dast.BinaryExpr{Left: outer, Right: &dast.IntExpr{Width: ir.TypeInt32, Value: 32000}, Instr: ir.Instruction{Opcode: ir.Mul}}
	add := &dast.BinaryExpr{Left: mul, Right: inner, Instr: ir.Instruction{Opcode: ir.Add}}
	st.stack.Push(add)

	indices, err := resolveArrayIndices(st, ir.Instruction{})
	require.NoError(t, err)
	require.Len(t, indices, 2)
	assert.Same(t, outer, indices[0])
	assert.Same(t, inner, indices[1])
}

func TestSimulateInstr_ResolveArrayIndicesLegacyNoMatch(t *testing.T) {
	st := newState()
	st.vmCfg.ModernArrays = false
	st.vmCfg.OldArrayLimit = 32000
	st.stack.Push(&dast.IntExpr{Value: 7})

	indices, err := resolveArrayIndices(st, ir.Instruction{})
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, int64(7), indices[0].(*dast.IntExpr).Value)
}

func TestSimulateInstr_PopSwap(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 1})
	st.stack.Push(&dast.IntExpr{Value: 2})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Pop, Value: ir.Value{Int: 4}}, &out))

	// e1 (2) and e2 (1) are popped, nothing more at size 4, then e2 and e1
	// are pushed back: 2 is on top again.
	require.Equal(t, 2, st.stack.Len())
	top, _, _ := st.stack.Pop()
	assert.Equal(t, int64(2), top.(*dast.IntExpr).Value)
	bottom, _, _ := st.stack.Pop()
	assert.Equal(t, int64(1), bottom.(*dast.IntExpr).Value)
}

func TestSimulateInstr_PopAssignLocal(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 42})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{
		Opcode: ir.Pop, Type1: ir.TypeInt16,
		Variable: &ir.VariableRef{Name: "i", InstanceType: ir.Local}, InstanceType: ir.Local,
	}, &out))

	require.Len(t, out, 1)
	as := out[0].(*dast.AssignStmt)
	assert.Equal(t, "i", as.Left.Ref.Name)
	assert.Equal(t, int64(42), as.Right.(*dast.IntExpr).Value)
	assert.True(t, st.ctx.IsLocal("i"))
}

func TestSimulateInstr_PopAssignBooleanCoercion(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Width: ir.TypeInt16, Value: 1})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{
		Opcode: ir.Pop, Type1: ir.TypeInt16, Type2: ir.TypeBoolean,
		Variable: &ir.VariableRef{Name: "flag", InstanceType: ir.Self}, InstanceType: ir.Self,
	}, &out))

	as := out[0].(*dast.AssignStmt)
	assert.Equal(t, true, as.Right.(*dast.BoolExpr).Value)
}

func TestSimulateInstr_DuplicateSimple(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 1})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Duplicate}, &out))

	require.Equal(t, 2, st.stack.Len())
	top, dup, _ := st.stack.Pop()
	assert.True(t, dup)
	assert.Equal(t, int64(1), top.(*dast.IntExpr).Value)
}

func TestSimulateInstr_ExtendedSetArrayOwner(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 1})
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Extended, ExtendedOpcode: ir.ExtSetArrayOwner}, &out))
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateInstr_ExtendedPushReference(t *testing.T) {
	st := newState()
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Extended, ExtendedOpcode: ir.ExtPushReference}, &out))
	require.Len(t, st.warnings, 1)
	assert.Equal(t, WarnUnsupportedExtendedOpcode, st.warnings[0].Kind)
	top, _ := st.stack.Peek()
	assert.Equal(t, "<unsupported pushref>", top.(*dast.StringExpr).Value)
}

func TestSimulateInstr_UnknownOpcode(t *testing.T) {
	st := newState()
	var out []dast.Stmt

	require.NoError(t, simulateInstr(st, ir.Instruction{Opcode: ir.Nop}, &out))
	require.Len(t, st.warnings, 1)
	assert.Equal(t, WarnUnknownOpcode, st.warnings[0].Kind)
	require.Len(t, out, 1)
}
