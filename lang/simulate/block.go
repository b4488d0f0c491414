package simulate

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
)

// simState is the mutable state threaded through one fragment's simulation:
// the abstract stack, the lexical context for locals and stack-top
// resolution, and the config/warning surface every opcode rule may need.
type simState struct {
	stack     Stack
	ctx       *FragmentContext
	vmCfg     Config
	entryName string
	warnings  []Warning
}

func (st *simState) warn(kind WarningKind, addr int, msg string, n int) {
	st.warnings = append(st.warnings, Warning{
		Kind: kind, EntryName: st.entryName, Addr: addr, Message: msg, NumberOfElements: n,
	})
}

// simulateInstr runs one instruction of a leaf block against st, appending
// any statement it produces to out. It implements the exhaustive per-opcode
// rule set of §4.3.
func simulateInstr(st *simState, instr ir.Instruction, out *[]dast.Stmt) error {
	op := instr.Opcode
	switch {
	case op.IsArith():
		return simulateArith(st, instr)
	case op.IsUnary():
		return simulateUnary(st, instr, out)
	}

	switch op {
	case ir.Convert:
		simulateConvert(st, instr)
		return nil
	case ir.Return:
		return simulateReturn(st, instr, out)
	case ir.Exit:
		*out = append(*out, &dast.ExitStmt{Header: dast.Header{At: instr.Address}})
		return nil
	case ir.PopDelete:
		return simulatePopDelete(st, instr, out)
	case ir.Call:
		return simulateCall(st, instr)
	case ir.Push, ir.PushLocal, ir.PushGlobal, ir.PushBuiltin:
		return simulatePush(st, instr)
	case ir.PushImmediate:
		st.stack.Push(&dast.IntExpr{Header: dast.Header{At: instr.Address}, Width: ir.TypeInt16, Value: int64(instr.Value.Short)})
		return nil
	case ir.Pop:
		return simulatePop(st, instr, out)
	case ir.Duplicate:
		return simulateDuplicate(st, instr)
	case ir.Extended:
		return simulateExtended(st, instr)
	default:
		st.warn(WarnUnknownOpcode, instr.Address, fmt.Sprintf("unsupported opcode %s", op), 0)
		*out = append(*out, &dast.ExprStmt{
			Header: dast.Header{At: instr.Address},
			Expr:   &dast.StringExpr{Header: dast.Header{At: instr.Address}, Value: fmt.Sprintf("<unsupported %s>", op)},
		})
		return nil
	}
}

func simulateArith(st *simState, instr ir.Instruction) error {
	right, _, err := st.stack.Pop()
	if err != nil {
		return fmt.Errorf("simulate: %s at %d: %w", instr.Opcode, instr.Address, err)
	}
	left, _, err := st.stack.Pop()
	if err != nil {
		return fmt.Errorf("simulate: %s at %d: %w", instr.Opcode, instr.Address, err)
	}
	st.stack.Push(&dast.BinaryExpr{Header: dast.Header{At: instr.Address}, Left: left, Right: right, Instr: instr})
	return nil
}

// simulateUnary pops one operand and emits it directly as a statement
// rather than pushing it back for further combination: §4.3 notes the
// source treats unary ops as producing statements in some positions, and
// this core retains that policy literally rather than modeling them as
// pure expression-stack operations.
func simulateUnary(st *simState, instr ir.Instruction, out *[]dast.Stmt) error {
	operand, _, err := st.stack.Pop()
	if err != nil {
		return fmt.Errorf("simulate: %s at %d: %w", instr.Opcode, instr.Address, err)
	}
	expr := &dast.UnaryExpr{Header: dast.Header{At: instr.Address}, Operand: operand, Instr: instr}
	*out = append(*out, &dast.ExprStmt{Header: dast.Header{At: instr.Address}, Expr: expr})
	return nil
}

// simulateConvert implements §4.3's Convert rule. The boolean-coercion
// branch (Int16 0/1 under an Int32->Bool or Bool->X conversion) replaces
// the stack top with a BoolExpr; any other conversion only affects typing
// information the printer would consult, which this core does not track
// separately from the expression node already on the stack, so it is a
// no-op.
func simulateConvert(st *simState, instr ir.Instruction) {
	top, ok := st.stack.Peek()
	if !ok {
		return
	}
	ie, isInt := top.(*dast.IntExpr)
	if !isInt || ie.Width != ir.TypeInt16 || (ie.Value != 0 && ie.Value != 1) {
		return
	}
	isInt32ToBool := instr.Type1 == ir.TypeInt32 && instr.Type2 == ir.TypeBoolean
	isBoolToX := instr.Type1 == ir.TypeBoolean
	if isInt32ToBool || isBoolToX {
		st.stack.ReplaceTop(&dast.BoolExpr{Header: dast.Header{At: instr.Address}, Value: ie.Value == 1})
	}
}

func simulateReturn(st *simState, instr ir.Instruction, out *[]dast.Stmt) error {
	val, _, err := st.stack.Pop()
	if err != nil {
		return fmt.Errorf("simulate: return at %d: %w", instr.Address, err)
	}
	*out = append(*out, &dast.ReturnStmt{Header: dast.Header{At: instr.Address}, Value: val})
	return nil
}

// simulatePopDelete implements §4.3's PopDelete rule: a no-op on an already
// empty stack (early-exit cleanup), a silent discard of a duplicated or
// bare-variable value (redundant re-evaluation), and an expression
// statement otherwise (the common case: a function call evaluated for its
// side effect).
func simulatePopDelete(st *simState, instr ir.Instruction, out *[]dast.Stmt) error {
	if st.stack.Len() == 0 {
		return nil
	}
	expr, duplicated, err := st.stack.Pop()
	if err != nil {
		return err
	}
	if duplicated {
		return nil
	}
	if _, isVar := expr.(*dast.VariableExpr); isVar {
		return nil
	}
	*out = append(*out, &dast.ExprStmt{Header: dast.Header{At: instr.Address}, Expr: expr})
	return nil
}

// simulateCall implements §4.3's Call rule. An ordinary call names its
// callee directly in the instruction (Function), so only its arguments are
// popped; the VM's new-object intrinsic additionally carries the real
// constructor as a value pushed just before the call, which this rule pops
// off the stack as Fn instead.
func simulateCall(st *simState, instr ir.Instruction) error {
	argCount := instr.ArgumentCount()
	if instr.IsNewObjectCall(st.vmCfg.NewObjectFunctionName) {
		args, err := popN(st, argCount-1)
		if err != nil {
			return fmt.Errorf("simulate: new-object call at %d: %w", instr.Address, err)
		}
		fn, _, err := st.stack.Pop()
		if err != nil {
			return fmt.Errorf("simulate: new-object call at %d: %w", instr.Address, err)
		}
		st.stack.Push(&dast.NewObjectExpr{Header: dast.Header{At: instr.Address}, Fn: fn, Args: args})
		return nil
	}

	args, err := popN(st, argCount)
	if err != nil {
		return fmt.Errorf("simulate: call at %d: %w", instr.Address, err)
	}
	fn := dast.Expr(&dast.FuncRefExpr{Header: dast.Header{At: instr.Address}, Ref: instr.Function})
	st.stack.Push(&dast.CallExpr{Header: dast.Header{At: instr.Address}, Fn: fn, Args: args})
	return nil
}

// popN pops n values off st's stack and returns them in their original
// (left-to-right, push) order: the stack naturally yields them
// right-to-left, so popN reverses as it collects.
func popN(st *simState, n int) ([]dast.Expr, error) {
	if n < 0 {
		return nil, fmt.Errorf("simulate: negative argument count %d", n)
	}
	args := make([]dast.Expr, n)
	for i := n - 1; i >= 0; i-- {
		e, _, err := st.stack.Pop()
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return args, nil
}

// simulatePush implements §4.3's Push rule, dispatching on Type1.
func simulatePush(st *simState, instr ir.Instruction) error {
	switch instr.Type1 {
	case ir.TypeInt32:
		if instr.Function != nil {
			st.stack.Push(&dast.FuncRefExpr{Header: dast.Header{At: instr.Address}, Ref: instr.Function})
		} else {
			st.stack.Push(&dast.IntExpr{Header: dast.Header{At: instr.Address}, Width: ir.TypeInt32, Value: int64(instr.Value.Int)})
		}
	case ir.TypeString:
		st.stack.Push(&dast.StringExpr{Header: dast.Header{At: instr.Address}, Value: instr.Value.Str})
	case ir.TypeDouble:
		st.stack.Push(&dast.DoubleExpr{Header: dast.Header{At: instr.Address}, Value: instr.Value.Double})
	case ir.TypeInt64:
		st.stack.Push(&dast.IntExpr{Header: dast.Header{At: instr.Address}, Width: ir.TypeInt64, Value: instr.Value.Long})
	case ir.TypeInt16:
		st.stack.Push(&dast.IntExpr{Header: dast.Header{At: instr.Address}, Width: ir.TypeInt16, Value: int64(instr.Value.Short)})
	case ir.TypeBoolean:
		st.stack.Push(&dast.BoolExpr{Header: dast.Header{At: instr.Address}, Value: instr.Value.Bool})
	case ir.TypeVariable:
		return simulateVariableRead(st, instr)
	default:
		st.warn(WarnUnknownOpcode, instr.Address, fmt.Sprintf("push with unsupported type %s", instr.Type1), 0)
	}
	return nil
}

func simulateVariableRead(st *simState, instr ir.Instruction) error {
	left, indices, err := resolveVariableLeft(st, instr)
	if err != nil {
		return err
	}
	st.stack.Push(&dast.VariableExpr{
		Header:  dast.Header{At: instr.Address},
		Ref:     instr.Variable,
		RefType: instr.ReferenceVarType,
		Left:    left,
		Indices: indices,
	})
	return nil
}

// resolveVariableLeft resolves the left operand (and, for array references,
// the index expressions) of a Variable-typed Push or Pop instruction, per
// §4.3 Pop rule 4 — shared verbatim by Push's variable read, which the spec
// says "mirrors Pop" for left-side handling.
func resolveVariableLeft(st *simState, instr ir.Instruction) (dast.Expr, []dast.Expr, error) {
	switch instr.ReferenceVarType {
	case ir.RefStackTop:
		left, err := popStackTopLeft(st, instr)
		return left, nil, err
	case ir.RefArray:
		indices, err := resolveArrayIndices(st, instr)
		if err != nil {
			return nil, nil, err
		}
		left, err := popStackTopLeft(st, instr)
		if err != nil {
			return nil, nil, err
		}
		return left, indices, nil
	default:
		return &dast.InstanceTypeExpr{Header: dast.Header{At: instr.Address}, Type: instr.InstanceType}, nil, nil
	}
}

// popStackTopLeft pops one expression as the left operand, then applies the
// modern struct/object chain override: if that value is a bare Int16 equal
// to InstanceType.StackTop, one more value is popped and used instead.
func popStackTopLeft(st *simState, instr ir.Instruction) (dast.Expr, error) {
	left, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: variable left operand at %d: %w", instr.Address, err)
	}
	if ie, ok := left.(*dast.IntExpr); ok && ie.Width == ir.TypeInt16 && ie.Value == int64(ir.StackTop) {
		left, _, err = st.stack.Pop()
		if err != nil {
			return nil, fmt.Errorf("simulate: modern stack-top chain at %d: %w", instr.Address, err)
		}
	}
	return left, nil
}

// resolveArrayIndices implements §4.3's array-indexing rule: one popped
// index on modern (GMLv2+) arrays, or a decomposed [outer, inner] pair on
// legacy bytecode when the index has the compiler's 1D-encoded-2D shape.
func resolveArrayIndices(st *simState, instr ir.Instruction) ([]dast.Expr, error) {
	idx, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: array index at %d: %w", instr.Address, err)
	}
	if st.vmCfg.ModernArrays {
		return []dast.Expr{idx}, nil
	}
	if outer, inner, ok := decompose2DIndex(idx, st.vmCfg.OldArrayLimit); ok {
		return []dast.Expr{outer, inner}, nil
	}
	return []dast.Expr{idx}, nil
}

// decompose2DIndex recognizes the legacy 1D-encoded-2D-array pattern
// (outer*limit)+inner: a binary Add whose left is a binary Mul whose right
// operand is an Int32 constant equal to limit.
func decompose2DIndex(idx dast.Expr, limit int32) (outer, inner dast.Expr, ok bool) {
	add, isAdd := idx.(*dast.BinaryExpr)
	if !isAdd || add.Instr.Opcode != ir.Add {
		return nil, nil, false
	}
	mul, isMul := add.Left.(*dast.BinaryExpr)
	if !isMul || mul.Instr.Opcode != ir.Mul {
		return nil, nil, false
	}
	rightConst, isInt := mul.Right.(*dast.IntExpr)
	if !isInt || rightConst.Width != ir.TypeInt32 || int32(rightConst.Value) != limit {
		return nil, nil, false
	}
	return mul.Left, add.Right, true
}

// simulatePop implements §4.3's Pop rule: a variable-less Pop is a
// pop-swap, otherwise it is an assignment.
func simulatePop(st *simState, instr ir.Instruction, out *[]dast.Stmt) error {
	if instr.Variable == nil {
		return simulatePopSwap(st, instr)
	}
	return simulateAssign(st, instr, out)
}

// simulatePopSwap implements the documented pop-swap offset literally: pop
// e1, pop e2, discard (value-4) further items, then push e2 then e1 (§9
// "Pop-swap semantics").
func simulatePopSwap(st *simState, instr ir.Instruction) error {
	e1, _, err := st.stack.Pop()
	if err != nil {
		return fmt.Errorf("simulate: pop-swap at %d: %w", instr.Address, err)
	}
	e2, _, err := st.stack.Pop()
	if err != nil {
		return fmt.Errorf("simulate: pop-swap at %d: %w", instr.Address, err)
	}
	for extra := instr.PopSwapSize() - 4; extra > 0; extra-- {
		if _, _, err := st.stack.Pop(); err != nil {
			return fmt.Errorf("simulate: pop-swap at %d: %w", instr.Address, err)
		}
	}
	st.stack.Push(e2)
	st.stack.Push(e1)
	return nil
}

func simulateAssign(st *simState, instr ir.Instruction, out *[]dast.Stmt) error {
	if instr.Variable.InstanceType == ir.Local {
		st.ctx.RegisterLocal(instr.Variable.Name)
	}

	popValueFirst := instr.Type1 == ir.TypeInt32
	var value dast.Expr
	var err error
	if popValueFirst {
		value, _, err = st.stack.Pop()
		if err != nil {
			return fmt.Errorf("simulate: assignment value at %d: %w", instr.Address, err)
		}
	}

	left, indices, err := resolveVariableLeft(st, instr)
	if err != nil {
		return err
	}

	if !popValueFirst {
		value, _, err = st.stack.Pop()
		if err != nil {
			return fmt.Errorf("simulate: assignment value at %d: %w", instr.Address, err)
		}
	}

	if instr.Type2 == ir.TypeBoolean {
		if ie, ok := value.(*dast.IntExpr); ok && ie.Width == ir.TypeInt16 && (ie.Value == 0 || ie.Value == 1) {
			value = &dast.BoolExpr{Header: dast.Header{At: instr.Address}, Value: ie.Value == 1}
		}
	}

	varExpr := &dast.VariableExpr{
		Header:  dast.Header{At: instr.Address},
		Ref:     instr.Variable,
		RefType: instr.ReferenceVarType,
		Left:    left,
		Indices: indices,
	}
	*out = append(*out, &dast.AssignStmt{Header: dast.Header{At: instr.Address}, Left: varExpr, Right: value})
	return nil
}

// simulateDuplicate implements §4.3's Duplicate rule for the common case
// (push a marked-duplicated copy of the top) and defers the compound
// prefix/postfix shape (non-zero DuplicationSize/DuplicationSize2) to
// RecoverPrefixPostfix.
func simulateDuplicate(st *simState, instr ir.Instruction) error {
	if instr.Value.DuplicationSize != 0 || instr.Value.DuplicationSize2 != 0 {
		return RecoverPrefixPostfix(st, instr)
	}
	top, ok := st.stack.Peek()
	if !ok {
		return fmt.Errorf("simulate: duplicate at %d on empty stack", instr.Address)
	}
	st.stack.PushDuplicated(top)
	return nil
}

// simulateExtended implements §4.3's Extended rule: SetArrayOwner pops and
// discards; PushReference is out of core scope and surfaces as an
// unsupported-opcode warning with a placeholder expression (§9).
func simulateExtended(st *simState, instr ir.Instruction) error {
	switch instr.ExtendedOpcode {
	case ir.ExtSetArrayOwner:
		if _, _, err := st.stack.Pop(); err != nil {
			return fmt.Errorf("simulate: setarrayowner at %d: %w", instr.Address, err)
		}
		return nil
	case ir.ExtPushReference:
		st.warn(WarnUnsupportedExtendedOpcode, instr.Address, "pushref is out of core scope", 0)
		st.stack.Push(&dast.StringExpr{Header: dast.Header{At: instr.Address}, Value: "<unsupported pushref>"})
		return nil
	default:
		st.warn(WarnUnsupportedExtendedOpcode, instr.Address, fmt.Sprintf("unsupported extended opcode %s", instr.ExtendedOpcode), 0)
		return nil
	}
}
