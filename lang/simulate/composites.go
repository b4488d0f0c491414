package simulate

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
)

// Simulator runs the Block Simulator / AST Builder pass over one recovered
// fragment (§4.3).
type Simulator struct {
	Config Config
}

// Simulate walks frag's hierarchical CFG and returns the fragment's body as
// a BlockStmt, together with any non-fatal warnings observed. parentCtx
// chains the new fragment's lexical context to an enclosing one (nil at the
// top level, see FragmentContext). entryName labels warnings and the
// leftover-stack error with the originating code entry's name.
func (s *Simulator) Simulate(frag *cfg.Fragment, parentCtx *FragmentContext, entryName string) (*dast.BlockStmt, []Warning, error) {
	st := &simState{vmCfg: s.Config, entryName: entryName, ctx: NewFragmentContext(parentCtx)}

	body, err := simulateBody(st, frag.Root)
	if err != nil {
		return nil, st.warnings, err
	}

	if n := st.stack.Len(); n > 0 {
		st.warn(WarnDataLeftover, frag.End(), "", n)
		if !s.Config.AllowLeftoverDataOnStack {
			return body, st.warnings, fmt.Errorf("simulate: entry %q finished with %d item(s) left on the stack", entryName, n)
		}
	}

	return body, st.warnings, nil
}

// simulateNode simulates one CFG node against st, appending any statements
// it produces to out, and returns the node it chains to next (nil if n has
// no single successor to follow). A leaf Block is simulated instruction by
// instruction; every composite kind overrides the traversal to assemble its
// own high-level construct instead of descending generically.
func simulateNode(st *simState, n cfg.Node, out *[]dast.Stmt) (cfg.Node, error) {
	switch v := n.(type) {
	case *cfg.Block:
		for _, instr := range v.Instructions {
			if err := simulateInstr(st, instr, out); err != nil {
				return nil, err
			}
		}
		return soleSuccessor(v), nil

	case *cfg.Empty:
		return soleSuccessor(v), nil

	case *cfg.ShortCircuit:
		expr, err := simulateShortCircuit(st, v, out)
		if err != nil {
			return nil, err
		}
		st.stack.Push(expr)
		return soleSuccessor(v), nil

	case *cfg.WhileLoop:
		stmt, err := simulateWhile(st, v)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	case *cfg.DoUntilLoop:
		stmt, err := simulateDoUntil(st, v)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	case *cfg.RepeatLoop:
		stmt, err := simulateRepeat(st, v)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	case *cfg.WithLoop:
		stmt, err := simulateWith(st, v)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	case *cfg.If:
		stmt, err := simulateIf(st, v, out)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	case *cfg.Switch:
		stmt, err := simulateSwitch(st, v)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	case *cfg.TryCatchFinally:
		stmt, err := simulateTryCatchFinally(st, v)
		if err != nil {
			return nil, err
		}
		*out = append(*out, stmt)
		return soleSuccessor(v), nil

	default:
		return nil, fmt.Errorf("simulate: unrecognized node kind %T at %d", n, n.Start())
	}
}

// soleSuccessor returns n's single successor, or nil if it has none or more
// than one (a shape simulateNode's children never produce, since every
// composite's internal branching is resolved by its own override).
func soleSuccessor(n cfg.Node) cfg.Node {
	succs := n.Successors()
	if len(succs) == 1 {
		return succs[0]
	}
	return nil
}

// runChain simulates start and every node it chains to, in order, until a
// node with no successor is reached.
func runChain(st *simState, start cfg.Node, out *[]dast.Stmt) error {
	for n := start; n != nil; {
		next, err := simulateNode(st, n, out)
		if err != nil {
			return err
		}
		n = next
	}
	return nil
}

// runSingle simulates exactly n, discarding whatever node it would chain to
// next. Used for condition nodes (short-circuit conditions, if/switch
// subjects, loop headers) that are deliberately disconnected from their
// body during recovery and must not be followed.
func runSingle(st *simState, n cfg.Node, out *[]dast.Stmt) error {
	_, err := simulateNode(st, n, out)
	return err
}

// simulateBody runs the chain starting at start and wraps the result in a
// BlockStmt. A nil start (a loop or with-region with no body, or an
// optional else arm) yields an empty block.
func simulateBody(st *simState, start cfg.Node) (*dast.BlockStmt, error) {
	if start == nil {
		return &dast.BlockStmt{}, nil
	}
	var stmts []dast.Stmt
	if err := runChain(st, start, &stmts); err != nil {
		return nil, err
	}
	return &dast.BlockStmt{Header: dast.Header{At: start.Start()}, Stmts: stmts}, nil
}

// simulateShortCircuit implements §4.2.1/§4.3: each condition is a
// disconnected single-node chain expected to leave exactly one new value on
// the stack; anything else means the recovered shape doesn't hold and is
// fatal, per the design's explicit short-circuit size-change rule.
func simulateShortCircuit(st *simState, sc *cfg.ShortCircuit, out *[]dast.Stmt) (dast.Expr, error) {
	conditions := make([]dast.Expr, 0, len(sc.Conditions))
	for _, cond := range sc.Conditions {
		before := st.stack.Len()
		if err := runSingle(st, cond, out); err != nil {
			return nil, err
		}
		if delta := st.stack.Len() - before; delta != 1 {
			return nil, fmt.Errorf("simulate: short circuit condition at %d changed stack size by %d, want 1", cond.Start(), delta)
		}
		e, _, err := st.stack.Pop()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, e)
	}
	return &dast.ShortCircuitExpr{Header: dast.Header{At: sc.Start()}, Logic: sc.Logic, Conditions: conditions}, nil
}

// simulateWhile implements the pre-test loop override. HeadNode is
// simulated on its own (it is never chained into Body by the recovery
// pass's edge surgery) to produce the condition expression; any incidental
// statements it produces are folded as a prologue at the start of Body,
// since WhileStmt has no separate slot for per-iteration header statements.
func simulateWhile(st *simState, w *cfg.WhileLoop) (*dast.WhileStmt, error) {
	var headOut []dast.Stmt
	if err := runSingle(st, w.HeadNode, &headOut); err != nil {
		return nil, err
	}
	cond, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: while head at %d: %w", w.HeadNode.Start(), err)
	}
	body, err := simulateBody(st, w.BodyNode)
	if err != nil {
		return nil, err
	}
	if len(headOut) > 0 {
		body.Stmts = append(append([]dast.Stmt(nil), headOut...), body.Stmts...)
	}
	return &dast.WhileStmt{Header: dast.Header{At: w.Start()}, Cond: cond, Body: body}, nil
}

// simulateDoUntil implements the post-test loop override: Body's chain
// already runs all the way through the loop's tail (the condition-computing
// block the recovery pass left attached, minus its stripped branch), so the
// condition expression is simply whatever is left on the stack once the
// chain ends.
func simulateDoUntil(st *simState, d *cfg.DoUntilLoop) (*dast.DoUntilStmt, error) {
	body, err := simulateBody(st, d.BodyNode)
	if err != nil {
		return nil, err
	}
	cond, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: do-until at %d: %w", d.Start(), err)
	}
	return &dast.DoUntilStmt{Header: dast.Header{At: d.Start()}, Body: body, Cond: cond}, nil
}

// simulateRepeat implements "repeat (Count) { ... }": HeadNode's leading
// instruction is the VM's count-push, consumed directly as Count; the rest
// of the header (the duplicate/compare counter test, branch already
// stripped during recovery) is pure VM bookkeeping with no AST
// representation and is never simulated, matching RepeatStmt's documented
// "the VM's internal counter variable is never surfaced".
func simulateRepeat(st *simState, r *cfg.RepeatLoop) (*dast.RepeatStmt, error) {
	headBlock, ok := r.HeadNode.(*cfg.Block)
	if !ok || len(headBlock.Instructions) == 0 {
		return nil, fmt.Errorf("simulate: repeat head at %d is not a block", r.HeadNode.Start())
	}

	var headOut []dast.Stmt
	if err := simulateInstr(st, headBlock.Instructions[0], &headOut); err != nil {
		return nil, err
	}
	count, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: repeat count at %d: %w", r.Start(), err)
	}

	body, err := simulateBody(st, r.BodyNode)
	if err != nil {
		return nil, err
	}
	if len(headOut) > 0 {
		body.Stmts = append(append([]dast.Stmt(nil), headOut...), body.Stmts...)
	}
	return &dast.RepeatStmt{Header: dast.Header{At: r.Start()}, Count: count, Body: body}, nil
}

// simulateWith implements "with (Target) { ... }". BodyNode is the original
// loop head: whatever instructions push the target expression, followed by
// PushWithContext itself (a branch-family instruction carrying no stack
// effect of its own beyond consuming that target), followed immediately by
// the loop's first body statements in the same block. The override
// simulates up to PushWithContext to capture Target, then continues
// simulating the remainder of the block and its successors as Body.
// BreakBlock, when present, is a PopenvDrop cleanup path with no
// corresponding field on dast.WithStmt and is left unsimulated.
func simulateWith(st *simState, w *cfg.WithLoop) (*dast.WithStmt, error) {
	headBlock, ok := w.BodyNode.(*cfg.Block)
	if !ok {
		return nil, fmt.Errorf("simulate: with head at %d is not a block", w.BodyNode.Start())
	}
	splitAt := -1
	for i, instr := range headBlock.Instructions {
		if instr.Opcode == ir.PushWithContext {
			splitAt = i
			break
		}
	}
	if splitAt < 0 {
		return nil, fmt.Errorf("simulate: with loop at %d has no PushWithContext in its head block", w.Start())
	}

	var headOut []dast.Stmt
	for _, instr := range headBlock.Instructions[:splitAt] {
		if err := simulateInstr(st, instr, &headOut); err != nil {
			return nil, err
		}
	}
	target, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: with target at %d: %w", w.Start(), err)
	}

	bodyStmts := append([]dast.Stmt(nil), headOut...)
	for _, instr := range headBlock.Instructions[splitAt+1:] {
		if err := simulateInstr(st, instr, &bodyStmts); err != nil {
			return nil, err
		}
	}
	if err := runChain(st, soleSuccessor(headBlock), &bodyStmts); err != nil {
		return nil, err
	}

	body := &dast.BlockStmt{Header: dast.Header{At: w.Start()}, Stmts: bodyStmts}
	return &dast.WithStmt{Header: dast.Header{At: w.Start()}, Target: target, Body: body}, nil
}

// simulateIf implements the if/else override. CondNode is disconnected from
// Then/Else by the recovery pass (stripTrailingBranch clears both of its
// edges), so it is simulated standalone; any statements it incidentally
// produces are hoisted ahead of the IfStmt itself into out.
func simulateIf(st *simState, n *cfg.If, out *[]dast.Stmt) (*dast.IfStmt, error) {
	var condOut []dast.Stmt
	if err := runSingle(st, n.CondNode, &condOut); err != nil {
		return nil, err
	}
	cond, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: if condition at %d: %w", n.CondNode.Start(), err)
	}

	then, err := simulateBody(st, n.ThenNode)
	if err != nil {
		return nil, err
	}
	var els *dast.BlockStmt
	if n.ElseNode != nil {
		els, err = simulateBody(st, n.ElseNode)
		if err != nil {
			return nil, err
		}
	}

	if len(condOut) > 0 {
		*out = append(*out, condOut...)
	}
	return &dast.IfStmt{Header: dast.Header{At: n.Start()}, Cond: cond, Then: then, Else: els}, nil
}

// simulateSwitch implements the switch override. SubjectNode keeps the
// residual "dup; push K; cmp ==" of its first dispatch link (branch
// stripped): simulating it generically nets exactly one extra stack slot
// (+1 dup, +1 push, -1 net compare), a throwaway boolean sitting above the
// real subject, so the override discards one value before taking the
// subject itself. Case values have no preserved operand type by the time
// they reach cfg.SwitchCase, so they are always rendered as int32 literals.
func simulateSwitch(st *simState, sw *cfg.Switch) (*dast.SwitchStmt, error) {
	var subjOut []dast.Stmt
	if err := runSingle(st, sw.SubjectNode, &subjOut); err != nil {
		return nil, err
	}
	if _, _, err := st.stack.Pop(); err != nil {
		return nil, fmt.Errorf("simulate: switch subject residue at %d: %w", sw.Start(), err)
	}
	subject, _, err := st.stack.Pop()
	if err != nil {
		return nil, fmt.Errorf("simulate: switch subject at %d: %w", sw.Start(), err)
	}

	cases := make([]dast.SwitchCase, 0, len(sw.Cases))
	for _, c := range sw.Cases {
		var body *dast.BlockStmt
		if c.Body != nil {
			body, err = simulateBody(st, c.Body)
			if err != nil {
				return nil, err
			}
		}
		values := make([]dast.Expr, 0, len(c.Values))
		for _, v := range c.Values {
			values = append(values, valueExpr(v, sw.SubjectNode.Start()))
		}
		cases = append(cases, dast.SwitchCase{Values: values, IsDefault: c.IsDefault, Body: body})
	}
	return &dast.SwitchStmt{Header: dast.Header{At: sw.Start()}, Subject: subject, Cases: cases}, nil
}

// simulateTryCatchFinally implements the try/catch/finally override. Unlike
// If and Switch, no governing expression is popped: the try-hook
// instructions that used to carry one were fully cleared during recovery,
// leaving no residue to account for.
func simulateTryCatchFinally(st *simState, t *cfg.TryCatchFinally) (*dast.TryCatchFinallyStmt, error) {
	try, err := simulateBody(st, t.TryNode)
	if err != nil {
		return nil, err
	}
	var catch *dast.BlockStmt
	if t.CatchNode != nil {
		catch, err = simulateBody(st, t.CatchNode)
		if err != nil {
			return nil, err
		}
	}
	finally, err := simulateBody(st, t.FinallyNode)
	if err != nil {
		return nil, err
	}
	return &dast.TryCatchFinallyStmt{Header: dast.Header{At: t.Start()}, Try: try, Catch: catch, Finally: finally}, nil
}

// valueExpr converts a bare case-label value into the expression node a
// switch case's Values entry renders as.
func valueExpr(v ir.Value, addr int) dast.Expr {
	return &dast.IntExpr{Header: dast.Header{At: addr}, Width: ir.TypeInt32, Value: int64(v.Int)}
}
