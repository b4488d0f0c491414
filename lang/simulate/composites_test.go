package simulate

import (
	"testing"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushImm(addr int, v int16) ir.Instruction {
	return ir.Instruction{Address: addr, Opcode: ir.PushImmediate, Value: ir.Value{Short: v}}
}

func TestSimulate_SimpleIf(t *testing.T) {
	cond := cfg.NewBlock(0, 0, 1, []ir.Instruction{pushImm(0, 1)})
	then := cfg.NewBlock(1, 1, 3, []ir.Instruction{pushImm(1, 9), {Address: 2, Opcode: ir.Return}})
	ifNode := cfg.NewIf(cond, then, nil)
	frag := cfg.NewFragment(&ir.CodeEntry{Name: "root"}, ifNode)

	sim := &Simulator{}
	body, warnings, err := sim.Simulate(frag, nil, "root")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, body.Stmts, 1)
	ifs := body.Stmts[0].(*dast.IfStmt)
	assert.Equal(t, int64(1), ifs.Cond.(*dast.IntExpr).Value)
	assert.Nil(t, ifs.Else)
	require.Len(t, ifs.Then.Stmts, 1)
	assert.Equal(t, int64(9), ifs.Then.Stmts[0].(*dast.ReturnStmt).Value.(*dast.IntExpr).Value)
}

func TestSimulateShortCircuit_HappyPath(t *testing.T) {
	cond1 := cfg.NewBlock(0, 0, 1, []ir.Instruction{pushImm(0, 1)})
	cond2 := cfg.NewBlock(1, 1, 2, []ir.Instruction{pushImm(1, 0)})
	sc := cfg.NewShortCircuit(cfg.LogicAnd, []cfg.Node{cond1, cond2})

	st := newState()
	var out []dast.Stmt
	expr, err := simulateShortCircuit(st, sc, &out)
	require.NoError(t, err)

	sce := expr.(*dast.ShortCircuitExpr)
	assert.Equal(t, cfg.LogicAnd, sce.Logic)
	require.Len(t, sce.Conditions, 2)
	assert.Equal(t, int64(1), sce.Conditions[0].(*dast.IntExpr).Value)
	assert.Equal(t, int64(0), sce.Conditions[1].(*dast.IntExpr).Value)
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateShortCircuit_SizeMismatchIsFatal(t *testing.T) {
	cond := cfg.NewBlock(0, 0, 1, []ir.Instruction{pushImm(0, 1), pushImm(1, 2)})
	sc := cfg.NewShortCircuit(cfg.LogicOr, []cfg.Node{cond})

	st := newState()
	var out []dast.Stmt
	_, err := simulateShortCircuit(st, sc, &out)
	assert.Error(t, err)
}

func TestSimulateWhile(t *testing.T) {
	head := cfg.NewBlock(0, 0, 1, []ir.Instruction{pushImm(0, 1)})
	body := cfg.NewBlock(1, 1, 3, []ir.Instruction{pushImm(1, 5), {Address: 2, Opcode: ir.PopDelete}})
	w := cfg.NewWhileLoop(head, body, cfg.NewEmpty(3))

	st := newState()
	stmt, err := simulateWhile(st, w)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stmt.Cond.(*dast.IntExpr).Value)
	require.Len(t, stmt.Body.Stmts, 1)
	assert.Equal(t, int64(5), stmt.Body.Stmts[0].(*dast.ExprStmt).Expr.(*dast.IntExpr).Value)
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateDoUntil(t *testing.T) {
	b1 := cfg.NewBlock(0, 0, 2, []ir.Instruction{pushImm(0, 5), {Address: 1, Opcode: ir.PopDelete}})
	tail := cfg.NewBlock(1, 2, 3, []ir.Instruction{pushImm(2, 3)})
	b1.AddSuccessor(tail)
	d := cfg.NewDoUntilLoop(b1, cfg.NewEmpty(3))

	st := newState()
	stmt, err := simulateDoUntil(st, d)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stmt.Cond.(*dast.IntExpr).Value)
	require.Len(t, stmt.Body.Stmts, 1)
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateRepeat(t *testing.T) {
	head := cfg.NewBlock(0, 0, 3, []ir.Instruction{
		pushImm(0, 4),
		{Address: 1, Opcode: ir.Duplicate},
		{Address: 2, Opcode: ir.Compare, Comparison: ir.CmpLE},
	})
	body := cfg.NewBlock(1, 3, 5, []ir.Instruction{pushImm(3, 1), {Address: 4, Opcode: ir.PopDelete}})
	r := cfg.NewRepeatLoop(head, body, cfg.NewEmpty(5))

	st := newState()
	stmt, err := simulateRepeat(st, r)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stmt.Count.(*dast.IntExpr).Value)
	require.Len(t, stmt.Body.Stmts, 1)
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateWith(t *testing.T) {
	head := cfg.NewBlock(0, 0, 4, []ir.Instruction{
		pushImm(0, 1),
		{Address: 1, Opcode: ir.PushWithContext, Value: ir.Value{Int: 10}},
		pushImm(2, 2),
		{Address: 3, Opcode: ir.PopDelete},
	})
	w := cfg.NewWithLoop(head, cfg.NewEmpty(4))

	st := newState()
	stmt, err := simulateWith(st, w)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stmt.Target.(*dast.IntExpr).Value)
	require.Len(t, stmt.Body.Stmts, 1)
	assert.Equal(t, int64(2), stmt.Body.Stmts[0].(*dast.ExprStmt).Expr.(*dast.IntExpr).Value)
}

func TestSimulateSwitch(t *testing.T) {
	subject := cfg.NewBlock(0, 0, 3, []ir.Instruction{
		{Address: 0, Opcode: ir.Duplicate},
		pushImm(1, 1),
		{Address: 2, Opcode: ir.Compare, Comparison: ir.CmpEQ},
	})
	caseBody := cfg.NewBlock(1, 3, 5, []ir.Instruction{pushImm(3, 5), {Address: 4, Opcode: ir.PopDelete}})
	cases := []cfg.SwitchCase{
		{Values: []ir.Value{{Int: 1}}, Body: caseBody},
		{IsDefault: true},
	}
	sw := cfg.NewSwitch(subject, cases)

	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 99})
	stmt, err := simulateSwitch(st, sw)
	require.NoError(t, err)

	assert.Equal(t, int64(99), stmt.Subject.(*dast.IntExpr).Value)
	require.Len(t, stmt.Cases, 2)
	assert.Equal(t, int64(1), stmt.Cases[0].Values[0].(*dast.IntExpr).Value)
	require.NotNil(t, stmt.Cases[0].Body)
	assert.Len(t, stmt.Cases[0].Body.Stmts, 1)
	assert.True(t, stmt.Cases[1].IsDefault)
	assert.Nil(t, stmt.Cases[1].Body)
	assert.Equal(t, 0, st.stack.Len())
}

func TestSimulateTryCatchFinally(t *testing.T) {
	try := cfg.NewBlock(0, 0, 2, []ir.Instruction{pushImm(0, 1), {Address: 1, Opcode: ir.PopDelete}})
	finally := cfg.NewBlock(1, 2, 4, []ir.Instruction{pushImm(2, 2), {Address: 3, Opcode: ir.PopDelete}})
	tcf := cfg.NewTryCatchFinally(try, nil, finally)

	st := newState()
	stmt, err := simulateTryCatchFinally(st, tcf)
	require.NoError(t, err)

	assert.Nil(t, stmt.Catch)
	require.Len(t, stmt.Try.Stmts, 1)
	require.Len(t, stmt.Finally.Stmts, 1)
}

func TestSimulate_DataLeftoverWarning(t *testing.T) {
	block := cfg.NewBlock(0, 0, 1, []ir.Instruction{pushImm(0, 0)})
	frag := cfg.NewFragment(&ir.CodeEntry{Name: "root"}, block)

	sim := &Simulator{}
	_, warnings, err := sim.Simulate(frag, nil, "root")
	require.Error(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDataLeftover, warnings[0].Kind)
	assert.Equal(t, 1, warnings[0].NumberOfElements)
	assert.Equal(t, "root", warnings[0].EntryName)
}

func TestSimulate_DataLeftoverAllowed(t *testing.T) {
	block := cfg.NewBlock(0, 0, 1, []ir.Instruction{pushImm(0, 0)})
	frag := cfg.NewFragment(&ir.CodeEntry{Name: "root"}, block)

	sim := &Simulator{Config: Config{AllowLeftoverDataOnStack: true}}
	_, warnings, err := sim.Simulate(frag, nil, "root")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}
