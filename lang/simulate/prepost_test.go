package simulate

import (
	"testing"

	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverPrefixPostfix_SingleGroup(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 1})
	st.stack.Push(&dast.IntExpr{Value: 2})

	instr := ir.Instruction{Opcode: ir.Duplicate, Value: ir.Value{DuplicationSize: 2}}
	require.NoError(t, simulateInstr(st, instr, &[]dast.Stmt{}))

	require.Equal(t, 4, st.stack.Len())
	top, dup, _ := st.stack.Pop()
	assert.True(t, dup)
	assert.Equal(t, int64(2), top.(*dast.IntExpr).Value)
	next, dup, _ := st.stack.Pop()
	assert.True(t, dup)
	assert.Equal(t, int64(1), next.(*dast.IntExpr).Value)
}

func TestRecoverPrefixPostfix_TwoGroups(t *testing.T) {
	st := newState()
	st.stack.Push(&dast.IntExpr{Value: 1})

	instr := ir.Instruction{Opcode: ir.Duplicate, Value: ir.Value{DuplicationSize: 1, DuplicationSize2: 2}}
	require.NoError(t, simulateInstr(st, instr, &[]dast.Stmt{}))

	// after first duplicate of top 1 item: [1, 1] (top duplicated)
	// after second duplicate of top 2 items: [1, 1, 1, 1]
	require.Equal(t, 4, st.stack.Len())
}

func TestRecoverPrefixPostfix_InsufficientDepth(t *testing.T) {
	st := newState()
	instr := ir.Instruction{Opcode: ir.Duplicate, Value: ir.Value{DuplicationSize: 3}}
	err := simulateInstr(st, instr, &[]dast.Stmt{})
	assert.Error(t, err)
}
