package structure

import (
	"testing"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverSwitches_DispatchChain(t *testing.T) {
	before := cfg.NewBlock(0, 0, 1, nil)
	head0 := cfg.NewBlock(1, 1, 2, []ir.Instruction{
		{Opcode: ir.Duplicate},
		{Opcode: ir.Push, Value: ir.Value{Int: 1}},
		{Opcode: ir.Compare, Comparison: ir.CmpEQ},
		{Opcode: ir.BranchTrue},
	})
	head1 := cfg.NewBlock(2, 2, 3, []ir.Instruction{
		{Opcode: ir.Duplicate},
		{Opcode: ir.Push, Value: ir.Value{Int: 2}},
		{Opcode: ir.Compare, Comparison: ir.CmpEQ},
		{Opcode: ir.BranchTrue},
	})
	case1Body := cfg.NewBlock(3, 3, 4, []ir.Instruction{{Opcode: ir.Push}, {Opcode: ir.Branch}})
	case2Body := cfg.NewBlock(4, 4, 5, []ir.Instruction{{Opcode: ir.Push}, {Opcode: ir.Branch}})
	defaultBody := cfg.NewBlock(5, 5, 6, []ir.Instruction{{Opcode: ir.Push}, {Opcode: ir.Branch}})
	merge := cfg.NewBlock(6, 6, 7, nil)

	link(before, head0)
	link(head0, head1)     // not-equal: continue the chain
	link(head0, case1Body) // equal: case 1
	link(head1, defaultBody)
	link(head1, case2Body) // equal: case 2
	link(case1Body, merge)
	link(case2Body, merge)
	link(defaultBody, merge)

	pool := &Pool{nodes: []cfg.Node{before, head0, head1, case1Body, case2Body, defaultBody, merge}}
	require.NoError(t, recoverSwitchesIn(pool, nil, Config{}))

	require.Len(t, before.Successors(), 1)
	sw, ok := before.Successors()[0].(*cfg.Switch)
	require.True(t, ok)
	assert.Same(t, cfg.Node(head0), sw.SubjectNode)
	require.Len(t, sw.Cases, 3)
	assert.Same(t, cfg.Node(case1Body), sw.Cases[0].Body)
	assert.Same(t, cfg.Node(case2Body), sw.Cases[1].Body)
	assert.True(t, sw.Cases[2].IsDefault)
	assert.Same(t, cfg.Node(defaultBody), sw.Cases[2].Body)

	require.Len(t, sw.Successors(), 1)
	assert.Same(t, cfg.Node(merge), sw.Successors()[0])

	assert.Empty(t, head0.Successors())
	assert.Empty(t, head1.Successors())
	assert.Empty(t, case1Body.Successors())
	assert.Empty(t, case2Body.Successors())
	assert.Empty(t, defaultBody.Successors())

	assert.Same(t, cfg.Node(sw), head0.Parent())
	assert.Same(t, cfg.Node(sw), head1.Parent())
	assert.Same(t, cfg.Node(sw), case1Body.Parent())
	assert.Same(t, cfg.Node(sw), case2Body.Parent())
	assert.Same(t, cfg.Node(sw), defaultBody.Parent())
}
