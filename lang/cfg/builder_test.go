package cfg_test

import (
	"testing"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func push(addr int) ir.Instruction { return ir.Instruction{Address: addr, Opcode: ir.Push} }

func branchFalse(addr, target int) ir.Instruction {
	return ir.Instruction{Address: addr, Opcode: ir.BranchFalse, Value: ir.Value{Int: int32(target - addr)}}
}

func branch(addr, target int) ir.Instruction {
	return ir.Instruction{Address: addr, Opcode: ir.Branch, Value: ir.Value{Int: int32(target - addr)}}
}

func ret(addr int) ir.Instruction { return ir.Instruction{Address: addr, Opcode: ir.Return} }

func TestBuildBlocks_SimpleIf(t *testing.T) {
	// 0: bf -> 4
	// 2: push
	// 4: ret
	insns := []ir.Instruction{
		branchFalse(0, 4),
		push(2),
		ret(4),
	}
	entry := &ir.CodeEntry{Name: "root", Instructions: insns, Length: 5}

	blocks, err := cfg.BuildBlocks(entry, cfg.Config{TryHookFunctionName: "@@try@@"})
	require.NoError(t, err)

	// leaders: 0, 2, 4, 5(sentinel)
	require.Len(t, blocks, 4)
	assert.Equal(t, 0, blocks[0].Start())
	assert.Equal(t, 2, blocks[0].End())
	assert.Len(t, blocks[0].Successors(), 2)

	assert.Equal(t, 2, blocks[1].Start())
	assert.Equal(t, 4, blocks[1].End())
	assert.Len(t, blocks[1].Successors(), 1)

	assert.Equal(t, 4, blocks[2].Start())
	assert.Equal(t, 5, blocks[2].End())
	assert.Empty(t, blocks[2].Successors())

	// sentinel
	assert.Equal(t, 5, blocks[3].Start())
	assert.Equal(t, 5, blocks[3].End())
	assert.Empty(t, blocks[3].Instructions)
}

func TestBuildBlocks_DanglingBranchFatal(t *testing.T) {
	insns := []ir.Instruction{branch(0, 100), ret(2)}
	entry := &ir.CodeEntry{Name: "root", Instructions: insns, Length: 3}

	_, err := cfg.BuildBlocks(entry, cfg.Config{})
	require.Error(t, err)
	var buildErr *cfg.BuildError
	assert.ErrorAs(t, err, &buildErr)
}

func TestBuildBlocks_UnreachablePatchUp(t *testing.T) {
	// 0: branch -> 4 (skips block at 2)
	// 2: push (unreachable)
	// 4: ret
	insns := []ir.Instruction{
		branch(0, 4),
		push(2),
		ret(4),
	}
	entry := &ir.CodeEntry{Name: "root", Instructions: insns, Length: 5}

	blocks, err := cfg.BuildBlocks(entry, cfg.Config{})
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	unreachableBlock := blocks[1]
	assert.Equal(t, 2, unreachableBlock.Start())
	assert.True(t, unreachableBlock.Unreachable())
	require.Len(t, unreachableBlock.Predecessors(), 1)
	assert.Same(t, blocks[0], unreachableBlock.Predecessors()[0])
}

func TestBuildBlocks_TryHookWindow(t *testing.T) {
	tryFn := &ir.FunctionRef{Name: "@@try@@"}
	insns := []ir.Instruction{
		{Address: 0, Opcode: ir.Push, Type1: ir.TypeInt32, Value: ir.Value{Int: 20}}, // finally addr
		{Address: 2, Opcode: ir.Convert},
		{Address: 3, Opcode: ir.Push, Type1: ir.TypeInt32, Value: ir.Value{Int: -1}}, // catch addr (-1: none)
		{Address: 5, Opcode: ir.Convert},
		{Address: 6, Opcode: ir.Call, Function: tryFn, Value: ir.Value{Int: 0}},
		{Address: 8, Opcode: ir.PopDelete},
		// try body
		{Address: 9, Opcode: ir.Return},
		// finally body, at the address the finally push names
		{Address: 20, Opcode: ir.Return},
	}
	entry := &ir.CodeEntry{Name: "root", Instructions: insns, Length: 21}

	blocks, err := cfg.BuildBlocks(entry, cfg.Config{TryHookFunctionName: "@@try@@"})
	require.NoError(t, err)

	var hookBlock *cfg.Block
	for _, b := range blocks {
		if b.TryHook {
			hookBlock = b
		}
	}
	require.NotNil(t, hookBlock)
	assert.Equal(t, 0, hookBlock.Start())
	assert.Equal(t, 9, hookBlock.End())
	assert.Equal(t, 20, hookBlock.FinallyAddr)
	assert.Equal(t, -1, hookBlock.CatchAddr)
}

func TestBuildBlocks_MalformedTryHookFatal(t *testing.T) {
	tryFn := &ir.FunctionRef{Name: "@@try@@"}
	insns := []ir.Instruction{
		{Address: 0, Opcode: ir.Push, Type1: ir.TypeInt32},
		{Address: 2, Opcode: ir.Convert},
		{Address: 3, Opcode: ir.Push, Type1: ir.TypeInt32},
		{Address: 5, Opcode: ir.Convert},
		{Address: 6, Opcode: ir.Call, Function: tryFn},
		{Address: 8, Opcode: ir.Convert}, // should be PopDelete
	}
	entry := &ir.CodeEntry{Name: "root", Instructions: insns, Length: 10}

	_, err := cfg.BuildBlocks(entry, cfg.Config{TryHookFunctionName: "@@try@@"})
	require.Error(t, err)
}
