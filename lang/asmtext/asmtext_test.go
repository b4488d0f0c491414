package asmtext_test

import (
	"strings"
	"testing"

	"github.com/mna/vmdecomp/lang/asmtext"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Errors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this string, no error expected if empty
	}{
		{"empty", ``, "expected 'entry: NAME'"},
		{"missing name", `entry:`, "expected 'entry: NAME'"},
		{"minimal", "entry: top\ncode:\n\tret\nend", ""},
		{"unknown opcode", "entry: top\ncode:\n\tfoobar\nend", `unknown opcode "foobar"`},
		{"missing branch arg", "entry: top\ncode:\n\tb\nend", "expects one branch-target index"},
		{"extra nop arg", "entry: top\ncode:\n\tnop 1\nend", "nop takes no operands"},
		{"unexpected section", "entry: top\nbogus:\nend", `unexpected section "bogus:"`},
		{"invalid branch target", "entry: top\ncode:\n\tb 5\n\tret\nend", "invalid branch target index 5"},
		{"unterminated entry", "entry: top\ncode:\n\tret\n", "unexpected end of input"},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := asmtext.Assemble(c.in)
			if c.err == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.err)
			}
		})
	}
}

func TestAssemble_BranchTargetTranslation(t *testing.T) {
	src := `
entry: top
locals: 1
args: 0
code:
	pushi 1
	bf 4
	pushi 2
	b 5
	pushi 3
	ret
end
`
	entry, err := asmtext.Assemble(src)
	require.NoError(t, err)
	require.Equal(t, "top", entry.Name)
	require.Equal(t, 1, entry.LocalCount)
	require.Equal(t, 6, entry.InstructionCount())

	bf := entry.GetInstruction(1)
	assert.Equal(t, ir.BranchFalse, bf.Opcode)
	assert.Equal(t, 4, bf.Target())

	b := entry.GetInstruction(3)
	assert.Equal(t, ir.Branch, b.Opcode)
	assert.Equal(t, 5, b.Target())
}

func TestAssemble_PushAndPopVariable(t *testing.T) {
	src := `
entry: top
code:
	push var normal self foo
	pop var normal self bar i32 bool
	ret
end
`
	entry, err := asmtext.Assemble(src)
	require.NoError(t, err)

	push := entry.GetInstruction(0)
	require.Equal(t, ir.Push, push.Opcode)
	require.Equal(t, ir.TypeVariable, push.Type1)
	require.NotNil(t, push.Variable)
	assert.Equal(t, "foo", push.Variable.Name)
	assert.Equal(t, ir.Self, push.InstanceType)
	assert.Equal(t, ir.RefNormal, push.ReferenceVarType)

	pop := entry.GetInstruction(1)
	require.Equal(t, ir.Pop, pop.Opcode)
	require.NotNil(t, pop.Variable)
	assert.Equal(t, "bar", pop.Variable.Name)
	assert.Equal(t, ir.TypeInt32, pop.Type1)
	assert.Equal(t, ir.TypeBoolean, pop.Type2)
}

func TestAssemble_PopSwap(t *testing.T) {
	entry, err := asmtext.Assemble("entry: top\ncode:\n\tpop swap 8\n\tret\nend")
	require.NoError(t, err)
	pop := entry.GetInstruction(0)
	assert.Nil(t, pop.Variable)
	assert.Equal(t, 8, pop.PopSwapSize())
}

func TestAssemble_CallAndString(t *testing.T) {
	entry, err := asmtext.Assemble(`
entry: top
code:
	push str "hello world"
	call 1 print
	popz
	ret
end
`)
	require.NoError(t, err)
	push := entry.GetInstruction(0)
	assert.Equal(t, "hello world", push.Value.Str)

	call := entry.GetInstruction(1)
	require.NotNil(t, call.Function)
	assert.Equal(t, "print", call.Function.Name)
	assert.Equal(t, 1, call.ArgumentCount())
}

func TestAssemble_NestedChildren(t *testing.T) {
	entry, err := asmtext.Assemble(`
entry: outer
code:
	call 0 inner
	ret
children:
	entry: inner
	code:
		ret
	end
end
`)
	require.NoError(t, err)
	require.Equal(t, 1, entry.ChildCount())
	child := entry.GetChild(0)
	assert.Equal(t, "inner", child.Name)
	assert.Same(t, entry, child.Parent)
}

func TestDisassemble_RoundTrip(t *testing.T) {
	src := `
entry: top
locals: 2
args: 1
code:
	pushi 123
	pop var normal self a i32
	push var normal self a
	bf 5
	push str "B is true"
	popz
	ret
end
`
	entry, err := asmtext.Assemble(src)
	require.NoError(t, err)

	out := asmtext.Disassemble(entry)
	require.True(t, strings.Contains(out, "entry: top"))

	reparsed, err := asmtext.Assemble(out)
	require.NoError(t, err)
	assert.Equal(t, entry.Name, reparsed.Name)
	assert.Equal(t, entry.LocalCount, reparsed.LocalCount)
	assert.Equal(t, entry.ArgumentCount, reparsed.ArgumentCount)
	require.Equal(t, entry.InstructionCount(), reparsed.InstructionCount())
	for i := 0; i < entry.InstructionCount(); i++ {
		assert.Equal(t, entry.GetInstruction(i), reparsed.GetInstruction(i), "instruction %d", i)
	}
}
