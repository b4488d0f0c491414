package asmtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/vmdecomp/lang/ir"
)

// Disassemble renders entry (and, recursively, its Children) back to the
// textual format Assemble parses, translating every branch-family target
// address back to an instruction index the way the teacher's Dasm does
// with its addrToIndex table.
func Disassemble(entry *ir.CodeEntry) string {
	var b strings.Builder
	writeEntry(&b, entry, 0)
	return b.String()
}

func writeEntry(b *strings.Builder, entry *ir.CodeEntry, depth int) {
	ind := strings.Repeat("\t", depth)
	fmt.Fprintf(b, "%sentry: %s\n", ind, entry.Name)
	fmt.Fprintf(b, "%slocals: %d\n", ind, entry.LocalCount)
	fmt.Fprintf(b, "%sargs: %d\n", ind, entry.ArgumentCount)
	if entry.StartOffset != 0 {
		fmt.Fprintf(b, "%sstart: %d\n", ind, entry.StartOffset)
	}

	addrToIndex := make(map[int]int, len(entry.Instructions))
	for i, instr := range entry.Instructions {
		addrToIndex[instr.Address] = i
	}

	if len(entry.Instructions) > 0 {
		fmt.Fprintf(b, "%scode:\n", ind)
		for _, instr := range entry.Instructions {
			fmt.Fprintf(b, "%s\t%s\n", ind, formatInstruction(instr, addrToIndex))
		}
	}

	if len(entry.Children) > 0 {
		fmt.Fprintf(b, "%schildren:\n", ind)
		for _, child := range entry.Children {
			writeEntry(b, child, depth+1)
		}
	}
	fmt.Fprintf(b, "%send\n", ind)
}

func formatInstruction(instr ir.Instruction, addrToIndex map[int]int) string {
	mnemonic := instr.Opcode.String()
	switch instr.Opcode {
	case ir.Nop, ir.Return, ir.Exit, ir.PopDelete,
		ir.Not, ir.Negate,
		ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod, ir.Rem,
		ir.BitAnd, ir.BitOr, ir.BitXor, ir.Shl, ir.Shr:
		return mnemonic

	case ir.Compare:
		return mnemonic + " " + instr.Comparison.String()

	case ir.Branch, ir.BranchTrue, ir.BranchFalse, ir.PushWithContext:
		idx, ok := addrToIndex[instr.Target()]
		if !ok {
			return fmt.Sprintf("%s <invalid target %d>", mnemonic, instr.Target())
		}
		return fmt.Sprintf("%s %d", mnemonic, idx)

	case ir.PopWithContext:
		if instr.PopWithContextExit() {
			return mnemonic + " exit"
		}
		idx, ok := addrToIndex[instr.Target()]
		if !ok {
			return fmt.Sprintf("%s cont <invalid target %d>", mnemonic, instr.Target())
		}
		return fmt.Sprintf("%s cont %d", mnemonic, idx)

	case ir.PushImmediate:
		return fmt.Sprintf("%s %d", mnemonic, instr.Value.Short)

	case ir.Push, ir.PushLocal, ir.PushGlobal, ir.PushBuiltin:
		return mnemonic + " " + formatPushOperand(instr)

	case ir.Pop:
		return mnemonic + " " + formatPopOperand(instr)

	case ir.Call:
		name := "<nil>"
		if instr.Function != nil {
			name = instr.Function.Name
		}
		return fmt.Sprintf("%s %d %s", mnemonic, instr.Value.Int, name)

	case ir.Convert:
		return fmt.Sprintf("%s %s %s", mnemonic, instr.Type1, instr.Type2)

	case ir.Duplicate:
		if instr.Value.DuplicationSize == 0 && instr.Value.DuplicationSize2 == 0 {
			return mnemonic
		}
		return fmt.Sprintf("%s %d %d", mnemonic, instr.Value.DuplicationSize, instr.Value.DuplicationSize2)

	case ir.Extended:
		return mnemonic + " " + instr.ExtendedOpcode.String()

	default:
		return fmt.Sprintf("%s <unsupported>", mnemonic)
	}
}

func formatPushOperand(instr ir.Instruction) string {
	switch instr.Type1 {
	case ir.TypeInt16:
		return fmt.Sprintf("i16 %d", instr.Value.Short)
	case ir.TypeInt32:
		if instr.Function != nil {
			return "func " + instr.Function.Name
		}
		return fmt.Sprintf("i32 %d", instr.Value.Int)
	case ir.TypeInt64:
		return fmt.Sprintf("i64 %d", instr.Value.Long)
	case ir.TypeDouble:
		return fmt.Sprintf("f64 %s", strconv.FormatFloat(instr.Value.Double, 'g', -1, 64))
	case ir.TypeBoolean:
		return fmt.Sprintf("bool %t", instr.Value.Bool)
	case ir.TypeString:
		return fmt.Sprintf("str %s", strconv.Quote(instr.Value.Str))
	case ir.TypeVariable:
		return "var " + formatVarOperand(instr)
	default:
		return fmt.Sprintf("<unsupported push type %s>", instr.Type1)
	}
}

func formatVarOperand(instr ir.Instruction) string {
	name := ""
	if instr.Variable != nil {
		name = instr.Variable.Name
	}
	return fmt.Sprintf("%s %s %s", instr.ReferenceVarType, instanceTypeName(instr.InstanceType), name)
}

func formatPopOperand(instr ir.Instruction) string {
	if instr.Variable == nil {
		return fmt.Sprintf("swap %d", instr.Value.Int)
	}
	s := "var " + formatVarOperand(instr) + " " + instr.Type1.String()
	if instr.Type2 != 0 {
		s += " " + instr.Type2.String()
	}
	return s
}
