package asmtext

import (
	"fmt"
	"strconv"

	"github.com/mna/vmdecomp/lang/ir"
)

// Assemble parses src and returns the single top-level ir.CodeEntry it
// describes, with any nested "children:" entries attached and Parent
// back-references wired up.
func Assemble(src string) (*ir.CodeEntry, error) {
	c := newCursor(src)
	entry, err := parseEntry(c, nil)
	if err != nil {
		return nil, err
	}
	if rest := c.peek(); rest != nil {
		return nil, fmt.Errorf("asmtext: unexpected trailing content: %s", rest[0])
	}
	return entry, nil
}

func parseEntry(c *cursor, parent *ir.CodeEntry) (*ir.CodeEntry, error) {
	fields := c.take()
	if len(fields) < 2 || fields[0] != "entry:" {
		return nil, fmt.Errorf("asmtext: expected 'entry: NAME', got %v", fields)
	}
	entry := &ir.CodeEntry{Name: fields[1], Parent: parent}

	for {
		fields = c.peek()
		if fields == nil {
			return nil, fmt.Errorf("asmtext: unexpected end of input in entry %q", entry.Name)
		}
		switch fields[0] {
		case "locals:":
			n, err := parseIntField(c.take(), "locals:")
			if err != nil {
				return nil, err
			}
			entry.LocalCount = n
		case "args:":
			n, err := parseIntField(c.take(), "args:")
			if err != nil {
				return nil, err
			}
			entry.ArgumentCount = n
		case "start:":
			n, err := parseIntField(c.take(), "start:")
			if err != nil {
				return nil, err
			}
			entry.StartOffset = n
		case "code:":
			c.take()
			insns, length, err := parseCode(c)
			if err != nil {
				return nil, fmt.Errorf("asmtext: entry %q: %w", entry.Name, err)
			}
			entry.Instructions = insns
			entry.Length = length
		case "children:":
			c.take()
			for {
				fields = c.peek()
				if fields == nil {
					return nil, fmt.Errorf("asmtext: unexpected end of input in entry %q children", entry.Name)
				}
				if fields[0] != "entry:" {
					break
				}
				child, err := parseEntry(c, entry)
				if err != nil {
					return nil, err
				}
				entry.Children = append(entry.Children, child)
			}
		case "end":
			c.take()
			return entry, nil
		default:
			return nil, fmt.Errorf("asmtext: entry %q: unexpected section %q", entry.Name, fields[0])
		}
	}
}

func parseIntField(fields []string, name string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("asmtext: %s expects one value, got %d fields", name, len(fields)-1)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("asmtext: invalid %s value %q: %w", name, fields[1], err)
	}
	return n, nil
}

// branchFix records a branch-family instruction's slice index and the raw
// target index parsed from source, so it can be translated to a relative
// offset once the full instruction count (and therefore every address) is
// known -- the same two-pass shape as the teacher's asm.code().
type branchFix struct {
	insnIndex  int
	targetIdx  int
}

func parseCode(c *cursor) ([]ir.Instruction, int, error) {
	var insns []ir.Instruction
	var fixes []branchFix

	for {
		fields := c.peek()
		if fields == nil || fields[0] == "end" || fields[0] == "children:" {
			break
		}
		c.take()

		addr := len(insns)
		instr, targetIdx, isBranch, err := parseInstruction(addr, fields)
		if err != nil {
			return nil, 0, err
		}
		if isBranch {
			fixes = append(fixes, branchFix{insnIndex: len(insns), targetIdx: targetIdx})
		}
		insns = append(insns, instr)
	}

	length := len(insns)
	for _, fx := range fixes {
		if fx.targetIdx < 0 || fx.targetIdx > length {
			return nil, 0, fmt.Errorf("invalid branch target index %d (code has %d instructions)", fx.targetIdx, length)
		}
		insns[fx.insnIndex].Value.Int = int32(fx.targetIdx - fx.insnIndex)
	}
	return insns, length, nil
}

// parseInstruction builds the instruction at address addr from one
// "mnemonic [operands...]" line. For a branch-family opcode, targetIdx is
// the raw line-index operand and isBranch is true; Value.Int is left
// unset here and patched by parseCode's second pass.
func parseInstruction(addr int, fields []string) (instr ir.Instruction, targetIdx int, isBranch bool, err error) {
	mnemonic := fields[0]
	op, ok := opcodeByMnemonic[mnemonic]
	if !ok {
		return instr, 0, false, fmt.Errorf("unknown opcode %q", mnemonic)
	}
	instr.Address = addr
	instr.Opcode = op
	args := fields[1:]

	switch op {
	case ir.Nop, ir.Return, ir.Exit, ir.PopDelete,
		ir.Not, ir.Negate,
		ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod, ir.Rem,
		ir.BitAnd, ir.BitOr, ir.BitXor, ir.Shl, ir.Shr:
		if len(args) != 0 {
			return instr, 0, false, fmt.Errorf("%s takes no operands", mnemonic)
		}

	case ir.Compare:
		if len(args) != 1 {
			return instr, 0, false, fmt.Errorf("cmp expects one comparison operator")
		}
		cmp, ok := comparisonByName[args[0]]
		if !ok {
			return instr, 0, false, fmt.Errorf("invalid comparison operator %q", args[0])
		}
		instr.Comparison = cmp

	case ir.Branch, ir.BranchTrue, ir.BranchFalse, ir.PushWithContext:
		if len(args) != 1 {
			return instr, 0, false, fmt.Errorf("%s expects one branch-target index", mnemonic)
		}
		idx, perr := strconv.Atoi(args[0])
		if perr != nil {
			return instr, 0, false, fmt.Errorf("invalid branch target %q: %w", args[0], perr)
		}
		return instr, idx, true, nil

	case ir.PopWithContext:
		// "popenv exit" has no continuation target; "popenv cont <idx>" loops
		// back to the loop head, the same branch-target index shape as the
		// branch family.
		switch {
		case len(args) == 1 && args[0] == "exit":
			instr.Value.Bool = true
		case len(args) == 2 && args[0] == "cont":
			idx, perr := strconv.Atoi(args[1])
			if perr != nil {
				return instr, 0, false, fmt.Errorf("invalid popenv target %q: %w", args[1], perr)
			}
			instr.Value.Bool = false
			return instr, idx, true, nil
		default:
			return instr, 0, false, fmt.Errorf("popenv expects 'exit' or 'cont <idx>'")
		}

	case ir.PushImmediate:
		if len(args) != 1 {
			return instr, 0, false, fmt.Errorf("pushi expects one int16 value")
		}
		n, perr := strconv.ParseInt(args[0], 10, 16)
		if perr != nil {
			return instr, 0, false, fmt.Errorf("invalid pushi value %q: %w", args[0], perr)
		}
		instr.Value.Short = int16(n)

	case ir.Push, ir.PushLocal, ir.PushGlobal, ir.PushBuiltin:
		if err := parsePushOperand(&instr, args); err != nil {
			return instr, 0, false, err
		}

	case ir.Pop:
		if err := parsePopOperand(&instr, args); err != nil {
			return instr, 0, false, err
		}

	case ir.Call:
		if len(args) != 2 {
			return instr, 0, false, fmt.Errorf("call expects '<argcount> <name>'")
		}
		n, perr := strconv.Atoi(args[0])
		if perr != nil {
			return instr, 0, false, fmt.Errorf("invalid call argument count %q: %w", args[0], perr)
		}
		instr.Value.Int = int32(n)
		instr.Function = &ir.FunctionRef{Name: args[1]}

	case ir.Convert:
		if len(args) != 2 {
			return instr, 0, false, fmt.Errorf("conv expects '<type1> <type2>'")
		}
		t1, ok := dataTypeByName[args[0]]
		if !ok {
			return instr, 0, false, fmt.Errorf("invalid conv source type %q", args[0])
		}
		t2, ok := dataTypeByName[args[1]]
		if !ok {
			return instr, 0, false, fmt.Errorf("invalid conv target type %q", args[1])
		}
		instr.Type1, instr.Type2 = t1, t2

	case ir.Duplicate:
		if len(args) > 2 {
			return instr, 0, false, fmt.Errorf("dup takes at most two size operands")
		}
		if len(args) >= 1 {
			n, perr := strconv.Atoi(args[0])
			if perr != nil {
				return instr, 0, false, fmt.Errorf("invalid dup size %q: %w", args[0], perr)
			}
			instr.Value.DuplicationSize = n
		}
		if len(args) == 2 {
			n, perr := strconv.Atoi(args[1])
			if perr != nil {
				return instr, 0, false, fmt.Errorf("invalid dup size2 %q: %w", args[1], perr)
			}
			instr.Value.DuplicationSize2 = n
		}

	case ir.Extended:
		if len(args) != 1 {
			return instr, 0, false, fmt.Errorf("extended expects one sub-opcode name")
		}
		if ext, ok := extendedByName[args[0]]; ok {
			instr.ExtendedOpcode = ext
		} else {
			instr.ExtendedOpcode = ir.ExtNone
		}

	default:
		return instr, 0, false, fmt.Errorf("asmtext: opcode %s has no known operand syntax", op)
	}

	return instr, 0, false, nil
}

// parsePushOperand parses a push/pushloc/pushglb/pushbltn operand, one of:
// "i16/i32/i64/f64 N", "bool true|false", "str \"...\"", "func NAME", or
// "var REFTYPE INSTANCE NAME".
func parsePushOperand(instr *ir.Instruction, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("push expects an operand")
	}
	switch args[0] {
	case "i16":
		n, err := requireInt(args, 1, "i16 value")
		if err != nil {
			return err
		}
		instr.Type1 = ir.TypeInt16
		instr.Value.Short = int16(n)
	case "i32":
		n, err := requireInt(args, 1, "i32 value")
		if err != nil {
			return err
		}
		instr.Type1 = ir.TypeInt32
		instr.Value.Int = int32(n)
	case "i64":
		n, err := requireInt(args, 1, "i64 value")
		if err != nil {
			return err
		}
		instr.Type1 = ir.TypeInt64
		instr.Value.Long = n
	case "f64":
		if len(args) != 2 {
			return fmt.Errorf("push f64 expects one value")
		}
		f, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid push f64 value %q: %w", args[1], err)
		}
		instr.Type1 = ir.TypeDouble
		instr.Value.Double = f
	case "bool":
		if len(args) != 2 {
			return fmt.Errorf("push bool expects one value")
		}
		b, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid push bool value %q: %w", args[1], err)
		}
		instr.Type1 = ir.TypeBoolean
		instr.Value.Bool = b
	case "str":
		if len(args) != 2 {
			return fmt.Errorf("push str expects one quoted value")
		}
		s, err := strconv.Unquote(args[1])
		if err != nil {
			return fmt.Errorf("invalid push str value %q: %w", args[1], err)
		}
		instr.Type1 = ir.TypeString
		instr.Value.Str = s
	case "func":
		if len(args) != 2 {
			return fmt.Errorf("push func expects one name")
		}
		instr.Type1 = ir.TypeInt32
		instr.Function = &ir.FunctionRef{Name: args[1]}
	case "var":
		return parseVarOperand(instr, args[1:])
	default:
		return fmt.Errorf("invalid push operand kind %q", args[0])
	}
	return nil
}

// parseVarOperand parses "REFTYPE INSTANCE NAME" shared by push/pop
// variable operands, setting ReferenceVarType/InstanceType/Variable and
// (for push) Type1=TypeVariable.
func parseVarOperand(instr *ir.Instruction, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("var operand expects 'REFTYPE INSTANCE NAME', got %d fields", len(args))
	}
	refType, ok := refVarTypeByName[args[0]]
	if !ok {
		return fmt.Errorf("invalid reference var type %q", args[0])
	}
	instanceType, err := parseInstanceType(args[1])
	if err != nil {
		return err
	}
	instr.Type1 = ir.TypeVariable
	instr.ReferenceVarType = refType
	instr.InstanceType = instanceType
	instr.Variable = &ir.VariableRef{Name: args[2], InstanceType: instanceType}
	return nil
}

// parsePopOperand parses a pop operand, one of "swap SIZE" (variable-less
// pop-swap) or "var REFTYPE INSTANCE NAME TYPE1 [TYPE2]" (assignment, where
// TYPE1/TYPE2 mirror Convert's type tokens and drive the pop-order and
// boolean-coercion rules).
func parsePopOperand(instr *ir.Instruction, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("pop expects an operand")
	}
	switch args[0] {
	case "swap":
		n, err := requireInt(args, 1, "swap size")
		if err != nil {
			return err
		}
		instr.Value.Int = int32(n)
		return nil
	case "var":
		rest := args[1:]
		if len(rest) < 4 || len(rest) > 5 {
			return fmt.Errorf("pop var expects 'REFTYPE INSTANCE NAME TYPE1 [TYPE2]', got %d fields", len(rest))
		}
		if err := parseVarOperand(instr, rest[:3]); err != nil {
			return err
		}
		t1, ok := dataTypeByName[rest[3]]
		if !ok {
			return fmt.Errorf("invalid pop type1 %q", rest[3])
		}
		instr.Type1 = t1
		if len(rest) == 5 {
			t2, ok := dataTypeByName[rest[4]]
			if !ok {
				return fmt.Errorf("invalid pop type2 %q", rest[4])
			}
			instr.Type2 = t2
		}
		return nil
	default:
		return fmt.Errorf("invalid pop operand kind %q", args[0])
	}
}

func requireInt(args []string, i int, what string) (int64, error) {
	if len(args) != i+1 {
		return 0, fmt.Errorf("expected %s", what)
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, args[i], err)
	}
	return n, nil
}
