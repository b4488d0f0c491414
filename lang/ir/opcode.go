// Package ir defines the instruction-level intermediate representation the
// decompiler core consumes: the VM's opcodes and operand enumerations (§3 of
// the design spec) and the CodeEntry/Instruction shapes produced by the
// (out-of-scope) bytecode loader.
package ir

import "fmt"

// Opcode enumerates the VM instruction set the core understands. The exact
// numeric values are internal to this module; a real loader would translate
// from the VM's own opcode byte to this enumeration.
type Opcode uint8

const (
	Nop Opcode = iota

	Branch
	BranchTrue
	BranchFalse

	PushWithContext
	PopWithContext

	Push
	PushImmediate
	PushLocal
	PushGlobal
	PushBuiltin

	Pop
	PopDelete

	Call
	Return
	Exit

	Convert
	Duplicate
	Extended

	// unary family
	Not
	Negate

	// arithmetic / bitwise / compare family
	Add
	Sub
	Mul
	Div
	Mod
	Rem
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	Compare
)

var opcodeNames = [...]string{
	Nop:             "nop",
	Branch:          "b",
	BranchTrue:      "bt",
	BranchFalse:     "bf",
	PushWithContext: "pushenv",
	PopWithContext:  "popenv",
	Push:            "push",
	PushImmediate:   "pushi",
	PushLocal:       "pushloc",
	PushGlobal:      "pushglb",
	PushBuiltin:     "pushbltn",
	Pop:             "pop",
	PopDelete:       "popz",
	Call:            "call",
	Return:          "ret",
	Exit:            "exit",
	Convert:         "conv",
	Duplicate:       "dup",
	Extended:        "extended",
	Not:             "not",
	Negate:          "neg",
	Add:             "add",
	Sub:             "sub",
	Mul:             "mul",
	Div:             "div",
	Mod:             "mod",
	Rem:             "rem",
	BitAnd:          "and",
	BitOr:           "or",
	BitXor:          "xor",
	Shl:             "shl",
	Shr:             "shr",
	Compare:         "cmp",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", uint8(op))
}

// IsBranch reports whether op carries a branch-offset operand (the set of
// opcodes the Block Builder consults to find leaders and successors).
func (op Opcode) IsBranch() bool {
	switch op {
	case Branch, BranchTrue, BranchFalse, PushWithContext:
		return true
	default:
		return false
	}
}

// IsUnary reports whether op is one of the unary operator family (Not,
// Negate).
func (op Opcode) IsUnary() bool {
	return op == Not || op == Negate
}

// UnaryKind returns the unary operator string for op. It panics if op is
// not Not or Negate, a programmer error in a caller.
func (op Opcode) UnaryKind() string {
	switch op {
	case Not:
		return "!"
	case Negate:
		return "-"
	default:
		panic(fmt.Sprintf("ir: %s is not a unary opcode", op))
	}
}

// IsArith reports whether op is one of the binary arithmetic/bitwise/
// compare family (Add..Compare).
func (op Opcode) IsArith() bool {
	return op >= Add && op <= Compare
}

// ExtendedOpcode enumerates the sub-opcodes carried by an Extended
// instruction. Only the two named in the design spec are given core-level
// treatment; any other value is handled uniformly as an unsupported opcode.
type ExtendedOpcode uint8

const (
	ExtNone ExtendedOpcode = iota
	ExtSetArrayOwner
	ExtPushReference
)

func (e ExtendedOpcode) String() string {
	switch e {
	case ExtSetArrayOwner:
		return "setarrayowner"
	case ExtPushReference:
		return "pushref"
	default:
		return fmt.Sprintf("extended(%d)", uint8(e))
	}
}

// DataType enumerates the VM's value types, used by Instruction.Type1/Type2
// to describe operand and result typing for Push/Pop/Convert.
type DataType uint8

const (
	TypeInt16 DataType = iota
	TypeInt32
	TypeInt64
	TypeDouble
	TypeBoolean
	TypeString
	TypeVariable
)

func (t DataType) String() string {
	switch t {
	case TypeInt16:
		return "i16"
	case TypeInt32:
		return "i32"
	case TypeInt64:
		return "i64"
	case TypeDouble:
		return "f64"
	case TypeBoolean:
		return "bool"
	case TypeString:
		return "str"
	case TypeVariable:
		return "var"
	default:
		return fmt.Sprintf("datatype(%d)", uint8(t))
	}
}

// InstanceType enumerates the well-known left-operand instance kinds a
// Variable-typed instruction may carry. Values at or above FirstObjectID
// identify a specific numeric object id, resolved by the (out-of-scope)
// loader's object table; the core never needs to look it up, only to compare
// it against the named constants below.
type InstanceType int32

const (
	Undefined InstanceType = iota - 6
	Self
	Other
	All
	Noone
	Global
	Local
	Builtin
	StackTop
)

// FirstObjectID is the smallest InstanceType value considered to be a
// concrete numeric object id rather than one of the named constants above.
const FirstObjectID InstanceType = 0x100000

func (t InstanceType) String() string {
	switch t {
	case Self:
		return "self"
	case Other:
		return "other"
	case All:
		return "all"
	case Noone:
		return "noone"
	case Global:
		return "global"
	case Local:
		return "local"
	case Builtin:
		return "builtin"
	case StackTop:
		return "stacktop"
	case Undefined:
		return "undefined"
	default:
		if t >= FirstObjectID {
			return fmt.Sprintf("object(%d)", int32(t))
		}
		return fmt.Sprintf("instancetype(%d)", int32(t))
	}
}

// ReferenceVarType enumerates how a Pop instruction's left-hand side is
// resolved: directly off the stack, through array indices, or as a plain
// named variable.
type ReferenceVarType uint8

const (
	RefNormal ReferenceVarType = iota
	RefStackTop
	RefArray
)

func (t ReferenceVarType) String() string {
	switch t {
	case RefStackTop:
		return "stacktop"
	case RefArray:
		return "array"
	default:
		return "normal"
	}
}

// ComparisonKind enumerates the comparison operators carried by a Compare
// instruction.
type ComparisonKind uint8

const (
	CmpLT ComparisonKind = iota
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNEQ
)

func (c ComparisonKind) String() string {
	switch c {
	case CmpLT:
		return "<"
	case CmpLE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGE:
		return ">="
	case CmpEQ:
		return "=="
	case CmpNEQ:
		return "!="
	default:
		return fmt.Sprintf("cmp(%d)", uint8(c))
	}
}

// ArithKind returns the arithmetic/bitwise operator string for one of the
// Opcode family members Add..Shr, used by the printer. It panics if op is
// not one of that family (Compare included: its operator comes from the
// instruction's ComparisonKind), which would be a programmer error in a
// caller.
func (op Opcode) ArithKind() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod, Rem:
		return "%"
	case BitAnd:
		return "&"
	case BitOr:
		return "|"
	case BitXor:
		return "^"
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	default:
		panic(fmt.Sprintf("ir: %s is not an arithmetic opcode", op))
	}
}
