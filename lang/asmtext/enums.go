package asmtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/vmdecomp/lang/ir"
)

// opcodeByMnemonic is the reverse of ir's own opcodeNames table (unexported
// there), built from the same mnemonics documented on ir.Opcode.String.
var opcodeByMnemonic = map[string]ir.Opcode{
	"nop":      ir.Nop,
	"b":        ir.Branch,
	"bt":       ir.BranchTrue,
	"bf":       ir.BranchFalse,
	"pushenv":  ir.PushWithContext,
	"popenv":   ir.PopWithContext,
	"push":     ir.Push,
	"pushi":    ir.PushImmediate,
	"pushloc":  ir.PushLocal,
	"pushglb":  ir.PushGlobal,
	"pushbltn": ir.PushBuiltin,
	"pop":      ir.Pop,
	"popz":     ir.PopDelete,
	"call":     ir.Call,
	"ret":      ir.Return,
	"exit":     ir.Exit,
	"conv":     ir.Convert,
	"dup":      ir.Duplicate,
	"extended": ir.Extended,
	"not":      ir.Not,
	"neg":      ir.Negate,
	"add":      ir.Add,
	"sub":      ir.Sub,
	"mul":      ir.Mul,
	"div":      ir.Div,
	"mod":      ir.Mod,
	"rem":      ir.Rem,
	"and":      ir.BitAnd,
	"or":       ir.BitOr,
	"xor":      ir.BitXor,
	"shl":      ir.Shl,
	"shr":      ir.Shr,
	"cmp":      ir.Compare,
}

var dataTypeByName = map[string]ir.DataType{
	"i16":  ir.TypeInt16,
	"i32":  ir.TypeInt32,
	"i64":  ir.TypeInt64,
	"f64":  ir.TypeDouble,
	"bool": ir.TypeBoolean,
	"str":  ir.TypeString,
	"var":  ir.TypeVariable,
}

var refVarTypeByName = map[string]ir.ReferenceVarType{
	"normal":   ir.RefNormal,
	"stacktop": ir.RefStackTop,
	"array":    ir.RefArray,
}

var comparisonByName = map[string]ir.ComparisonKind{
	"<":  ir.CmpLT,
	"<=": ir.CmpLE,
	">":  ir.CmpGT,
	">=": ir.CmpGE,
	"==": ir.CmpEQ,
	"!=": ir.CmpNEQ,
}

var extendedByName = map[string]ir.ExtendedOpcode{
	"setarrayowner": ir.ExtSetArrayOwner,
	"pushref":       ir.ExtPushReference,
}

var instanceTypeByName = map[string]ir.InstanceType{
	"undefined": ir.Undefined,
	"self":      ir.Self,
	"other":     ir.Other,
	"all":       ir.All,
	"noone":     ir.Noone,
	"global":    ir.Global,
	"local":     ir.Local,
	"builtin":   ir.Builtin,
	"stacktop":  ir.StackTop,
}

// parseInstanceType additionally accepts "object:<id>" for a concrete
// numeric object id (InstanceType values at or above ir.FirstObjectID).
func parseInstanceType(s string) (ir.InstanceType, error) {
	if it, ok := instanceTypeByName[s]; ok {
		return it, nil
	}
	if rest, ok := strings.CutPrefix(s, "object:"); ok {
		n, err := strconv.ParseInt(rest, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid object instance type %q: %w", s, err)
		}
		return ir.FirstObjectID + ir.InstanceType(n), nil
	}
	return 0, fmt.Errorf("invalid instance type %q", s)
}

func instanceTypeName(t ir.InstanceType) string {
	if t >= ir.FirstObjectID {
		return fmt.Sprintf("object:%d", int32(t-ir.FirstObjectID))
	}
	return t.String()
}
