package ir

// Value is the union of literal payloads an Instruction may carry. Only the
// field matching Instruction.Type1 (or the opcode's documented payload type)
// is meaningful for a given instruction.
type Value struct {
	Short  int16
	Int    int32
	Long   int64
	Double float64
	Bool   bool
	Str    string

	// DuplicationSize and DuplicationSize2 are only meaningful on a Duplicate
	// instruction; see lang/simulate's prefix/postfix recovery.
	DuplicationSize  int
	DuplicationSize2 int
}

// VariableRef names a variable referenced by a Push/Pop instruction.
type VariableRef struct {
	Name         string
	InstanceType InstanceType
}

// FunctionRef names a function referenced by a Push or Call instruction.
type FunctionRef struct {
	Name string
}

// Instruction is a single VM instruction, as produced by the (out-of-scope)
// bytecode loader. See the design spec §3 for the full field semantics.
type Instruction struct {
	Address int
	Opcode  Opcode

	ExtendedOpcode ExtendedOpcode
	Comparison     ComparisonKind

	Type1, Type2 DataType
	InstanceType InstanceType

	Variable *VariableRef
	Function *FunctionRef

	ReferenceVarType ReferenceVarType

	Value Value
}

// BranchOffset is the semantic alias for the branch target offset carried by
// Branch/BranchTrue/BranchFalse/PushWithContext/PopWithContext instructions.
// The target address is Address + BranchOffset().
func (i Instruction) BranchOffset() int { return int(i.Value.Int) }

// Target returns the absolute address a branch-family instruction jumps to.
func (i Instruction) Target() int { return i.Address + i.BranchOffset() }

// ArgumentCount is the semantic alias for the argument count carried by a
// Call instruction.
func (i Instruction) ArgumentCount() int { return int(i.Value.Int) }

// PopWithContextExit is the semantic alias for the boolean flag on a
// PopWithContext instruction distinguishing a loop-body continuation from
// the with-loop's final exit.
func (i Instruction) PopWithContextExit() bool { return i.Value.Bool }

// PopSwapSize is the semantic alias for the pop-swap depth carried by a
// variable-less Pop instruction.
func (i Instruction) PopSwapSize() int { return int(i.Value.Int) }

// IsTryHookCall reports whether this instruction is a Call to the VM's
// try-hook intrinsic.
func (i Instruction) IsTryHookCall(tryHookName string) bool {
	return i.Opcode == Call && i.Function != nil && i.Function.Name == tryHookName
}

// IsNewObjectCall reports whether this instruction is a Call to the VM's
// new-object intrinsic.
func (i Instruction) IsNewObjectCall(newObjectName string) bool {
	return i.Opcode == Call && i.Function != nil && i.Function.Name == newObjectName
}
