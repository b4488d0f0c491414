package ir

// CodeEntry is a single compilation unit submitted to the decompiler: an
// instruction stream plus the metadata the structural recovery and
// simulation passes need. Nested function/struct bodies are represented as
// Children, each itself a complete CodeEntry with its own StartOffset
// relative to the parent.
type CodeEntry struct {
	Name         string
	Instructions []Instruction
	Length       int
	Children     []*CodeEntry

	LocalCount    int
	ArgumentCount int
	StartOffset   int

	Parent *CodeEntry
}

// InstructionCount returns the number of instructions in this entry.
func (c *CodeEntry) InstructionCount() int { return len(c.Instructions) }

// GetInstruction returns the instruction at index i.
func (c *CodeEntry) GetInstruction(i int) Instruction { return c.Instructions[i] }

// ChildCount returns the number of nested code entries.
func (c *CodeEntry) ChildCount() int { return len(c.Children) }

// GetChild returns the nested code entry at index i.
func (c *CodeEntry) GetChild(i int) *CodeEntry { return c.Children[i] }
