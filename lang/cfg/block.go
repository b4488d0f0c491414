package cfg

import "github.com/mna/vmdecomp/lang/ir"

// Block is a maximal straight-line instruction sequence with a single entry
// and single exit (§3). The sentinel end block (start == end == code
// length) has no instructions.
type Block struct {
	Header

	Index        int
	Instructions []ir.Instruction

	// TryHook, FinallyAddr and CatchAddr are set by the Block Builder when
	// this block is the isolated 6-instruction try-hook call site (§4.1).
	// CatchAddr is -1 when the try has no catch clause.
	TryHook     bool
	FinallyAddr int
	CatchAddr   int
}

// NewBlock returns a leaf Block covering [start, end).
func NewBlock(index, start, end int, insns []ir.Instruction) *Block {
	b := &Block{Index: index, Instructions: insns, CatchAddr: -1}
	b.Header.kind = KindBlock
	b.Header.SetRange(start, end)
	return b
}

// Empty is the sentinel node used as the synthesized "after" anchor of a
// loop whose natural exit is implicit.
type Empty struct{ Header }

// NewEmpty returns an Empty sentinel node positioned at addr.
func NewEmpty(addr int) *Empty {
	e := &Empty{}
	e.Header.kind = KindEmpty
	e.Header.SetRange(addr, addr)
	return e
}
