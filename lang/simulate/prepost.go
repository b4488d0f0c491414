package simulate

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/ir"
)

// RecoverPrefixPostfix implements the compound shape of §4.3's Duplicate
// rule: a prefix/postfix increment/decrement (or similar read-modify-write
// idiom) duplicates more than just the bare top of stack, re-pushing a
// whole slice of operands so the surrounding instructions can both use the
// pre/post value and perform the write. Spec §9 flags this area as
// "intricate and underspecified"; this is a best-effort generalization of
// the simple-duplicate rule rather than a rule pinned to one exact bytecode
// shape: duplicate the top DuplicationSize items, then, if DuplicationSize2
// is non-zero, duplicate the (new) top DuplicationSize2 items again.
func RecoverPrefixPostfix(st *simState, instr ir.Instruction) error {
	if err := duplicateTopN(st, instr, instr.Value.DuplicationSize); err != nil {
		return err
	}
	if instr.Value.DuplicationSize2 != 0 {
		if err := duplicateTopN(st, instr, instr.Value.DuplicationSize2); err != nil {
			return err
		}
	}
	return nil
}

func duplicateTopN(st *simState, instr ir.Instruction, n int) error {
	if n <= 0 {
		return nil
	}
	items := st.stack.Tail(n)
	if items == nil {
		return fmt.Errorf("simulate: duplicate at %d: stack has fewer than %d items", instr.Address, n)
	}
	for _, e := range items {
		st.stack.PushDuplicated(e)
	}
	return nil
}
