package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/vmdecomp/lang/asmtext"
)

// Disasm parses each file as a lang/asmtext fixture and re-emits its
// canonical form: whitespace normalized and branch targets re-resolved
// against the parsed instruction stream, exercising Assemble/Disassemble's
// round-trip the same way a hand-written fixture would be sanity-checked.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for _, file := range args {
		entry, err := readEntry(file)
		if err != nil {
			firstErr = printError(stdio, err)
			continue
		}
		fmt.Fprint(stdio.Stdout, asmtext.Disassemble(entry))

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return firstErr
}
