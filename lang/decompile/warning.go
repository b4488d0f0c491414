package decompile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/vmdecomp/lang/simulate"
)

// Warning is a single non-fatal diagnostic raised by a pass. The core
// reuses simulate.Warning's shape directly rather than re-declaring an
// identical struct, since the Block Simulator is, today, the only pass that
// raises warnings (§7 "Unknown bytecode", "Policy").
type Warning = simulate.Warning

// WarningList accumulates every Warning raised while decompiling one or
// more entries, mirroring the teacher's reuse of go/scanner.ErrorList as an
// accumulate-then-report diagnostics sink.
type WarningList []Warning

// Add appends a warning to the list.
func (l *WarningList) Add(w Warning) { *l = append(*l, w) }

// Sort orders the list by entry name, then address, for stable reporting.
func (l WarningList) Sort() {
	sort.Slice(l, func(i, j int) bool {
		if l[i].EntryName != l[j].EntryName {
			return l[i].EntryName < l[j].EntryName
		}
		return l[i].Addr < l[j].Addr
	})
}

// String renders the list, one warning per line.
func (l WarningList) String() string {
	switch len(l) {
	case 0:
		return ""
	case 1:
		return l[0].EntryName + fmt.Sprintf(" (%#x): %s", l[0].Addr, l[0].Message)
	}

	var b strings.Builder
	for i, w := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%#x): %s", w.EntryName, w.Addr, w.Message)
	}
	return b.String()
}
