package simulate

import "fmt"

// WarningKind enumerates the kinds of non-fatal condition the simulator can
// surface (§6, §7).
type WarningKind uint8

const (
	WarnDataLeftover WarningKind = iota
	WarnUnknownOpcode
	WarnUnsupportedExtendedOpcode
)

func (k WarningKind) String() string {
	switch k {
	case WarnDataLeftover:
		return "DecompileDataLeftoverWarning"
	case WarnUnknownOpcode:
		return "UnknownOpcodeWarning"
	case WarnUnsupportedExtendedOpcode:
		return "UnsupportedExtendedOpcodeWarning"
	default:
		return fmt.Sprintf("warning(%d)", uint8(k))
	}
}

// Warning is a non-fatal condition observed while simulating one fragment
// (§6 "Warning stream").
type Warning struct {
	Kind             WarningKind
	EntryName        string
	Addr             int
	Message          string
	NumberOfElements int
}

func (w Warning) String() string {
	if w.Message == "" {
		return fmt.Sprintf("%s (entry %q, addr %d)", w.Kind, w.EntryName, w.Addr)
	}
	return fmt.Sprintf("%s: %s (entry %q, addr %d)", w.Kind, w.Message, w.EntryName, w.Addr)
}
