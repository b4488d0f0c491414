package decompile

import (
	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/simulate"
	"github.com/mna/vmdecomp/lang/structure"
)

// Config bundles the VM-specific names and policy switches every pass
// needs (§6 "Configuration"). Printer-only options (blank-line and
// semicolon policy) are not part of this type; they belong to
// lang/printer.Config, since the core never consults them.
type Config struct {
	// TryHookFunctionName is the intrinsic call name that marks the start of
	// a try/catch/finally region, consumed by the Block Builder (the try/catch
	// Structural Recovery pass relies on the blocks it marks).
	TryHookFunctionName string

	// NewObjectFunctionName is the intrinsic call name the Block Simulator
	// recognizes to turn a Call instruction into a new-object expression.
	NewObjectFunctionName string

	// OldArrayLimit is the legacy 2D-array flattening multiplier.
	OldArrayLimit int32

	// ModernArrays selects the GMLv2+ single-index array encoding; when
	// false, the legacy two-index decomposition is attempted instead.
	ModernArrays bool

	// AllowLeftoverDataOnStack controls whether a non-empty stack at
	// fragment end is a warning (true) or a fatal error (false).
	AllowLeftoverDataOnStack bool
}

func (c Config) cfgConfig() cfg.Config {
	return cfg.Config{TryHookFunctionName: c.TryHookFunctionName}
}

func (c Config) structureConfig() structure.Config {
	return structure.Config{
		TryHookFunctionName: c.TryHookFunctionName,
		OldArrayLimit:       c.OldArrayLimit,
	}
}

func (c Config) simulateConfig() simulate.Config {
	return simulate.Config{
		NewObjectFunctionName:    c.NewObjectFunctionName,
		OldArrayLimit:            c.OldArrayLimit,
		ModernArrays:             c.ModernArrays,
		AllowLeftoverDataOnStack: c.AllowLeftoverDataOnStack,
	}
}
