package maincmd

import (
	"github.com/caarlos0/env/v6"
)

// envOverrides is a thin struct-tag layer the teacher only ever carried
// transitively (through github.com/mna/mainer, never imported directly):
// here it is wired to override printer/decompile knobs from the
// environment, for batch or CI decompilation runs where passing flags
// through every invocation isn't practical.
type envOverrides struct {
	Semicolons          *bool `env:"VMDECOMPILE_SEMICOLONS"`
	BlankAroundBranches *bool `env:"VMDECOMPILE_BLANK_AROUND_BRANCHES"`
	BlankAroundCases    *bool `env:"VMDECOMPILE_BLANK_AROUND_CASES"`
	AllowLeftoverStack  *bool `env:"VMDECOMPILE_ALLOW_LEFTOVER_STACK"`
}

// applyEnvOverrides reads envOverrides and, for every variable actually set,
// overrides the corresponding Cmd flag -- flags explicitly passed on the
// command line already won the mainer.Parser.Parse call above this, so this
// only fills in values the user didn't pass a flag for.
func applyEnvOverrides(c *Cmd) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return err
	}

	if ov.Semicolons != nil && !c.flags["semicolons"] {
		c.Semicolons = *ov.Semicolons
	}
	if ov.BlankAroundBranches != nil && !c.flags["blank-around-branches"] {
		c.BlankAroundBranches = *ov.BlankAroundBranches
	}
	if ov.BlankAroundCases != nil && !c.flags["blank-around-cases"] {
		c.BlankAroundCases = *ov.BlankAroundCases
	}
	if ov.AllowLeftoverStack != nil && !c.flags["allow-leftover-stack"] {
		c.AllowLeftoverStack = *ov.AllowLeftoverStack
	}
	return nil
}
