package decompile

import (
	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/mna/vmdecomp/lang/simulate"
	"github.com/mna/vmdecomp/lang/structure"
)

// Context carries one code entry through the fixed pass order (§5
// "Ordering guarantees"): Block Builder writes Blocks, Structural Recovery
// consumes them and writes Fragment, and the Block Simulator consumes
// Fragment and writes AST plus Warnings. A Context is used for exactly one
// entry and discarded once Run returns; it holds no state another entry's
// decompilation could observe.
type Context struct {
	Entry  *ir.CodeEntry
	Config Config

	Blocks   []*cfg.Block
	Fragment *cfg.Fragment
	AST      *dast.BlockStmt
	Warnings WarningList
}

// NewContext returns a Context ready to decompile entry under cfg.
func NewContext(entry *ir.CodeEntry, cfg Config) *Context {
	return &Context{Entry: entry, Config: cfg}
}

// Run executes the pipeline for c.Entry: Block Builder, Structural
// Recovery, then the Block Simulator / AST Builder. On success, c.AST and
// c.Warnings are populated. On a fatal condition it returns a *Error naming
// the failing pass, and c.AST is left nil (§7 "partial output is
// discarded").
func (c *Context) Run() error {
	blocks, err := cfg.BuildBlocks(c.Entry, c.Config.cfgConfig())
	if err != nil {
		return fail(c.Entry.Name, "block-builder", err)
	}
	c.Blocks = blocks

	frag, err := structure.Recover(c.Entry, blocks, c.Config.structureConfig())
	if err != nil {
		return fail(c.Entry.Name, "structural-recovery", err)
	}
	c.Fragment = frag

	sim := &simulate.Simulator{Config: c.Config.simulateConfig()}
	body, warnings, err := sim.Simulate(frag, nil, c.Entry.Name)
	if err != nil {
		c.Warnings = append(c.Warnings, warnings...)
		return fail(c.Entry.Name, "simulate", err)
	}

	c.AST = body
	c.Warnings = append(c.Warnings, warnings...)
	return nil
}
