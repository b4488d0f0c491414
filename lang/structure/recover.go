package structure

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
)

// Recover runs the full structural recovery pipeline over blocks (as built
// by cfg.BuildBlocks for entry) and wraps the resulting top-level chain in
// a cfg.Fragment, ready for the AST Builder (lang/simulate).
func Recover(entry *ir.CodeEntry, blocks []*cfg.Block, vmCfg Config) (*cfg.Fragment, error) {
	pool := NewPool(blocks)
	if err := RecoverRegion(pool, nil, vmCfg); err != nil {
		return nil, fmt.Errorf("recovering structure for %q: %w", entry.Name, err)
	}

	var root cfg.Node
	for _, n := range pool.siblings(nil) {
		if n.Start() == 0 {
			root = n
			break
		}
	}
	return cfg.NewFragment(entry, root), nil
}
