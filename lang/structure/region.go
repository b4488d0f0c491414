// Package structure implements the Structural Recovery pass family (§4.2):
// short-circuit, loop, conditional, switch and try/catch/finally recovery,
// run in that fixed order over the CFG built by lang/cfg. Each pass locates
// a syntactic pattern, builds a composite cfg.Node, and uses
// cfg.InsertStructure to splice it into the graph.
package structure

import "github.com/mna/vmdecomp/lang/cfg"

// Config carries VM-specific values handed to every recovery pass. No pass
// in this package reads its fields: try-hook regions are found through
// cfg.Block.TryHook, which the Block Builder sets.
type Config struct {
	TryHookFunctionName string
	OldArrayLimit       int32
}

// Pool is the set of every node (block or composite) discovered so far for
// one CodeEntry. RecoverRegion consults it, by Parent(), to find the
// current siblings of a hierarchical level, and appends each new composite
// it builds so later passes (and recursive calls into that composite's own
// interior) can see it.
type Pool struct {
	nodes []cfg.Node
}

// NewPool seeds a Pool with the flat block list from cfg.BuildBlocks.
func NewPool(blocks []*cfg.Block) *Pool {
	p := &Pool{nodes: make([]cfg.Node, len(blocks))}
	for i, b := range blocks {
		p.nodes[i] = b
	}
	return p
}

func (p *Pool) add(n cfg.Node) { p.nodes = append(p.nodes, n) }

// siblings returns every node in the pool whose current Parent() is parent.
func (p *Pool) siblings(parent cfg.Node) []cfg.Node {
	out := make([]cfg.Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		if n.Parent() == parent {
			out = append(out, n)
		}
	}
	return out
}

// RecoverRegion runs the full pass pipeline (short-circuits -> loops ->
// conditionals -> switches -> try/catch) over the current siblings of
// parent (nil at the top level of a fragment). Whenever a pass discovers a
// composite whose interior spans more than its directly named anchor
// fields, it reparents that interior to the new composite and recurses, so
// nested structure (an if inside a loop, a loop inside a loop) is fully
// resolved before RecoverRegion returns.
//
// Running RecoverRegion again on an already-recovered region is a no-op:
// every pass's pattern-matching predicate is false once its instructions
// have been consumed (terminator blocks emptied, branches stripped).
func RecoverRegion(pool *Pool, parent cfg.Node, vmCfg Config) error {
	if err := recoverShortCircuitsIn(pool.siblings(parent), vmCfg); err != nil {
		return err
	}
	if err := recoverLoopsIn(pool, parent, vmCfg); err != nil {
		return err
	}
	if err := recoverConditionalsIn(pool, parent, vmCfg); err != nil {
		return err
	}
	if err := recoverSwitchesIn(pool, parent, vmCfg); err != nil {
		return err
	}
	if err := recoverTryCatchIn(pool, parent, vmCfg); err != nil {
		return err
	}
	return nil
}

// reparentSet assigns parent to every node in set, skipping nodes already
// so parented (keeps the operation idempotent).
func reparentSet(set []cfg.Node, parent cfg.Node) {
	for _, n := range set {
		if n.Parent() != parent {
			n.SetParent(parent)
		}
	}
}
