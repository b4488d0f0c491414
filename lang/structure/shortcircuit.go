package structure

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
)

// recoverShortCircuitsIn finds every short-circuit terminator block among
// nodes and replaces it and its condition predecessors with a
// cfg.ShortCircuit (§4.2.1). It runs first in the pipeline: a short-circuit
// cascade has no internal branch/loop structure of its own, so nothing else
// needs to recurse into it.
func recoverShortCircuitsIn(nodes []cfg.Node, _ Config) error {
	for _, n := range nodes {
		term, ok := n.(*cfg.Block)
		if !ok || term.Parent() != nil || !isShortCircuitTerminator(term) {
			continue
		}

		logic := cfg.LogicAnd
		if term.Instructions[0].Value.Short != 0 {
			logic = cfg.LogicOr
		}

		preds := append([]cfg.Node(nil), term.Predecessors()...)
		if len(preds) == 0 {
			return fmt.Errorf("short circuit terminator at %d has no predecessors", term.Start())
		}
		succs := term.Successors()
		if len(succs) != 1 {
			return fmt.Errorf("short circuit terminator at %d does not have exactly one successor", term.Start())
		}

		// Children are, in order, the terminator's predecessors themselves:
		// the first is the entry condition block, and each later one is
		// reached, by construction, exactly when the previous condition did
		// not short-circuit.
		children := preds
		origParent := children[0].Parent()
		for _, p := range children {
			stripTrailingBranch(p)
		}
		term.Instructions = nil

		sc := cfg.NewShortCircuit(logic, children)
		cfg.InsertStructure(children[0], term, sc, origParent)
	}
	return nil
}

// isShortCircuitTerminator matches §4.2.1's detection rule: a block whose
// sole instruction is a Push/PushImmediate of an Int16 payload (0 for an
// And cascade, anything else for Or).
func isShortCircuitTerminator(b *cfg.Block) bool {
	if len(b.Instructions) != 1 {
		return false
	}
	ins := b.Instructions[0]
	return (ins.Opcode == ir.Push || ins.Opcode == ir.PushImmediate) && ins.Type1 == ir.TypeInt16
}

// stripTrailingBranch removes n's trailing conditional branch instruction,
// if any, and disconnects both of its outgoing edges (successor index 1
// then 0, so the slice stays valid while being drained).
func stripTrailingBranch(n cfg.Node) {
	b, ok := n.(*cfg.Block)
	if !ok || len(b.Instructions) == 0 {
		return
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !last.Opcode.IsBranch() {
		return
	}
	b.Instructions = b.Instructions[:len(b.Instructions)-1]

	succs := append([]cfg.Node(nil), b.Successors()...)
	for i := len(succs) - 1; i >= 0; i-- {
		s := succs[i]
		b.RemoveSuccessor(s)
		s.RemovePredecessor(b)
	}
}
