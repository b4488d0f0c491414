package structure

import (
	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
)

// recoverConditionalsIn finds every if/else diamond among the current
// siblings of parent and splices in the matching cfg.If (§4.2.3). It
// handles the common compiled shape: a conditional-branch header with a
// single-block then arm and an optional else arm, both rejoining at the
// same merge point. The else arm is usually a single block, but an
// "else if (a && b)" compiles to a short-circuit cascade followed by the
// inner if, so the else arm may also be a chain of already-recovered
// composites ending at the merge point (findArmSink walks it).
func recoverConditionalsIn(pool *Pool, parent cfg.Node, vmCfg Config) error {
	for {
		progressed := false
		for _, n := range pool.siblings(parent) {
			cond, ok := n.(*cfg.Block)
			if !ok || len(cond.Instructions) == 0 {
				continue
			}
			// A switch dispatch link also ends in a conditional branch; it is
			// left for recoverSwitchesIn.
			if isDispatchBlock(cond) {
				continue
			}
			last := cond.Instructions[len(cond.Instructions)-1]
			if last.Opcode != ir.BranchTrue && last.Opcode != ir.BranchFalse {
				continue
			}
			succs := cond.Successors()
			if len(succs) != 2 {
				continue
			}
			thenEntry, elseOrMerge := succs[0], succs[1]

			thenBlk, ok := thenEntry.(*cfg.Block)
			if !ok || len(thenBlk.Instructions) == 0 {
				continue
			}
			thenLast := thenBlk.Instructions[len(thenBlk.Instructions)-1]
			if thenLast.Opcode != ir.Branch || len(thenBlk.Successors()) != 1 {
				continue
			}
			mergeCandidate := thenBlk.Successors()[0]

			var sinks []cfg.Node
			var elseArm, elseSink cfg.Node
			switch {
			case mergeCandidate == elseOrMerge:
				sinks = []cfg.Node{thenBlk}
			default:
				sink, ok := findArmSink(elseOrMerge, mergeCandidate)
				if !ok {
					continue
				}
				elseArm, elseSink = elseOrMerge, sink
				sinks = []cfg.Node{thenBlk, elseSink}
			}

			stripTrailingBranch(cond)
			stripUnconditionalInstr(thenBlk)
			if blk, ok := elseSink.(*cfg.Block); ok {
				stripUnconditionalInstr(blk)
			}

			origParent := cond.Parent()
			ifNode := cfg.NewIf(cond, thenBlk, elseArm)
			cfg.InsertStructureFanIn(cond, sinks, ifNode, origParent)
			if elseArm != nil {
				reparentChain(elseArm, elseSink, ifNode)
			}
			pool.add(ifNode)
			progressed = true

			for _, kid := range []cfg.Node{cond, thenBlk} {
				if err := RecoverRegion(pool, kid, vmCfg); err != nil {
					return err
				}
			}
			if elseArm != nil {
				if err := RecoverRegion(pool, elseArm, vmCfg); err != nil {
					return err
				}
			}
			break
		}
		if !progressed {
			return nil
		}
	}
}

// findArmSink walks start's chain of sole-successor edges until it reaches
// the node whose successor is merge, returning that node (the edge to sever
// when splicing the arm into the enclosing If). For a plain single-block
// arm start is its own sink. For an else-if arm beginning with a composite
// (e.g. a short-circuit feeding an inner if), the sink is further down the
// chain.
func findArmSink(start, merge cfg.Node) (cfg.Node, bool) {
	seen := map[cfg.Node]bool{}
	cur := start
	for !seen[cur] {
		seen[cur] = true
		succs := cur.Successors()
		if len(succs) != 1 {
			return nil, false
		}
		if succs[0] == merge {
			return cur, true
		}
		cur = succs[0]
	}
	return nil, false
}

// reparentChain assigns parent to every node strictly between start and
// sink (inclusive of sink). start itself is reparented by the enclosing
// If's constructor since it is one of its named children; the rest of the
// chain is absorbed into the If but isn't one of its direct children, so it
// must not linger with a stale parent.
func reparentChain(start, sink, parent cfg.Node) {
	cur := start
	for cur != sink {
		succs := cur.Successors()
		if len(succs) != 1 {
			return
		}
		cur = succs[0]
		cur.SetParent(parent)
	}
}

// stripUnconditionalInstr drops n's trailing unconditional Branch
// instruction, leaving its outgoing edge untouched for the caller (usually
// cfg.InsertStructureFanIn) to consume. A no-op if n does not end in one.
func stripUnconditionalInstr(n cfg.Node) {
	b, ok := n.(*cfg.Block)
	if !ok || len(b.Instructions) == 0 {
		return
	}
	if last := b.Instructions[len(b.Instructions)-1]; last.Opcode == ir.Branch {
		b.Instructions = b.Instructions[:len(b.Instructions)-1]
	}
}
