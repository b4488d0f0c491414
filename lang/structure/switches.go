package structure

import (
	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
)

// recoverSwitchesIn finds every "dup; push K; cmp ==; bt caseK" dispatch
// chain among the current siblings of parent and splices in the matching
// cfg.Switch (§4.2.3). The default case, if present, is whatever the chain
// falls through to once no comparison matches; every case body is expected
// to end in an explicit branch to the switch's common merge point, the
// compiled shape for a case with a break.
func recoverSwitchesIn(pool *Pool, parent cfg.Node, vmCfg Config) error {
	for {
		progressed := false
		for _, n := range pool.siblings(parent) {
			head, ok := n.(*cfg.Block)
			if !ok || !isDispatchBlock(head) || isDispatchBlock(fallthroughPred(head, pool.siblings(parent))) {
				continue
			}

			var cases []cfg.SwitchCase
			dispatchBlocks := []cfg.Node{}
			cur := head
			for isDispatchBlock(cur) {
				val := cur.Instructions[1].Value
				caseBody := cur.Successors()[1]
				cases = append(cases, cfg.SwitchCase{Values: []ir.Value{val}, Body: caseBody})
				dispatchBlocks = append(dispatchBlocks, cur)

				next, ok := cur.Successors()[0].(*cfg.Block)
				if !ok {
					break
				}
				cur = next
			}
			if len(cases) == 0 {
				continue
			}

			defaultTail, _ := cur.(*cfg.Block)
			var defaultEntry cfg.Node
			if defaultTail != nil {
				defaultEntry = defaultTail
				cases = append(cases, cfg.SwitchCase{IsDefault: true, Body: defaultEntry})
			}

			// A case whose dispatch branches to the same body as the case right
			// after it has no statements of its own: it falls through, so only
			// the later case keeps the Body pointer (printed/simulated once).
			for i := len(cases) - 2; i >= 0; i-- {
				if cases[i].Body != nil && cases[i].Body == cases[i+1].Body {
					cases[i].Body = nil
				}
			}

			sinks, merge, ok := findSwitchMerge(cases)
			if !ok {
				continue
			}

			for _, d := range dispatchBlocks {
				stripTrailingBranch(d)
			}
			for _, s := range sinks {
				stripUnconditionalInstr(s)
			}

			origParent := dispatchBlocks[0].Parent()
			sw := cfg.NewSwitch(dispatchBlocks[0], cases)
			cfg.InsertStructureFanIn(dispatchBlocks[0], sinks, sw, origParent)
			// The chain's later dispatch blocks aren't walkable children of sw
			// (only the first carries the subject expression, §4.2.3), but they
			// are absorbed by it and must not linger as stray top-level siblings.
			for _, d := range dispatchBlocks[1:] {
				d.SetParent(sw)
			}
			pool.add(sw)
			progressed = true

			for _, c := range cases {
				if c.Body != nil {
					if err := RecoverRegion(pool, c.Body, vmCfg); err != nil {
						return err
					}
				}
			}
			_ = merge
			break
		}
		if !progressed {
			return nil
		}
	}
}

// isDispatchBlock matches a single "dup; push <value>; cmp ==; bt <case>"
// link of the dispatch chain.
func isDispatchBlock(n cfg.Node) bool {
	b, ok := n.(*cfg.Block)
	if !ok || len(b.Instructions) != 4 {
		return false
	}
	return b.Instructions[0].Opcode == ir.Duplicate &&
		(b.Instructions[1].Opcode == ir.Push || b.Instructions[1].Opcode == ir.PushImmediate) &&
		b.Instructions[2].Opcode == ir.Compare && b.Instructions[2].Comparison == ir.CmpEQ &&
		b.Instructions[3].Opcode == ir.BranchTrue &&
		len(b.Successors()) == 2
}

// fallthroughPred returns the sibling, if any, whose fallthrough successor
// is head: used to skip a dispatch block that is not the start of its
// chain (it will be visited as part of processing its predecessor).
func fallthroughPred(head cfg.Node, siblings []cfg.Node) cfg.Node {
	for _, s := range siblings {
		if b, ok := s.(*cfg.Block); ok && len(b.Successors()) > 0 && b.Successors()[0] == head {
			return s
		}
	}
	return nil
}

// findSwitchMerge locates the single node every non-fallthrough case body
// (and the default) branches to once it finishes, which becomes the
// switch's sole successor. It returns the set of blocks whose trailing
// branch feeds that merge (the fan-in sinks).
func findSwitchMerge(cases []cfg.SwitchCase) (sinks []cfg.Node, merge cfg.Node, ok bool) {
	for _, c := range cases {
		if c.Body == nil {
			continue
		}
		b, isBlock := c.Body.(*cfg.Block)
		if !isBlock || len(b.Instructions) == 0 {
			return nil, nil, false
		}
		last := b.Instructions[len(b.Instructions)-1]
		if last.Opcode != ir.Branch || len(b.Successors()) != 1 {
			return nil, nil, false
		}
		target := b.Successors()[0]
		if merge == nil {
			merge = target
		} else if merge != target {
			return nil, nil, false
		}
		sinks = append(sinks, b)
	}
	if merge == nil {
		return nil, nil, false
	}
	return sinks, merge, true
}
