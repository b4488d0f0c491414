package structure

import (
	"github.com/mna/vmdecomp/lang/cfg"
)

// recoverTryCatchIn finds every try-hook block (marked by the Block
// Builder, §4.1) among the current siblings of parent and splices in the
// matching cfg.TryCatchFinally (§4.2.4). The try, catch and finally bodies
// are each expected to be a single block that branches to a common merge
// point once it finishes, the same shape recoverConditionalsIn assumes for
// an if's arms.
func recoverTryCatchIn(pool *Pool, parent cfg.Node, vmCfg Config) error {
	for {
		progressed := false
		for _, n := range pool.siblings(parent) {
			hook, ok := n.(*cfg.Block)
			if !ok || !hook.TryHook {
				continue
			}
			succs := hook.Successors()
			if len(succs) < 2 {
				continue
			}
			tryEntry := succs[0]
			finallyEntry := succs[1]
			var catchEntry cfg.Node
			if hook.CatchAddr != -1 && len(succs) > 2 {
				catchEntry = succs[2]
			}

			bodies := []cfg.Node{tryEntry, finallyEntry}
			if catchEntry != nil {
				bodies = append(bodies, catchEntry)
			}
			sinks, _, ok := findSwitchMerge(toCaseSlice(bodies))
			if !ok {
				continue
			}

			hook.Instructions = nil
			for _, s := range sinks {
				stripUnconditionalInstr(s)
			}
			for _, b := range bodies {
				b.RemovePredecessor(hook)
			}
			hook.ClearSuccessors()

			origParent := hook.Parent()
			tcf := cfg.NewTryCatchFinally(tryEntry, catchEntry, finallyEntry)
			cfg.InsertStructureFanIn(hook, sinks, tcf, origParent)
			// hook carries no user-visible content after recovery (its
			// instructions and edges are already stripped above) but it isn't
			// one of tcf's named children, so it isn't reparented by the splice
			// itself; fix that up so it doesn't linger as a stray top-level
			// sibling.
			hook.SetParent(tcf)
			pool.add(tcf)
			progressed = true

			for _, kid := range bodies {
				if err := RecoverRegion(pool, kid, vmCfg); err != nil {
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

func toCaseSlice(bodies []cfg.Node) []cfg.SwitchCase {
	cases := make([]cfg.SwitchCase, len(bodies))
	for i, b := range bodies {
		cases[i] = cfg.SwitchCase{Body: b}
	}
	return cases
}
