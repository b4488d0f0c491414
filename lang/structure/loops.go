package structure

import (
	"fmt"

	"github.com/mna/vmdecomp/lang/cfg"
	"github.com/mna/vmdecomp/lang/ir"
)

// recoverLoopsIn finds every loop back edge among the current siblings of
// parent, builds the matching composite (§4.2.2: while, do-until, repeat or
// with), splices it in, and recurses into the new composite's body so
// nested loops are resolved correctly regardless of discovery order: an
// inner back edge swallowed into an outer loop's natural loop set is found
// again, as a sibling edge, once RecoverRegion descends into that loop.
func recoverLoopsIn(pool *Pool, parent cfg.Node, vmCfg Config) error {
	for {
		siblings := pool.siblings(parent)
		tail, head, ok := findBackEdge(siblings)
		if !ok {
			return nil
		}

		loopSet := naturalLoop(head, tail)
		composite, err := buildLoopComposite(head, tail, loopSet, vmCfg)
		if err != nil {
			return err
		}

		reparentSet(setToSlice(loopSet), composite)
		pool.add(composite)

		if err := RecoverRegion(pool, composite, vmCfg); err != nil {
			return err
		}
	}
}

// findBackEdge scans siblings for a block whose last instruction branches
// to an address at or before its own start: the signature of every loop
// tail in this VM's bytecode (while/do-until/repeat conditional or
// unconditional branches, with-loop PopWithContext re-iteration).
func findBackEdge(siblings []cfg.Node) (tail, head cfg.Node, ok bool) {
	byStart := map[int]cfg.Node{}
	for _, n := range siblings {
		byStart[n.Start()] = n
	}
	for _, n := range siblings {
		b, isBlock := n.(*cfg.Block)
		if !isBlock || len(b.Instructions) == 0 {
			continue
		}
		last := b.Instructions[len(b.Instructions)-1]
		if !last.Opcode.IsBranch() && last.Opcode != ir.PopWithContext {
			continue
		}
		target := last.Target()
		if target > b.Start() {
			continue
		}
		h, found := byStart[target]
		if !found {
			continue
		}
		return b, h, true
	}
	return nil, nil, false
}

// naturalLoop returns every node that can reach tail, within the graph,
// without passing back through head a second time: the standard natural
// loop of the back edge tail->head.
func naturalLoop(head, tail cfg.Node) map[cfg.Node]bool {
	set := map[cfg.Node]bool{head: true, tail: true}
	if head == tail {
		return set
	}
	work := []cfg.Node{tail}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		for _, p := range n.Predecessors() {
			if !set[p] {
				set[p] = true
				work = append(work, p)
			}
		}
	}
	return set
}

func setToSlice(set map[cfg.Node]bool) []cfg.Node {
	out := make([]cfg.Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

// buildLoopComposite classifies the back edge tail->head and constructs the
// matching composite, splicing it into the graph via cfg.InsertStructureLoop.
func buildLoopComposite(head, tail cfg.Node, loopSet map[cfg.Node]bool, vmCfg Config) (cfg.Node, error) {
	tailBlock, tailIsBlock := tail.(*cfg.Block)
	headBlock, headIsBlock := head.(*cfg.Block)

	if tailIsBlock && len(tailBlock.Instructions) > 0 {
		if last := tailBlock.Instructions[len(tailBlock.Instructions)-1]; last.Opcode == ir.PopWithContext {
			return buildWithLoop(head, tail)
		}
	}

	if headIsBlock && isRepeatHeader(headBlock) {
		return buildRepeatLoop(head, tail, loopSet)
	}

	if tailIsBlock && len(tailBlock.Instructions) > 0 {
		switch tailBlock.Instructions[len(tailBlock.Instructions)-1].Opcode {
		case ir.Branch:
			return buildWhileLoop(head, tail, loopSet)
		case ir.BranchTrue, ir.BranchFalse:
			return buildDoUntilLoop(head, tail)
		}
	}

	return nil, fmt.Errorf("loop back edge at %d does not match a known loop shape", tail.Start())
}

// buildWhileLoop handles the pre-test loop: head ends in a conditional
// branch, one successor continuing into the body (eventually reaching
// tail, an unconditional branch back to head) and the other leaving the
// loop.
func buildWhileLoop(head, tail cfg.Node, loopSet map[cfg.Node]bool) (cfg.Node, error) {
	var bodyEntry, after cfg.Node
	for _, s := range head.Successors() {
		if loopSet[s] {
			bodyEntry = s
		} else {
			after = s
		}
	}
	if bodyEntry == nil || after == nil {
		return nil, fmt.Errorf("while loop head at %d must have one in-loop and one exiting successor", head.Start())
	}

	stripTrailingBranch(tail)
	// head keeps its fall-into-body edge, so only the branch instruction
	// itself is dropped here (stripTrailingBranch would also clear the edge).
	headBlock := head.(*cfg.Block)
	headBlock.Instructions = headBlock.Instructions[:len(headBlock.Instructions)-1]
	origParent := head.Parent()
	w := cfg.NewWhileLoop(head, bodyEntry, after)
	cfg.InsertStructureLoop(head, head, after, w, origParent)
	return w, nil
}

// buildDoUntilLoop handles the post-test loop: the body runs at least once;
// tail carries the loop condition and branches back into the body (repeat)
// or falls through to exit.
func buildDoUntilLoop(head, tail cfg.Node) (cfg.Node, error) {
	var after cfg.Node
	for _, s := range tail.Successors() {
		if s != head {
			after = s
		}
	}
	if after == nil {
		return nil, fmt.Errorf("do-until tail at %d has no exiting successor", tail.Start())
	}

	tailBlock := tail.(*cfg.Block)
	tailBlock.Instructions = tailBlock.Instructions[:len(tailBlock.Instructions)-1]
	tail.RemoveSuccessor(head)
	head.RemovePredecessor(tail)

	origParent := head.Parent()
	d := cfg.NewDoUntilLoop(head, after)
	cfg.InsertStructureLoop(head, tail, after, d, origParent)
	return d, nil
}

// isRepeatHeader matches the compiled "repeat (N) { ... }" counter-test
// idiom: the header duplicates the live counter and compares it with <=.
// Only a Duplicate immediately followed by a <= Compare matches; a header
// with any instruction between the two (such as a pushed 0) does not. The Duplicate
// requirement (rather than a bare <= compare) keeps this from colliding
// with an ordinary "while (x <= n)" header.
func isRepeatHeader(b *cfg.Block) bool {
	for i := 0; i+1 < len(b.Instructions); i++ {
		if b.Instructions[i].Opcode == ir.Duplicate &&
			b.Instructions[i+1].Opcode == ir.Compare &&
			b.Instructions[i+1].Comparison == ir.CmpLE {
			return true
		}
	}
	return false
}

// buildRepeatLoop handles "repeat (N) { ... }": the header tests and the
// tail decrements the counter left on the stack by the fragment-local
// counter slot; the counter itself is never surfaced in the recovered AST.
func buildRepeatLoop(head, tail cfg.Node, loopSet map[cfg.Node]bool) (cfg.Node, error) {
	headBlock := head.(*cfg.Block)
	if len(headBlock.Instructions) == 0 || !headBlock.Instructions[len(headBlock.Instructions)-1].Opcode.IsBranch() {
		return nil, fmt.Errorf("repeat loop header at %d must end in a conditional branch", head.Start())
	}

	var bodyEntry, after cfg.Node
	for _, s := range head.Successors() {
		if loopSet[s] {
			bodyEntry = s
		} else {
			after = s
		}
	}
	if bodyEntry == nil || after == nil {
		return nil, fmt.Errorf("repeat loop header at %d must have one in-loop and one exiting successor", head.Start())
	}

	stripTrailingBranch(tail)
	// Unlike stripTrailingBranch, head keeps its fall-into-body edge: only the
	// branch instruction itself is dropped, since InsertStructureLoop (below)
	// owns removing the exiting edge.
	headBlock.Instructions = headBlock.Instructions[:len(headBlock.Instructions)-1]
	origParent := head.Parent()
	r := cfg.NewRepeatLoop(head, bodyEntry, after)
	cfg.InsertStructureLoop(head, head, after, r, origParent)
	return r, nil
}

// buildWithLoop handles "with (expr) { ... }": tail's PopWithContext steps
// to the next matched instance (back edge, exit==false) or falls through
// past the context once instances are exhausted.
func buildWithLoop(head, tail cfg.Node) (cfg.Node, error) {
	var after cfg.Node
	for _, s := range tail.Successors() {
		if s != head {
			after = s
		}
	}
	if after == nil {
		return nil, fmt.Errorf("with loop tail at %d has no exiting successor", tail.Start())
	}

	tailBlock := tail.(*cfg.Block)
	tailBlock.Instructions = tailBlock.Instructions[:len(tailBlock.Instructions)-1]
	tail.RemoveSuccessor(head)
	head.RemovePredecessor(tail)

	origParent := head.Parent()
	w := cfg.NewWithLoop(head, after)
	cfg.InsertStructureLoop(head, tail, after, w, origParent)
	return w, nil
}
