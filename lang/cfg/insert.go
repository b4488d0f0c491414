package cfg

// InsertStructure splices composite into the graph in place of the subgraph
// spanning from before to after (inclusive): every predecessor edge of
// before now targets composite, every successor edge of after now
// originates from composite, composite inherits parent, and composite's own
// children (already wired by its constructor) are reparented to composite.
// before and after may be the same node.
//
// parent must be before's parent as observed before composite's constructor
// ran: constructors eagerly reparent their named children, including before
// when before is itself one of them, so before.Parent() can no longer be
// trusted here.
//
// The graph is never observed half-updated: predecessor and successor edges
// are detached from the old endpoints before being attached to composite.
func InsertStructure(before, after, composite Node, parent Node) {
	for _, p := range append([]Node(nil), before.Predecessors()...) {
		p.ReplaceSuccessor(before, composite)
		composite.AddPredecessor(p)
	}
	before.ClearPredecessors()

	for _, s := range append([]Node(nil), after.Successors()...) {
		s.ReplacePredecessor(after, composite)
		composite.AddSuccessor(s)
	}
	after.ClearSuccessors()

	composite.SetParent(parent)

	for _, kid := range ChildrenOf(composite) {
		kid.SetParent(composite)
	}
}

// InsertStructureFanIn splices composite in place of a subgraph with a
// single entry point (before) but several exit nodes (sinks) that may all
// feed the same successors (an if/else's two arms, a switch's cases, a
// try/catch/finally's try and catch bodies): every sink's outgoing edges
// are redirected to originate from composite instead, deduplicated, after
// composite's incoming edges have been wired from before's former
// predecessors.
//
// parent must be before's parent as observed before composite's constructor
// ran, for the same reason documented on InsertStructure.
func InsertStructureFanIn(before Node, sinks []Node, composite Node, parent Node) {
	for _, p := range append([]Node(nil), before.Predecessors()...) {
		p.ReplaceSuccessor(before, composite)
		composite.AddPredecessor(p)
	}
	before.ClearPredecessors()

	succs := map[Node]bool{}
	for _, sink := range sinks {
		for _, s := range sink.Successors() {
			succs[s] = true
		}
	}
	for _, sink := range sinks {
		sink.ClearSuccessors()
	}
	for s := range succs {
		for _, sink := range sinks {
			s.RemovePredecessor(sink)
		}
		s.AddPredecessor(composite)
		composite.AddSuccessor(s)
	}

	composite.SetParent(parent)
	for _, kid := range ChildrenOf(composite) {
		kid.SetParent(composite)
	}
}

// InsertStructureLoop splices a recovered loop composite into the graph.
// head is the loop's unique entry point (its former predecessors now target
// composite); exitSource is the node whose successor edge leaves the loop
// (head itself for a pre-test while/repeat, the back-edge tail for a
// post-test do-until or a with-loop's context pop); after is that edge's
// target, becoming composite's sole successor.
//
// parent must be head's parent as observed before composite's constructor
// ran (constructors eagerly reparent their named children, including head,
// to composite itself, so head.Parent() can no longer be trusted here).
func InsertStructureLoop(head, exitSource, after, composite Node, parent Node) {
	for _, p := range append([]Node(nil), head.Predecessors()...) {
		p.ReplaceSuccessor(head, composite)
		composite.AddPredecessor(p)
	}
	head.ClearPredecessors()

	exitSource.RemoveSuccessor(after)
	after.RemovePredecessor(exitSource)
	after.AddPredecessor(composite)
	composite.AddSuccessor(after)

	composite.SetParent(parent)
	for _, kid := range ChildrenOf(composite) {
		kid.SetParent(composite)
	}
}
