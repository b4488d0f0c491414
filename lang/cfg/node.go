// Package cfg implements the polymorphic control-flow node graph (§3 of the
// design spec), the Block Builder pass (§4.1), and the InsertStructure edge
// surgery helper shared by every Structural Recovery pass (§4.2).
package cfg

import "golang.org/x/exp/slices"

// NodeKind tags the concrete variant of a Node, mirroring the "capability
// set" polymorphism described in the design notes: every node shares the
// Header metadata (address range, parent, edge lists, unreachable flag),
// and only composite nodes additionally expose Children.
type NodeKind uint8

const (
	KindBlock NodeKind = iota
	KindFragment
	KindShortCircuit
	KindWhileLoop
	KindDoUntilLoop
	KindRepeatLoop
	KindWithLoop
	KindIf
	KindSwitch
	KindTryCatchFinally
	KindEmpty
)

func (k NodeKind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindFragment:
		return "fragment"
	case KindShortCircuit:
		return "shortcircuit"
	case KindWhileLoop:
		return "while"
	case KindDoUntilLoop:
		return "dountil"
	case KindRepeatLoop:
		return "repeat"
	case KindWithLoop:
		return "with"
	case KindIf:
		return "if"
	case KindSwitch:
		return "switch"
	case KindTryCatchFinally:
		return "trycatchfinally"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// LogicKind distinguishes the two short-circuit compositions.
type LogicKind uint8

const (
	LogicAnd LogicKind = iota
	LogicOr
)

func (l LogicKind) String() string {
	if l == LogicOr {
		return "or"
	}
	return "and"
}

// Node is any node of the control-flow graph, basic block or structural
// composite. Edges in Predecessors/Successors always refer to siblings at
// the same hierarchical level (§3: "the CFG is re-leveled as structure is
// recovered").
type Node interface {
	Kind() NodeKind
	Start() int
	End() int
	SetRange(start, end int)

	Parent() Node
	SetParent(Node)

	Predecessors() []Node
	Successors() []Node
	AddPredecessor(Node)
	AddSuccessor(Node)
	RemovePredecessor(Node)
	RemoveSuccessor(Node)
	ReplacePredecessor(old, new Node)
	ReplaceSuccessor(old, new Node)
	ClearPredecessors()
	ClearSuccessors()

	Unreachable() bool
	SetUnreachable(bool)
}

// Composite is implemented by every Node variant that owns children (all
// but Block and Empty). A child's Parent() always points back to the owning
// Composite.
type Composite interface {
	Node
	Children() []Node
}

// ChildrenOf returns n's children if it is a Composite, or nil for a leaf
// Block.
func ChildrenOf(n Node) []Node {
	if c, ok := n.(Composite); ok {
		return c.Children()
	}
	return nil
}

// Header is the shared metadata embedded by every concrete Node type.
type Header struct {
	kind        NodeKind
	start, end  int
	parent      Node
	preds       []Node
	succs       []Node
	unreachable bool
}

func (h *Header) Kind() NodeKind       { return h.kind }
func (h *Header) Start() int           { return h.start }
func (h *Header) End() int             { return h.end }
func (h *Header) SetRange(s, e int)    { h.start, h.end = s, e }
func (h *Header) Parent() Node         { return h.parent }
func (h *Header) SetParent(n Node)     { h.parent = n }
func (h *Header) Predecessors() []Node { return h.preds }
func (h *Header) Successors() []Node   { return h.succs }
func (h *Header) Unreachable() bool    { return h.unreachable }
func (h *Header) SetUnreachable(b bool) {
	h.unreachable = b
}

func (h *Header) AddPredecessor(n Node) { h.preds = append(h.preds, n) }
func (h *Header) AddSuccessor(n Node)   { h.succs = append(h.succs, n) }

func (h *Header) RemovePredecessor(n Node) { h.preds = removeNode(h.preds, n) }
func (h *Header) RemoveSuccessor(n Node)   { h.succs = removeNode(h.succs, n) }

// ClearPredecessors and ClearSuccessors drop all of h's edges on one side,
// used by the structural recovery passes when splicing a composite in
// place of a subgraph with more than one entry or exit point.
func (h *Header) ClearPredecessors() { h.preds = nil }
func (h *Header) ClearSuccessors()   { h.succs = nil }

func (h *Header) ReplacePredecessor(old, new Node) {
	if i := slices.Index(h.preds, old); i >= 0 {
		h.preds[i] = new
	}
}

func (h *Header) ReplaceSuccessor(old, new Node) {
	if i := slices.Index(h.succs, old); i >= 0 {
		h.succs[i] = new
	}
}

func removeNode(list []Node, n Node) []Node {
	if i := slices.Index(list, n); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}
