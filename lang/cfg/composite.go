package cfg

import "github.com/mna/vmdecomp/lang/ir"

// Fragment wraps the top-level body of a CodeEntry (or one of its nested
// children) so the AST Builder can push a fresh FragmentContext (lexical
// scope for locals) when it descends into it. Every CodeEntry, including
// the entry submitted to Decompile, is wrapped in exactly one Fragment.
type Fragment struct {
	Header
	Entry *ir.CodeEntry
	Root  Node
}

func NewFragment(entry *ir.CodeEntry, root Node) *Fragment {
	f := &Fragment{Entry: entry, Root: root}
	f.Header.kind = KindFragment
	if root != nil {
		f.Header.SetRange(root.Start(), root.End())
		root.SetParent(f)
	}
	return f
}

func (f *Fragment) Children() []Node {
	if f.Root == nil {
		return nil
	}
	return []Node{f.Root}
}

// ShortCircuit represents a recovered &&/|| cascade (§4.2.1). Conditions is
// the ordered list of condition-evaluating children; the composite as a
// whole reifies the single boolean result left on the stack.
type ShortCircuit struct {
	Header
	Logic      LogicKind
	Conditions []Node
}

func NewShortCircuit(logic LogicKind, conditions []Node) *ShortCircuit {
	sc := &ShortCircuit{Logic: logic, Conditions: conditions}
	sc.Header.kind = KindShortCircuit
	setRangeFromChildren(&sc.Header, conditions)
	for _, c := range conditions {
		c.SetParent(sc)
	}
	return sc
}

func (sc *ShortCircuit) Children() []Node { return sc.Conditions }

// WhileLoop is a pre-test loop (§4.2.2). Head leaves the condition on the
// stack; Body is the first block inside the loop after the condition; After
// is the synthetic exit anchor.
type WhileLoop struct {
	Header
	HeadNode, BodyNode, AfterNode Node
}

func NewWhileLoop(head, body, after Node) *WhileLoop {
	w := &WhileLoop{HeadNode: head, BodyNode: body, AfterNode: after}
	w.Header.kind = KindWhileLoop
	setRangeFromChildren(&w.Header, []Node{head, body})
	head.SetParent(w)
	if body != nil {
		body.SetParent(w)
	}
	return w
}

func (w *WhileLoop) Children() []Node {
	if w.BodyNode == nil {
		return []Node{w.HeadNode}
	}
	return []Node{w.HeadNode, w.BodyNode}
}

// DoUntilLoop is a post-test loop: body runs at least once, condition
// evaluated in the tail block.
type DoUntilLoop struct {
	Header
	BodyNode, AfterNode Node
}

func NewDoUntilLoop(body, after Node) *DoUntilLoop {
	d := &DoUntilLoop{BodyNode: body, AfterNode: after}
	d.Header.kind = KindDoUntilLoop
	setRangeFromChildren(&d.Header, []Node{body})
	body.SetParent(d)
	return d
}

func (d *DoUntilLoop) Children() []Node { return []Node{d.BodyNode} }

// RepeatLoop is the "repeat (N) { ... }" construct (§4.2.2). HeadNode is the
// VM's counter-test block (push count, dup, compare); its leading
// instruction is the only place the count expression survives.
type RepeatLoop struct {
	Header
	HeadNode, BodyNode, AfterNode Node
}

func NewRepeatLoop(head, body, after Node) *RepeatLoop {
	r := &RepeatLoop{HeadNode: head, BodyNode: body, AfterNode: after}
	r.Header.kind = KindRepeatLoop
	setRangeFromChildren(&r.Header, []Node{head, body})
	head.SetParent(r)
	body.SetParent(r)
	return r
}

func (r *RepeatLoop) Children() []Node { return []Node{r.HeadNode, r.BodyNode} }

// WithLoop represents a "with (expr) { ... }" region bracketed by
// PushWithContext/PopWithContext. BreakBlock is set when the region has a
// dedicated PopenvDrop cleanup block reachable by a break.
type WithLoop struct {
	Header
	BodyNode, AfterNode, BreakBlock Node
}

func NewWithLoop(body, after Node) *WithLoop {
	w := &WithLoop{BodyNode: body, AfterNode: after}
	w.Header.kind = KindWithLoop
	setRangeFromChildren(&w.Header, []Node{body})
	body.SetParent(w)
	return w
}

func (w *WithLoop) Children() []Node {
	if w.BreakBlock != nil {
		return []Node{w.BodyNode, w.BreakBlock}
	}
	return []Node{w.BodyNode}
}

// If represents an if/else diamond (§4.2.3). Else is nil when there is no
// else clause.
type If struct {
	Header
	CondNode, ThenNode, ElseNode Node
}

func NewIf(cond, then, els Node) *If {
	n := &If{CondNode: cond, ThenNode: then, ElseNode: els}
	n.Header.kind = KindIf
	kids := []Node{cond, then}
	if els != nil {
		kids = append(kids, els)
	}
	setRangeFromChildren(&n.Header, kids)
	for _, k := range kids {
		k.SetParent(n)
	}
	return n
}

func (n *If) Children() []Node {
	if n.ElseNode != nil {
		return []Node{n.CondNode, n.ThenNode, n.ElseNode}
	}
	return []Node{n.CondNode, n.ThenNode}
}

// SwitchCase is one case (or the default) of a recovered Switch. Fallthrough
// is represented implicitly: consecutive cases whose Body is nil share the
// next case's body at print time.
type SwitchCase struct {
	Values    []ir.Value
	IsDefault bool
	Body      Node
}

// Switch represents a recovered switch statement (§4.2.3).
type Switch struct {
	Header
	SubjectNode Node
	Cases       []SwitchCase
}

func NewSwitch(subject Node, cases []SwitchCase) *Switch {
	s := &Switch{SubjectNode: subject, Cases: cases}
	s.Header.kind = KindSwitch
	kids := []Node{subject}
	for _, c := range cases {
		if c.Body != nil {
			kids = append(kids, c.Body)
		}
	}
	setRangeFromChildren(&s.Header, kids)
	for _, k := range kids {
		k.SetParent(s)
	}
	return s
}

func (s *Switch) Children() []Node {
	kids := []Node{s.SubjectNode}
	for _, c := range s.Cases {
		if c.Body != nil {
			kids = append(kids, c.Body)
		}
	}
	return kids
}

// TryCatchFinally represents a recovered try/catch/finally region (§4.2.4).
// CatchNode is nil when the try-hook's catch address was -1.
type TryCatchFinally struct {
	Header
	TryNode, CatchNode, FinallyNode Node
}

func NewTryCatchFinally(try, catch, finally Node) *TryCatchFinally {
	t := &TryCatchFinally{TryNode: try, CatchNode: catch, FinallyNode: finally}
	t.Header.kind = KindTryCatchFinally
	kids := []Node{try}
	if catch != nil {
		kids = append(kids, catch)
	}
	kids = append(kids, finally)
	setRangeFromChildren(&t.Header, kids)
	for _, k := range kids {
		k.SetParent(t)
	}
	return t
}

func (t *TryCatchFinally) Children() []Node {
	kids := []Node{t.TryNode}
	if t.CatchNode != nil {
		kids = append(kids, t.CatchNode)
	}
	return append(kids, t.FinallyNode)
}

// setRangeFromChildren sets h's address range to the union of the given
// children's ranges (§3 invariant: a composite's range equals the union of
// its children's ranges).
func setRangeFromChildren(h *Header, kids []Node) {
	if len(kids) == 0 {
		return
	}
	start, end := kids[0].Start(), kids[0].End()
	for _, k := range kids[1:] {
		if k.Start() < start {
			start = k.Start()
		}
		if k.End() > end {
			end = k.End()
		}
	}
	h.SetRange(start, end)
}
