package simulate

import "github.com/dolthub/swiss"

// Config carries the VM-specific knobs the simulator consults (§6): the
// intrinsic name distinguishing a new-object call from an ordinary one, the
// legacy 2D-array encoding limit, whether arrays are 1D-only (GMLv2+), and
// the leftover-stack policy switch.
type Config struct {
	NewObjectFunctionName    string
	OldArrayLimit            int32
	ModernArrays             bool
	AllowLeftoverDataOnStack bool
}

// FragmentContext is the per-fragment lexical state the AST Builder
// threads through one entry's simulation (§3 "Fragment context"): the set
// of local variable names registered so far. Parent chains to the
// enclosing fragment for lexical scoping of locals and statics; today every
// fragment is simulated as an independent top-level entry (nested code
// entries are decompiled separately, see lang/decompile), so Parent is nil
// in practice, but the field is kept for a host that wants otherwise.
type FragmentContext struct {
	Parent *FragmentContext

	locals *swiss.Map[string, struct{}]
}

// NewFragmentContext returns a fragment context chained to parent (nil at
// the top level).
func NewFragmentContext(parent *FragmentContext) *FragmentContext {
	return &FragmentContext{
		Parent: parent,
		locals: swiss.NewMap[string, struct{}](8),
	}
}

// RegisterLocal records name as a local variable of this fragment (§4.3
// Pop rule 2).
func (c *FragmentContext) RegisterLocal(name string) {
	c.locals.Put(name, struct{}{})
}

// IsLocal reports whether name was registered as a local in this fragment
// or one of its ancestors.
func (c *FragmentContext) IsLocal(name string) bool {
	for f := c; f != nil; f = f.Parent {
		if _, ok := f.locals.Get(name); ok {
			return true
		}
	}
	return false
}
