// Package vmconst holds the small set of VM-defined names and magic numbers
// that the decompiler core must recognize by value, but does not itself
// define. In a full system these come from the bytecode loader's constants
// module; here they are plain package-level values so the core has something
// concrete to compare against.
package vmconst

// TryHookFunction is the name of the intrinsic call that marks the start of
// a try/catch/finally region (see lang/cfg's try-hook isolation).
const TryHookFunction = "@@try_hook@@"

// NewObjectFunction is the name of the intrinsic call the Block Simulator
// recognizes to turn a Call instruction into a new-object expression.
const NewObjectFunction = "@@new@@"

// NullObject and NewGMLObject are the struct-construction intrinsics that
// distinguish struct literals from ordinary object construction. No pass of
// the core compares against them, since the core does not implement
// struct-literal recovery; it carries the names so a host's constants
// module can be mapped onto them.
const (
	NullObject   = "@@null_object@@"
	NewGMLObject = "@@new_gml_object@@"
)

// OldArrayLimit is the 2D-array multiplier used by legacy (pre-GMLv2)
// bytecode to flatten a 2-dimensional array index into a single stack value:
// index = outer*OldArrayLimit + inner.
const OldArrayLimit = 32000
