// Package simulate implements the Block Simulator / AST Builder (§4.3): a
// top-down traversal of the hierarchical CFG built by lang/structure that
// reifies VM stack operations into lang/dast expression and statement
// nodes. A leaf block is simulated instruction by instruction against an
// abstract expression stack; a composite node overrides the traversal to
// assemble its own high-level construct from its children's results.
package simulate
