// Package printer defines the boundary between the decompiler core and
// source-text rendering (§6 "Output (to the printer)"): an
// ast.Node -> string interface plus a reference implementation that turns
// a lang/dast tree back into ALGOL-like source. Formatting *policy* (blank
// lines, semicolon style) is deliberately thin and driven entirely by
// Config so the core passes never need to know about it; this package
// exists so the pipeline is runnable end-to-end for golden-text tests, not
// to reintroduce printer concerns into lang/simulate or lang/structure.
package printer
