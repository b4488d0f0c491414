// Package decompile sequences the three-pass pipeline — Block Builder,
// Structural Recovery, Block Simulator/AST Builder — over one code entry at
// a time and accumulates the warnings and fatal errors the passes produce.
// It owns no cross-entry state: each call to Decompile starts a fresh
// Context, so a host may run many concurrently, one per entry (see
// DecompileAll for a bounded convenience over a slice of entries).
package decompile
