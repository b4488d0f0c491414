// Package asmtext implements a human-readable textual encoding of a
// ir.CodeEntry, grounded on the teacher's lang/compiler Asm/Dasm pair: a
// line/field scanner, named sections, and a two-pass branch-target
// translation (instruction index while parsing, relative address offset
// once the full stream is known). It exists so tests can write fixtures as
// short text blocks instead of hand-built []ir.Instruction literals.
//
// Unlike the teacher's format, there is no program-level constants/names
// pool to resolve against: string, int and bool literals are written
// inline on the instruction line, and variable/function references carry
// their name directly.
package asmtext
