package cfg

import (
	"fmt"
	"sort"

	"github.com/mna/vmdecomp/lang/ir"
)

// BuildError is returned for the Block Builder's fatal conditions: a
// malformed try-hook window or a branch target that is not a block leader.
type BuildError struct {
	EntryName string
	Message   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building blocks for %q: %s", e.EntryName, e.Message)
}

// Config configures the names the Block Builder must recognize by value.
type Config struct {
	TryHookFunctionName string
}

type tryHookWindow struct {
	blockStart            int
	finallyAddr, catchAddr int
}

// BuildBlocks translates entry's linear instruction stream into a list of
// basic blocks in address order, with predecessor/successor edges wired per
// §4.1. Block 0 always starts at address 0; the last block is the sentinel
// end block at [entry.Length, entry.Length).
func BuildBlocks(entry *ir.CodeEntry, cfg Config) ([]*Block, error) {
	insns := entry.Instructions
	length := entry.Length

	leaders := map[int]bool{0: true, length: true}
	var tryHooks []tryHookWindow

	for i, cur := range insns {
		nextAddr := length
		if i+1 < len(insns) {
			nextAddr = insns[i+1].Address
		}

		switch {
		case cur.Opcode.IsBranch():
			leaders[cur.Target()] = true
			leaders[nextAddr] = true
		case cur.Opcode == ir.PopWithContext:
			if !cur.PopWithContextExit() {
				leaders[cur.Target()] = true
			}
			leaders[nextAddr] = true
		case cur.Opcode == ir.Return || cur.Opcode == ir.Exit:
			leaders[nextAddr] = true
		}

		if cur.IsTryHookCall(cfg.TryHookFunctionName) {
			if i < 4 || i+1 >= len(insns) {
				return nil, &BuildError{entry.Name, "try-hook call window out of bounds"}
			}
			finallyPush, catchPush, popDel := insns[i-4], insns[i-2], insns[i+1]
			if finallyPush.Opcode != ir.Push || finallyPush.Type1 != ir.TypeInt32 {
				return nil, &BuildError{entry.Name, "malformed try-hook window: expected finally-address push at -4"}
			}
			if catchPush.Opcode != ir.Push || catchPush.Type1 != ir.TypeInt32 {
				return nil, &BuildError{entry.Name, "malformed try-hook window: expected catch-address push at -2"}
			}
			if popDel.Opcode != ir.PopDelete {
				return nil, &BuildError{entry.Name, "malformed try-hook window: expected popDelete immediately after call"}
			}

			afterPopDelete := length
			if i+2 < len(insns) {
				afterPopDelete = insns[i+2].Address
			}
			leaders[finallyPush.Address] = true
			leaders[afterPopDelete] = true
			tryHooks = append(tryHooks, tryHookWindow{
				blockStart:  finallyPush.Address,
				finallyAddr: int(finallyPush.Value.Int),
				catchAddr:   int(catchPush.Value.Int),
			})
		}
	}

	addrs := make([]int, 0, len(leaders))
	for a := range leaders {
		if a != length {
			i := sort.Search(len(insns), func(i int) bool { return insns[i].Address >= a })
			if i == len(insns) || insns[i].Address != a {
				return nil, &BuildError{entry.Name, fmt.Sprintf("dangling branch target %d", a)}
			}
		}
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)

	blocks := make([]*Block, 0, len(addrs))
	byStart := make(map[int]*Block, len(addrs))
	for idx, start := range addrs {
		end := length
		if idx+1 < len(addrs) {
			end = addrs[idx+1]
		}
		var body []ir.Instruction
		if start < length {
			body = sliceByAddress(insns, start, end)
		}
		b := NewBlock(idx, start, end, body)
		blocks = append(blocks, b)
		byStart[start] = b
	}

	for _, th := range tryHooks {
		b, ok := byStart[th.blockStart]
		if !ok {
			return nil, &BuildError{entry.Name, "internal error: try-hook block leader not found"}
		}
		b.TryHook = true
		b.FinallyAddr = th.finallyAddr
		b.CatchAddr = th.catchAddr
	}

	if err := wireEdges(entry.Name, blocks, byStart); err != nil {
		return nil, err
	}
	patchUnreachable(blocks)

	return blocks, nil
}

func wireEdges(entryName string, blocks []*Block, byStart map[int]*Block) error {
	target := func(addr int) (*Block, error) {
		b, ok := byStart[addr]
		if !ok {
			return nil, &BuildError{entryName, fmt.Sprintf("dangling branch target %d", addr)}
		}
		return b, nil
	}

	for _, b := range blocks {
		if len(b.Instructions) == 0 {
			continue // sentinel end block: no successors
		}
		last := b.Instructions[len(b.Instructions)-1]

		switch last.Opcode {
		case ir.Branch:
			tgt, err := target(last.Target())
			if err != nil {
				return err
			}
			link(b, tgt)

		case ir.BranchTrue, ir.BranchFalse, ir.PushWithContext:
			ft, err := target(b.End())
			if err != nil {
				return err
			}
			tgt, err := target(last.Target())
			if err != nil {
				return err
			}
			link(b, ft)
			link(b, tgt)

		case ir.PopWithContext:
			ft, err := target(b.End())
			if err != nil {
				return err
			}
			link(b, ft)
			if !last.PopWithContextExit() {
				tgt, err := target(last.Target())
				if err != nil {
					return err
				}
				link(b, tgt)
			}

		case ir.PopDelete:
			ft, err := target(b.End())
			if err != nil {
				return err
			}
			link(b, ft)
			if b.TryHook {
				fin, err := target(b.FinallyAddr)
				if err != nil {
					return err
				}
				link(b, fin)
				if b.CatchAddr != -1 {
					c, err := target(b.CatchAddr)
					if err != nil {
						return err
					}
					link(b, c)
				}
			}

		case ir.Return, ir.Exit:
			// no successors

		default:
			ft, err := target(b.End())
			if err != nil {
				return err
			}
			link(b, ft)
		}
	}
	return nil
}

// patchUnreachable wires every non-initial block with no predecessors to the
// immediately preceding block, so the graph stays weakly connected (§4.1).
func patchUnreachable(blocks []*Block) {
	for i := 1; i < len(blocks); i++ {
		b := blocks[i]
		if len(b.Predecessors()) == 0 {
			b.SetUnreachable(true)
			link(blocks[i-1], b)
		}
	}
}

func link(a, b *Block) {
	a.AddSuccessor(b)
	b.AddPredecessor(a)
}

func sliceByAddress(insns []ir.Instruction, start, end int) []ir.Instruction {
	lo := sort.Search(len(insns), func(i int) bool { return insns[i].Address >= start })
	hi := sort.Search(len(insns), func(i int) bool { return insns[i].Address >= end })
	return insns[lo:hi]
}
