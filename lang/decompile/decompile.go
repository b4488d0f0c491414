package decompile

import (
	"context"
	"sync"

	"github.com/mna/vmdecomp/lang/dast"
	"github.com/mna/vmdecomp/lang/ir"
)

// Result is one entry's decompiled output: the recovered AST, the warnings
// raised while building it, and the Results for any nested code entries
// (§3 "CodeEntry.Children" — nested function/struct bodies are decompiled
// independently, each producing its own Result, rather than inlined into
// the parent's AST).
type Result struct {
	EntryName string
	AST       *dast.BlockStmt
	Warnings  WarningList
	Children  []*Result
}

// Decompile runs the pipeline over entry and, recursively, every entry in
// entry.Children. It returns on the first fatal error encountered,
// anywhere in the tree, wrapped with the failing entry's name and pass.
func Decompile(entry *ir.CodeEntry, cfg Config) (*Result, error) {
	c := NewContext(entry, cfg)
	if err := c.Run(); err != nil {
		return nil, err
	}

	res := &Result{EntryName: entry.Name, AST: c.AST, Warnings: c.Warnings}
	if n := entry.ChildCount(); n > 0 {
		res.Children = make([]*Result, n)
		for i := 0; i < n; i++ {
			child, err := Decompile(entry.GetChild(i), cfg)
			if err != nil {
				return nil, err
			}
			res.Children[i] = child
		}
	}
	return res, nil
}

// DecompileAll fans entries out over a bounded pool of goroutines — a host
// convenience (§5 "Concurrency & Resource Model"), not a core pass: each
// entry gets its own Context and no state is shared between them. Results
// are returned in the same order as entries; a failure on one entry does
// not prevent the others from completing. concurrency <= 0 means
// len(entries) (unbounded).
//
// ctx is honored between entries only: if it is already canceled when an
// entry's turn comes up, that entry is skipped and ctx.Err() is recorded as
// its error, matching §5's "cancellation... between entries" policy.
func DecompileAll(ctx context.Context, entries []*ir.CodeEntry, cfg Config, concurrency int) ([]*Result, []error) {
	results := make([]*Result, len(entries))
	errs := make([]error, len(entries))

	if concurrency <= 0 || concurrency > len(entries) {
		concurrency = len(entries)
	}
	if concurrency == 0 {
		return results, errs
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, entry := range entries {
		i, entry := i, entry
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			res, err := Decompile(entry, cfg)
			results[i] = res
			errs[i] = err
		}()
	}
	wg.Wait()

	return results, errs
}
