package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/vmdecomp/lang/asmtext"
	"github.com/mna/vmdecomp/lang/decompile"
	"github.com/mna/vmdecomp/lang/ir"
	"github.com/mna/vmdecomp/lang/printer"
	"github.com/mna/vmdecomp/lang/vmconst"
)

func (c *Cmd) Decompile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg := decompile.Config{
		TryHookFunctionName:      vmconst.TryHookFunction,
		NewObjectFunctionName:    vmconst.NewObjectFunction,
		OldArrayLimit:            vmconst.OldArrayLimit,
		ModernArrays:             true,
		AllowLeftoverDataOnStack: c.AllowLeftoverStack,
	}
	pcfg := printer.Config{
		UseSemicolon:                    c.Semicolons,
		EmptyLineAroundBranchStatements: c.BlankAroundBranches,
		EmptyLineBeforeSwitchCases:      c.BlankAroundCases,
		EmptyLineAfterSwitchCases:       c.BlankAroundCases,
	}
	return DecompileFiles(ctx, stdio, cfg, pcfg, args...)
}

// DecompileFiles runs the full pipeline on every named file's top-level
// entry (and, recursively, its Children), printing recovered source to
// stdio.Stdout and any warnings to stdio.Stderr.
func DecompileFiles(ctx context.Context, stdio mainer.Stdio, cfg decompile.Config, pcfg printer.Config, files ...string) error {
	var firstErr error
	for _, file := range files {
		entry, err := readEntry(file)
		if err != nil {
			firstErr = printError(stdio, err)
			continue
		}

		result, err := decompile.Decompile(entry, cfg)
		if err != nil {
			firstErr = printError(stdio, fmt.Errorf("%s: %w", file, err))
			continue
		}

		if err := printResult(stdio, pcfg, file, result); err != nil {
			firstErr = printError(stdio, fmt.Errorf("%s: %w", file, err))
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return firstErr
}

func printResult(stdio mainer.Stdio, pcfg printer.Config, file string, result *decompile.Result) error {
	fmt.Fprintf(stdio.Stdout, "// %s: %s\n", file, result.EntryName)
	p := &printer.Printer{Output: stdio.Stdout, Config: pcfg}
	if err := p.Print(result.AST); err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(stdio.Stderr, w)
	}
	for _, child := range result.Children {
		if err := printResult(stdio, pcfg, file, child); err != nil {
			return err
		}
	}
	return nil
}

func readEntry(file string) (*ir.CodeEntry, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	entry, err := asmtext.Assemble(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return entry, nil
}
