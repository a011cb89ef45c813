package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/assemble"
	"github.com/ash-lang/ash/internal/telemetry"
)

// FileRun compiles and executes one or more source files (spec §6 "file
// run"), stopping at the first phase error.
func (c *Cmd) FileRun(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		p, err := compileFile(path)
		if err != nil {
			printDiag(stdio.Stderr, err)
			return err
		}
		if err := runProgram(p, stdio.Stdout); err != nil {
			printDiag(stdio.Stderr, err)
			return err
		}
	}
	return nil
}

// FileDbg behaves like FileRun but runs with telemetry at debug level, so
// phase timings and a "running" line per file are logged. It does not
// report the VM's heap state; a full interactive debugger is out of scope
// (spec §9).
func (c *Cmd) FileDbg(ctx context.Context, stdio mainer.Stdio, args []string) error {
	telemetry.SetVerbose(true)
	defer telemetry.SetVerbose(false)

	for _, path := range args {
		p, err := compileFile(path)
		if err != nil {
			printDiag(stdio.Stderr, err)
			return err
		}
		telemetry.Logger.WithField("file", path).Info("running")
		if err := runProgram(p, stdio.Stdout); err != nil {
			printDiag(stdio.Stderr, err)
			return err
		}
	}
	return nil
}

// FileDis compiles one or more source files and prints their assembled
// program in the human-readable IR form internal/assemble.Asm renders,
// without assembling to flat bytecode (spec §6 "file dis").
func (c *Cmd) FileDis(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		ops, err := lowerToIR(path)
		if err != nil {
			printDiag(stdio.Stderr, err)
			return err
		}
		fmt.Fprint(stdio.Stdout, assemble.Asm(ops))
	}
	return nil
}

// FileCompile compiles a single source file to a bytecode file (spec §6
// "file compile", positional <filepath> and optional <output-name>).
func (c *Cmd) FileCompile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		err := fmt.Errorf("compile: a source file is required")
		printDiag(stdio.Stderr, err)
		return err
	}
	path := args[0]
	out := path + ".ashbin"
	if len(args) > 1 {
		out = args[1]
	}

	p, err := compileFile(path)
	if err != nil {
		printDiag(stdio.Stderr, err)
		return err
	}
	if err := writeProgram(out, p); err != nil {
		printDiag(stdio.Stderr, err)
		return err
	}
	return nil
}

// FileTime compiles one or more source files and reports each phase's
// duration via internal/telemetry. It raises the logger to debug level for
// its own duration, so the timings show without --verbose, then restores
// the previous level (spec §6 "file time").
func (c *Cmd) FileTime(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prev := telemetry.Logger.GetLevel()
	telemetry.SetVerbose(true)
	defer telemetry.Logger.SetLevel(prev)

	for _, path := range args {
		if _, err := compileFile(path); err != nil {
			printDiag(stdio.Stderr, err)
			return err
		}
	}
	return nil
}

// lowerToIR runs the pipeline through tail-call optimisation but stops
// short of assembly, for FileDis.
func lowerToIR(path string) ([]asm.Op, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return lowerSource(path, string(src))
}
