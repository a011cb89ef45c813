// Package maincmd implements the CLI verb tree spec §6 describes (`file
// run|dbg|dis|compile|time`, `bin run|dbg`, `asm run|compile`), grounded on
// the teacher's own internal/maincmd: a flag-struct-with-tags Cmd parsed by
// github.com/mna/mainer, method names reflected into a verb table by
// buildCmds.
package maincmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/assemble"
	"github.com/ash-lang/ash/internal/codegen"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/native"
	"github.com/ash-lang/ash/internal/parser"
	"github.com/ash-lang/ash/internal/tailcall"
	"github.com/ash-lang/ash/internal/telemetry"
	"github.com/ash-lang/ash/internal/vm"
)

// nativeRegistry is the standard native set every run/dbg/compile verb
// wires into codegen and the VM, so println/uuid/heap_stats calls resolve
// (spec §4.7).
func nativeRegistry() *native.Registry { return native.Standard() }

// lowerSource runs the lexer/parser/codegen/tailcall phases on src,
// stopping short of assembly (used by `file dis`, which prints the
// label-based IR rather than flat bytecode). Each phase is timed via
// internal/telemetry.Phase, the same structured-logging role the teacher
// gives its own maincmd commands.
func lowerSource(path, src string) ([]asm.Op, error) {
	done := telemetry.Phase("parse", path)
	prog, err := parser.Parse(path, src)
	done()
	if err != nil {
		return nil, err
	}

	done = telemetry.Phase("codegen", path)
	c := codegen.New(nativeRegistry())
	ops, err := c.Compile(prog)
	done()
	if err != nil {
		return nil, err
	}

	return tailcall.Optimize(ops), nil
}

// compileFile runs the full pipeline on one source file, through assembly,
// and returns the assembled Program.
func compileFile(path string) (*assemble.Program, error) {
	done := telemetry.Phase("read", path)
	src, err := os.ReadFile(path)
	done()
	if err != nil {
		return nil, err
	}

	ops, err := lowerSource(path, string(src))
	if err != nil {
		return nil, err
	}

	done = telemetry.Phase("assemble", path)
	p, err := assemble.Assemble(ops)
	done()
	return p, err
}

// runProgram executes p, writing VM output to stdout. It's shared by `file
// run` and `bin run`/`asm run`, which only differ in how they obtain p.
func runProgram(p *assemble.Program, stdout io.Writer) error {
	st := vm.NewState(p.Code, p.RuntimeErrorTable, nativeRegistry().Natives())
	w := bufio.NewWriter(stdout)
	m := vm.New(st, w)
	if err := m.Run(); err != nil {
		w.Flush()
		return err
	}
	return w.Flush()
}

// printDiag renders err as a CLI diagnostic, coloring the caret line when w
// is an interactive terminal (spec: go-isatty "disables ANSI caret coloring
// in diagnostics when stdout isn't a TTY").
func printDiag(w io.Writer, err error) {
	de, ok := err.(*diag.Error)
	if !ok {
		fmt.Fprintln(w, err)
		return
	}
	report := de.Report()
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		report = colorizeCaret(report)
	}
	fmt.Fprintln(w, report)
}

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// colorizeCaret wraps a Report()'s trailing "^" marker line in red. Report
// emits at most one caret line, always last, so the last newline splits the
// message from it.
func colorizeCaret(report string) string {
	idx := lastNewline(report)
	if idx < 0 || idx == len(report)-1 {
		return report
	}
	return report[:idx+1] + ansiRed + report[idx+1:] + ansiReset
}

func lastNewline(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}
