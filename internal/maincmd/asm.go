package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ash-lang/ash/internal/assemble"
)

// AsmRun assembles and executes one or more human-readable IR listings
// (internal/assemble.Asm's textual form), the role the teacher's own
// Asm/Dasm pair plays for exercising the VM without a front end (spec §6
// "asm run").
func (c *Cmd) AsmRun(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		p, err := assembleTextFile(path)
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

// AsmCompile assembles a human-readable IR listing into a bytecode file
// (spec §6 "asm compile", positional <filepath> and optional
// <output-name>).
func (c *Cmd) AsmCompile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		err := fmt.Errorf("compile: an assembly file is required")
		printDiag(stdio.Stderr, err)
		return err
	}
	path := args[0]
	out := path + ".ashbin"
	if len(args) > 1 {
		out = args[1]
	}

	p, err := assembleTextFile(path)
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

func assembleTextFile(path string) (*assemble.Program, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ops, err := assemble.Dasm(string(text))
	if err != nil {
		return nil, err
	}
	return assemble.Assemble(ops)
}
