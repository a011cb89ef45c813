package maincmd

import (
	"bytes"
	"context"
	"encoding/gob"
	"os"

	"github.com/mna/mainer"

	"github.com/ash-lang/ash/internal/assemble"
	"github.com/ash-lang/ash/internal/telemetry"
)

// writeProgram gob-encodes p to path. Spec §6 leaves the bytecode file
// format to the implementation ("implementations may choose any stable
// encoding provided loader and emitter agree"); encoding/gob is the
// idiomatic stdlib choice here since nothing in the example pack wires a
// third-party binary-serialisation library for this concern (see
// DESIGN.md).
func writeProgram(path string, p *assemble.Program) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// readProgram decodes a Program previously written by writeProgram.
func readProgram(path string) (*assemble.Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p assemble.Program
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// BinRun executes one or more previously compiled bytecode files (spec §6
// "bin run").
func (c *Cmd) BinRun(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		p, err := readProgram(path)
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

// BinDbg behaves like BinRun but with telemetry raised to debug level,
// mirroring FileDbg (spec §6 "bin dbg").
func (c *Cmd) BinDbg(ctx context.Context, stdio mainer.Stdio, args []string) error {
	telemetry.SetVerbose(true)
	defer telemetry.SetVerbose(false)
	return c.BinRun(ctx, stdio, args)
}
