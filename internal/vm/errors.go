package vm

import (
	"fmt"

	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/token"
)

// runtimeError builds a diag.Error for a fault at the opcode whose byte
// position is opPos, consulting State.RuntimeErrorTable for the source
// position recorded by the assembler's PIN/UNWRAP bookkeeping (spec §4.4,
// §7). Faults at positions with no table entry (e.g. a division by zero,
// which carries no PIN) report with an unknown position.
func (s *State) runtimeError(opPos uint32, format string, args ...interface{}) error {
	pos, ok := s.RuntimeErrorTable[opPos]
	tpos := token.NoPos
	if ok {
		tpos = token.Position{File: pos.File, Line: pos.Line, Column: pos.Column}
	}
	return diag.New(diag.KindRuntime, tpos, format, args...)
}

func (s *State) typeMismatch(opPos uint32, op string) error {
	return s.runtimeError(opPos, "%s: operand type mismatch", op)
}

var errUnwrapNone = fmt.Errorf("unwrap of None value")
