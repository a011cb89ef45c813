package codegen

import (
	"fmt"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// enterBlock and leaveBlock open and close a plain (non-closure-boundary)
// lexical scope for If/While/For/Match/... bodies, keeping fc's local-slot
// scope stack and pc's env scope stack in lockstep.
func (pc *pcomp) enterBlock(fc *fcomp) {
	pc.pushScope(false)
	if fc != nil {
		fc.pushBlock()
	}
}

func (pc *pcomp) leaveBlock(fc *fcomp) {
	pc.popScope()
	if fc != nil {
		fc.popBlock()
	}
}

// declareTemp reserves a compiler-synthesized slot of type t, local if fc is
// non-nil or global at top level, returning the ops that read and write it.
// Used by indexing's negative-index normalisation and by constructs (match
// subjects, comprehension accumulators) that need to evaluate something
// once and read it back more than once.
func (pc *pcomp) declareTemp(fc *fcomp, t types.Type) (get asm.Op, store asm.Op) {
	name := fmt.Sprintf("<tmp%d>", pc.tempSeq)
	pc.tempSeq++
	if fc != nil {
		slot := fc.declareLocal(name, t, token.NoPos)
		return asm.Get(slot), asm.Store(slot)
	}
	slot := pc.nextGlobal
	pc.nextGlobal++
	return asm.GetGlobal(slot), asm.StoreGlobal(slot)
}

// nativeIndex resolves a required standard native by name, failing compile
// cleanly if the supplied registry doesn't carry it instead of panicking at
// run time on an out-of-range NATIVE operand.
func (pc *pcomp) nativeIndex(name string, pos token.Position) (uint32, error) {
	if pc.natives == nil {
		return 0, diag.New(diag.KindCompile, pos, "native %q required but no native registry configured", name)
	}
	idx, ok := pc.natives.Index(name)
	if !ok {
		return 0, diag.New(diag.KindCompile, pos, "required native %q is not registered", name)
	}
	return idx, nil
}

func posOf(p token.Position) asm.Position {
	return asm.Position{File: p.File, Line: p.Line, Column: p.Column}
}
