// Package tailcall implements the peephole pass spec §4.8 describes:
// rewriting a self-recursive DCALL immediately followed by RET into a
// TCALL, so the interpreter reuses the current activation window instead of
// growing the call stack. It runs on the IR, before assembly.
package tailcall

import "github.com/ash-lang/ash/internal/asm"

// Optimize walks ops pushing the name of every FUNCTION it meets onto a
// stack and rewrites every DCALL(slot, name) immediately followed by RET
// where name matches the top of that stack into TCALL(slot, name), dropping
// the RET (spec §4.8: "only self-tail-calls are optimised"). Names are never
// popped, so the top is the most recent FUNCTION seen: after a nested named
// function, the rest of the enclosing body matches against the nested name.
// CLOSURE bodies push nothing.
func Optimize(ops []asm.Op) []asm.Op {
	out := make([]asm.Op, 0, len(ops))
	var enclosing []string

	for i := 0; i < len(ops); i++ {
		op := ops[i]

		if op.Code == asm.FUNCTION {
			enclosing = append(enclosing, op.Str)
			out = append(out, op)
			continue
		}

		if op.Code == asm.DCALL && i+1 < len(ops) && ops[i+1].Code == asm.RET {
			if len(enclosing) > 0 && enclosing[len(enclosing)-1] == op.Str {
				out = append(out, asm.Tcall(op.Arg, op.Str))
				i++ // drop the following RET
				continue
			}
		}

		out = append(out, op)
	}

	return out
}
