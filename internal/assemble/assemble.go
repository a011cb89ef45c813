// Package assemble implements the two-pass assembler described in spec
// §4.4: it lowers internal/asm's label-based IR to the flat bytecode format
// internal/bytecode defines, resolving forward jump targets in a second
// pass exactly the way the original assembler this toolchain is modeled on
// does (see SPEC_FULL.md, "Supplemented features").
//
// It also implements a human-readable textual encoding of a Program — Asm
// and Dasm — whose role mirrors the teacher's lang/compiler.Asm/Dasm pair:
// letting the VM and assembler be tested without going through a front end.
package assemble

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/bytecode"
)

// Program is the assembled output: the flat bytecode stream plus the
// runtime error table mapping a byte position (of a PIN or UNWRAP op) back
// to its source position (spec §4.4, §7).
type Program struct {
	Code              []byte
	RuntimeErrorTable map[uint32]asm.Position
}

// forwardJump records a not-yet-resolved jump target: the label id and the
// byte offset of the placeholder 4-byte operand that must be patched once
// the label's address is known.
type forwardJump struct {
	target uint32
	at     uint32
}

// Assembler holds the state of one assembly pass. It is not safe for reuse
// across unrelated IR streams - call New for each internal/asm.Op slice you
// assemble.
type Assembler struct {
	labels       map[uint32]uint32 // label id -> resolved byte address
	forwardJumps []forwardJump
	out          []byte
	errTable     map[uint32]asm.Position
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{
		labels:   make(map[uint32]uint32),
		errTable: make(map[uint32]asm.Position),
	}
}

// Assemble runs both passes over ops and returns the finished Program, or a
// fatal error if any jump target never resolves to a LABEL (spec §4.4 step
// 2, §7 "Assembler: unresolved jump target -> fatal, process exit").
func Assemble(ops []asm.Op) (*Program, error) {
	a := New()
	if err := a.pass1(ops); err != nil {
		return nil, err
	}
	if err := a.pass2(); err != nil {
		return nil, err
	}
	return &Program{Code: a.out, RuntimeErrorTable: a.errTable}, nil
}

func (a *Assembler) emit(op bytecode.Op) { a.out = append(a.out, byte(op)) }

func (a *Assembler) emitU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.out = append(a.out, b[:]...)
}

func (a *Assembler) emitI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	a.out = append(a.out, b[:]...)
}

func (a *Assembler) emitF64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	a.out = append(a.out, b[:]...)
}

func (a *Assembler) emitU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	a.out = append(a.out, b[:]...)
}

func (a *Assembler) emitString(s string) {
	a.emitU64(uint64(len(s)))
	a.out = append(a.out, s...)
}

// emitJumpTarget writes op's byte and either the resolved address (if the
// label is already known — a backward jump) or a zero placeholder recorded
// in forwardJumps for the second pass (a forward jump), per spec §4.4 step 1.
func (a *Assembler) emitJumpTarget(op bytecode.Op, label uint32) {
	a.emit(op)
	if dest, ok := a.labels[label]; ok {
		a.emitU32(dest)
	} else {
		a.forwardJumps = append(a.forwardJumps, forwardJump{target: label, at: uint32(len(a.out))})
		a.emitU32(0)
	}
}

func (a *Assembler) pass1(ops []asm.Op) error {
	for _, op := range ops {
		switch op.Code {
		case asm.LABEL:
			a.labels[op.Arg] = uint32(len(a.out))

		case asm.RET:
			a.emit(bytecode.OpRet)
			if op.HasArg {
				a.out = append(a.out, 1)
			} else {
				a.out = append(a.out, 0)
			}

		case asm.INTEGER:
			a.emit(bytecode.OpInteger)
			a.emitI64(op.I64)

		case asm.FLOAT:
			a.emit(bytecode.OpFloat)
			a.emitF64(op.F64)

		case asm.BOOL:
			if op.Bool {
				a.emit(bytecode.OpTrue)
			} else {
				a.emit(bytecode.OpFalse)
			}

		case asm.CHAR:
			a.emit(bytecode.OpChar)
			a.out = append(a.out, byte(op.Char))

		case asm.STRING:
			a.emit(bytecode.OpString)
			a.emitString(op.Str)

		case asm.NONE:
			a.emit(bytecode.OpNone)

		case asm.NEWLIST:
			a.emit(bytecode.OpNewList)
			a.emitU32(op.Arg)

		case asm.LIST:
			// LIST(n) comes only from the text form (Dasm "list"); codegen's
			// struct/enum constructors emit NEWLIST. It shares the NEWLIST
			// encoding (both box n stack values into one heap list cell).
			a.emit(bytecode.OpNewList)
			a.emitU32(op.Arg)

		case asm.ALLOCGLOBALS:
			a.emit(bytecode.OpAllocGlobals)
			a.emitU32(op.Arg)

		case asm.ALLOCLOCALS:
			a.emit(bytecode.OpAllocLocals)
			a.emitU32(op.Arg)

		case asm.OFFSET:
			a.emit(bytecode.OpOffset)
			a.emitU32(op.Arg)
			a.emitU32(op.Arg2)

		case asm.GET:
			a.emit(bytecode.OpGet)
			a.emitU32(op.Arg)
		case asm.STORE:
			a.emit(bytecode.OpStore)
			a.emitU32(op.Arg)
		case asm.GETGLOBAL:
			a.emit(bytecode.OpGetGlobal)
			a.emitU32(op.Arg)
		case asm.STOREGLOBAL:
			a.emit(bytecode.OpStoreGlobal)
			a.emitU32(op.Arg)
		case asm.STACKREF:
			a.emit(bytecode.OpStackRef)
			a.emitU32(op.Arg)

		case asm.JUMPIFFALSE:
			a.emitJumpTarget(bytecode.OpJumpIfFalse, op.Arg)
		case asm.JMP:
			a.emitJumpTarget(bytecode.OpJmp, op.Arg)
		case asm.FUNCTION:
			a.emitJumpTarget(bytecode.OpFunction, op.Arg)
		case asm.CLOSURE:
			a.emitJumpTarget(bytecode.OpClosure, op.Arg)

		case asm.BJMP:
			// Backward jumps must already have a resolved label (spec §4.4 step 1:
			// "BJMP on an already-known label writes the backward distance").
			dest, ok := a.labels[op.Arg]
			if !ok {
				return fmt.Errorf("assembler: BJMP target label %d not yet defined (backward jumps must target an earlier LABEL)", op.Arg)
			}
			a.emit(bytecode.OpBJmp)
			a.emitU32(uint32(len(a.out)) - dest + 4)

		case asm.DCALL:
			a.emit(bytecode.OpDirectCall)
			a.emitU32(op.Arg)
		case asm.TCALL:
			a.emit(bytecode.OpTailCall)
			a.emitU32(op.Arg)
		case asm.CALL:
			a.emit(bytecode.OpCall)

		case asm.PIN:
			a.errTable[uint32(len(a.out))] = op.Pos
			a.emit(bytecode.OpPIndex)
		case asm.LIN:
			a.emit(bytecode.OpLIndex)

		case asm.FREE:
			a.emit(bytecode.OpFree)
		case asm.CLONE:
			a.emit(bytecode.OpClone)

		case asm.CONCAT:
			a.emit(bytecode.OpConcat)
		case asm.DUP:
			a.emit(bytecode.OpDup)
		case asm.POP:
			a.emit(bytecode.OpPop)
		case asm.ASSIGN:
			a.emit(bytecode.OpAssign)

		case asm.ISSOME:
			a.emit(bytecode.OpIsSome)
		case asm.UNWRAP:
			a.errTable[uint32(len(a.out))] = op.Pos
			a.emit(bytecode.OpUnwrap)

		case asm.NATIVE:
			a.emit(bytecode.OpNative)
			a.emitU32(op.Arg)

		case asm.PRINT:
			a.emit(bytecode.OpPrint)

		case asm.INT_ADD:
			a.emit(bytecode.OpIAdd)
		case asm.INT_SUB:
			a.emit(bytecode.OpISub)
		case asm.INT_MUL:
			a.emit(bytecode.OpIMul)
		case asm.INT_DIV:
			a.emit(bytecode.OpIDiv)
		case asm.INT_MOD:
			a.emit(bytecode.OpIMod)
		case asm.FLOAT_ADD:
			a.emit(bytecode.OpFAdd)
		case asm.FLOAT_SUB:
			a.emit(bytecode.OpFSub)
		case asm.FLOAT_MUL:
			a.emit(bytecode.OpFMul)
		case asm.FLOAT_DIV:
			a.emit(bytecode.OpFDiv)
		case asm.ILSS:
			a.emit(bytecode.OpILss)
		case asm.IGTR:
			a.emit(bytecode.OpIGtr)
		case asm.FLSS:
			a.emit(bytecode.OpFLss)
		case asm.FGTR:
			a.emit(bytecode.OpFGtr)
		case asm.EQUALS:
			a.emit(bytecode.OpEquals)
		case asm.AND:
			a.emit(bytecode.OpAnd)
		case asm.OR:
			a.emit(bytecode.OpOr)
		case asm.NOT:
			a.emit(bytecode.OpNot)
		case asm.NEG:
			a.emit(bytecode.OpNeg)

		default:
			return fmt.Errorf("assembler: unhandled IR op %s", op.Code)
		}
	}
	return nil
}

func (a *Assembler) pass2() error {
	for _, fj := range a.forwardJumps {
		dest, ok := a.labels[fj.target]
		if !ok {
			return fmt.Errorf("assembler: unresolved jump target, no LABEL(%d) exists", fj.target)
		}
		// distance relative to the byte immediately after the 4-byte operand
		// (spec §4.4 step 2).
		rel := dest - fj.at - 4
		binary.LittleEndian.PutUint32(a.out[fj.at:fj.at+4], rel)
	}
	return nil
}
