package assemble_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/assemble"
	"github.com/ash-lang/ash/internal/bytecode"
)

func TestAssembleLiterals(t *testing.T) {
	ops := []asm.Op{
		asm.Integer(42),
		asm.Float(3.5),
		asm.Bool(true),
		asm.String("hi"),
		asm.Char('x'),
		asm.None(),
	}
	prog, err := assemble.Assemble(ops)
	require.NoError(t, err)

	code := prog.Code
	require.Equal(t, byte(bytecode.OpInteger), code[0])
	require.Equal(t, int64(42), int64(binary.LittleEndian.Uint64(code[1:9])))

	off := 9
	require.Equal(t, byte(bytecode.OpFloat), code[off])
	off++
	require.Equal(t, 3.5, math.Float64frombits(binary.LittleEndian.Uint64(code[off:off+8])))
	off += 8

	require.Equal(t, byte(bytecode.OpTrue), code[off])
	off++

	require.Equal(t, byte(bytecode.OpString), code[off])
	off++
	strLen := binary.LittleEndian.Uint64(code[off : off+8])
	off += 8
	require.Equal(t, uint64(2), strLen)
	require.Equal(t, "hi", string(code[off:off+2]))
	off += 2

	require.Equal(t, byte(bytecode.OpChar), code[off])
	off++
	require.Equal(t, byte('x'), code[off])
	off++

	require.Equal(t, byte(bytecode.OpNone), code[off])
}

func TestAssembleForwardJump(t *testing.T) {
	// jif L0; integer 1; jmp L1; label L0: integer 2; label L1: ret false
	g := asm.NewLabelGen()
	skip := g.Gen()
	end := g.Gen()
	ops := []asm.Op{
		asm.JumpIfFalse(skip),
		asm.Integer(1),
		asm.Jmp(end),
		asm.Label(skip),
		asm.Integer(2),
		asm.Label(end),
		asm.Ret(false),
	}
	prog, err := assemble.Assemble(ops)
	require.NoError(t, err)

	code := prog.Code
	assert.Equal(t, byte(bytecode.OpJumpIfFalse), code[0])
	jifTarget := binary.LittleEndian.Uint32(code[1:5])
	// jif operand is relative to the byte right after its own 4-byte operand.
	jifAfter := uint32(5)
	destOfSkipLabel := jifAfter + jifTarget
	// the skip label sits right after "integer 1" (1+8) and "jmp L1" (1+4)
	expectedSkip := jifAfter + 9 + 5
	assert.Equal(t, expectedSkip, destOfSkipLabel)

	jmpPos := uint32(5 + 9) // after jif + integer
	assert.Equal(t, byte(bytecode.OpJmp), code[jmpPos])
}

func TestAssembleBackwardJump(t *testing.T) {
	g := asm.NewLabelGen()
	top := g.Gen()
	ops := []asm.Op{
		asm.Label(top),
		asm.Integer(1),
		asm.Bjmp(top),
	}
	prog, err := assemble.Assemble(ops)
	require.NoError(t, err)

	code := prog.Code
	require.Equal(t, byte(bytecode.OpInteger), code[0])
	bjmpPos := 9
	require.Equal(t, byte(bytecode.OpBJmp), code[bjmpPos])
	dist := binary.LittleEndian.Uint32(code[bjmpPos+1 : bjmpPos+5])
	assert.Equal(t, uint32(bjmpPos+5), dist) // distance back to label at offset 0, plus the +4 fixup
}

func TestAssembleUnresolvedLabelIsFatal(t *testing.T) {
	ops := []asm.Op{asm.Jmp(999)}
	_, err := assemble.Assemble(ops)
	require.Error(t, err)
}

func TestAssembleBackwardJumpToUnknownLabelErrors(t *testing.T) {
	ops := []asm.Op{asm.Bjmp(5)}
	_, err := assemble.Assemble(ops)
	require.Error(t, err)
}

func TestRuntimeErrorTableRecordsPinPositions(t *testing.T) {
	pos := asm.Position{File: "main.ash", Line: 3, Column: 7}
	ops := []asm.Op{
		asm.Integer(0),
		asm.Pin(pos),
	}
	prog, err := assemble.Assemble(ops)
	require.NoError(t, err)
	require.Len(t, prog.RuntimeErrorTable, 1)
	for _, p := range prog.RuntimeErrorTable {
		assert.Equal(t, pos, p)
	}
}

func TestAsmDasmRoundTrip(t *testing.T) {
	g := asm.NewLabelGen()
	l0 := g.Gen()
	ops := []asm.Op{
		asm.Function(l0, "main_Int"),
		asm.AllocLocals(2),
		asm.Integer(7),
		asm.Store(0),
		asm.Get(0),
		asm.Dcall(3, "println_Int"),
		asm.Simple(asm.POP),
		asm.Ret(false),
		asm.Label(l0),
	}
	text := assemble.Asm(ops)
	back, err := assemble.Dasm(text)
	require.NoError(t, err)
	require.Equal(t, len(ops), len(back))

	progA, err := assemble.Assemble(ops)
	require.NoError(t, err)
	progB, err := assemble.Assemble(back)
	require.NoError(t, err)
	assert.Equal(t, progA.Code, progB.Code)
}

func TestDasmRejectsUnknownMnemonic(t *testing.T) {
	_, err := assemble.Dasm("bogus 1\n")
	require.Error(t, err)
}
