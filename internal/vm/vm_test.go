package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/assemble"
	"github.com/ash-lang/ash/internal/vm"
)

func run(t *testing.T, ops []asm.Op, natives []vm.Native) (string, error) {
	t.Helper()
	prog, err := assemble.Assemble(ops)
	require.NoError(t, err)

	var out bytes.Buffer
	st := vm.NewState(prog.Code, prog.RuntimeErrorTable, natives)
	m := vm.New(st, &out)
	err = m.Run()
	return out.String(), err
}

// TestArithmeticAndPrint mirrors spec scenario S1: `1 + 2*3` prints 7.
func TestArithmeticAndPrint(t *testing.T) {
	ops := []asm.Op{
		asm.Integer(2),
		asm.Integer(3),
		asm.Simple(asm.INT_MUL),
		asm.Integer(1),
		// stack: [6, 1] pushed in order int(2),int(3),mul->6,int(1)
		// INT_ADD computes a-op-b where a is pushed-first(=6), b is pushed-second(=1)
		asm.Simple(asm.INT_ADD),
		asm.Simple(asm.PRINT),
		asm.Ret(false),
	}
	out, err := run(t, ops, nil)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

// TestBranch mirrors spec scenario S2.
func TestBranch(t *testing.T) {
	g := asm.NewLabelGen()
	elseL := g.Gen()
	endL := g.Gen()
	ops := []asm.Op{
		asm.Integer(5),
		asm.Integer(3),
		asm.Simple(asm.IGTR), // 5 > 3 -> true
		asm.JumpIfFalse(elseL),
		asm.String("a"),
		asm.Simple(asm.PRINT),
		asm.Jmp(endL),
		asm.Label(elseL),
		asm.String("b"),
		asm.Simple(asm.PRINT),
		asm.Label(endL),
		asm.Ret(false),
	}
	out, err := run(t, ops, nil)
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)
}

// TestListIndexing mirrors spec scenario S5: a list literal indexed
// positively (negative-index normalisation is codegen's job, not the VM's;
// here we exercise the underlying LIN opcode directly).
func TestListIndexing(t *testing.T) {
	ops := []asm.Op{
		asm.Integer(10),
		asm.Integer(20),
		asm.Integer(30),
		asm.NewListOp(3),
		asm.Integer(2),
		asm.Simple(asm.LIN),
		asm.Simple(asm.PRINT),
		asm.Ret(false),
	}
	out, err := run(t, ops, nil)
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)
}

// TestUnwrapNoneIsRuntimeError mirrors spec scenario S6.
func TestUnwrapNoneIsRuntimeError(t *testing.T) {
	pos := asm.Position{File: "main.ash", Line: 1, Column: 5}
	ops := []asm.Op{
		asm.None(),
		{Code: asm.UNWRAP, Pos: pos},
	}
	_, err := run(t, ops, nil)
	require.Error(t, err)
}

// TestRecursiveCallWindowDiscipline is a hand-assembled factorial(5),
// mirroring spec scenario S3 and exercising the OFFSET/RET window
// bookkeeping that testable-property 5 describes.
func TestRecursiveCallWindowDiscipline(t *testing.T) {
	g := asm.NewLabelGen()
	baseLabel := g.Gen()
	recurseLabel := g.Gen()
	endLabel := g.Gen()

	// slot 0: global holding the factorial function value.
	// fn f(n): if n <= 1 return 1 else return n * f(n-1)
	// FUNCTION pushes the address of the body that follows it and jumps
	// to endLabel, past the body.
	ops := []asm.Op{
		asm.AllocGlobals(1),

		asm.Function(endLabel, "f_Int"),
		asm.Offset(1, 0), // 1 arg (n), no extra locals
		asm.Get(0),
		asm.Integer(1),
		asm.Simple(asm.IGTR), // n > 1 ?
		asm.JumpIfFalse(baseLabel),
		asm.Jmp(recurseLabel),

		asm.Label(baseLabel),
		asm.Integer(1),
		asm.Ret(true),

		asm.Label(recurseLabel),
		asm.Get(0),
		asm.Get(0),
		asm.Integer(1),
		asm.Simple(asm.INT_SUB), // n - 1
		asm.GetGlobal(0),
		asm.Simple(asm.CALL),
		asm.Simple(asm.INT_MUL), // n * f(n-1)
		asm.Ret(true),

		asm.Label(endLabel),
		asm.StoreGlobal(0),
		asm.Integer(5),
		asm.GetGlobal(0),
		asm.Simple(asm.CALL),
		asm.Simple(asm.PRINT),
		asm.Ret(false),
	}
	out, err := run(t, ops, nil)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out)
}
