package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/assemble"
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/native"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
	"github.com/ash-lang/ash/internal/vm"
)

type sink struct{ s string }

func (w *sink) WriteString(s string) (int, error) { w.s += s; return len(s), nil }

// run compiles prog, assembles it, and executes it to completion, returning
// the Compiler (so a test can read back global slots) and the VM's final
// state.
func run(t *testing.T, prog []ast.Stmt, natives *native.Registry) (*Compiler, *vm.State) {
	t.Helper()
	c := New(natives)
	ops, err := c.Compile(prog)
	require.NoError(t, err)

	program, err := assemble.Assemble(ops)
	require.NoError(t, err)

	var nativeFns []vm.Native
	if natives != nil {
		nativeFns = natives.Natives()
	}
	st := vm.NewState(program.Code, program.RuntimeErrorTable, nativeFns)
	m := vm.New(st, &sink{})
	err = m.Run()
	require.NoError(t, err)
	return c, st
}

func intLit(v int64) *ast.Literal { return ast.NewLiteral(token.NoPos, types.Int(), v) }
func ident(name string, t types.Type) *ast.Identifier {
	return ast.NewIdentifier(token.NoPos, t, name)
}

func globalValue(t *testing.T, c *Compiler, st *vm.State, name string) vm.VmData {
	t.Helper()
	slot, ok := c.pc.globalIndex[name]
	require.True(t, ok, "global %q was never declared", name)
	require.Less(t, int(slot), len(st.Stack))
	return st.Stack[slot]
}

// let result = 2 + 3 * 4
func TestArithmeticGlobal(t *testing.T) {
	expr := ast.NewBinop(token.NoPos, types.Int(), "+",
		intLit(2),
		ast.NewBinop(token.NoPos, types.Int(), "*", intLit(3), intLit(4)),
	)
	prog := []ast.Stmt{
		ast.NewLet(token.NoPos, true, "result", expr, types.Int()),
	}
	c, st := run(t, prog, nil)
	v := globalValue(t, c, st, "result")
	require.Equal(t, vm.DataInt, v.Tag)
	require.EqualValues(t, 14, v.I)
}

// fn classify(n: Int) -> Int { if n < 0 { return -1 } return 1 }
// let result = classify(-5)
func TestIfBranch(t *testing.T) {
	fnType := types.Function([]types.Type{types.Int()}, types.Int())
	cond := ast.NewBinop(token.NoPos, types.Bool(), "<", ident("n", types.Int()), intLit(0))
	body := []ast.Stmt{
		ast.NewIf(token.NoPos, cond, []ast.Stmt{
			ast.NewReturn(token.NoPos, intLit(-1)),
		}, nil, nil),
		ast.NewReturn(token.NoPos, intLit(1)),
	}
	fn := ast.NewFunction(token.NoPos, "classify", []ast.Param{{Name: "n", Ttype: types.Int()}}, body, fnType)

	call := ast.NewCall(token.NoPos, types.Int(), types.Mangle("classify", fnType.Params), nil, []ast.Expr{intLit(-5)})
	prog := []ast.Stmt{
		fn,
		ast.NewLet(token.NoPos, true, "result", call, types.Int()),
	}
	c, st := run(t, prog, nil)
	v := globalValue(t, c, st, "result")
	require.Equal(t, vm.DataInt, v.Tag)
	require.EqualValues(t, -1, v.I)
}

// fn fact(n: Int) -> Int { if n <= 1 { return 1 } return n * fact(n - 1) }
// let result = fact(5)
func TestRecursion(t *testing.T) {
	fnType := types.Function([]types.Type{types.Int()}, types.Int())
	nIdent := func() *ast.Identifier { return ident("n", types.Int()) }

	factName := types.Mangle("fact", fnType.Params)
	cond := ast.NewBinop(token.NoPos, types.Bool(), "<=", nIdent(), intLit(1))
	recCall := ast.NewCall(token.NoPos, types.Int(), factName, nil, []ast.Expr{
		ast.NewBinop(token.NoPos, types.Int(), "-", nIdent(), intLit(1)),
	})
	body := []ast.Stmt{
		ast.NewIf(token.NoPos, cond, []ast.Stmt{
			ast.NewReturn(token.NoPos, intLit(1)),
		}, nil, nil),
		ast.NewReturn(token.NoPos, ast.NewBinop(token.NoPos, types.Int(), "*", nIdent(), recCall)),
	}
	fn := ast.NewFunction(token.NoPos, "fact", []ast.Param{{Name: "n", Ttype: types.Int()}}, body, fnType)

	call := ast.NewCall(token.NoPos, types.Int(), factName, nil, []ast.Expr{intLit(5)})
	prog := []ast.Stmt{
		fn,
		ast.NewLet(token.NoPos, true, "result", call, types.Int()),
	}
	c, st := run(t, prog, nil)
	v := globalValue(t, c, st, "result")
	require.Equal(t, vm.DataInt, v.Tag)
	require.EqualValues(t, 120, v.I)
}

// fn adder(x: Int) -> Closure { return |y: Int| -> Int { return x + y } }
// let f = adder(10)
// let result = f(5)  -- called through f's value, not DCALL
func TestClosureCapture(t *testing.T) {
	innerType := types.Function([]types.Type{types.Int()}, types.Int())
	outerType := types.Function([]types.Type{types.Int()}, innerType)

	inner := ast.NewClosure(token.NoPos, innerType, []ast.Param{{Name: "y", Ttype: types.Int()}}, []ast.Stmt{
		ast.NewReturn(token.NoPos, ast.NewBinop(token.NoPos, types.Int(), "+",
			ident("x", types.Int()), ident("y", types.Int()))),
	})
	adderBody := []ast.Stmt{ast.NewReturn(token.NoPos, inner)}
	adder := ast.NewFunction(token.NoPos, "adder", []ast.Param{{Name: "x", Ttype: types.Int()}}, adderBody, outerType)

	makeF := ast.NewCall(token.NoPos, innerType, types.Mangle("adder", outerType.Params), nil, []ast.Expr{intLit(10)})
	callF := ast.NewCall(token.NoPos, types.Int(), "", ident("f", innerType), []ast.Expr{intLit(5)})

	prog := []ast.Stmt{
		adder,
		ast.NewLet(token.NoPos, true, "f", makeF, innerType),
		ast.NewLet(token.NoPos, true, "result", callF, types.Int()),
	}
	c, st := run(t, prog, nil)
	v := globalValue(t, c, st, "result")
	require.Equal(t, vm.DataInt, v.Tag)
	require.EqualValues(t, 15, v.I)
}

// let xs = [10, 20, 30]
// let result = xs[-1]
func TestNegativeIndexNormalisation(t *testing.T) {
	listType := types.List(types.Int())
	xs := ast.NewListConstructor(token.NoPos, listType, []ast.Expr{intLit(10), intLit(20), intLit(30)})
	indexed := ast.NewIndexed(token.NoPos, types.Int(), ident("xs", listType), intLit(-1))

	prog := []ast.Stmt{
		ast.NewLet(token.NoPos, true, "xs", xs, listType),
		ast.NewLet(token.NoPos, true, "result", indexed, types.Int()),
	}
	c, st := run(t, prog, native.Standard())
	v := globalValue(t, c, st, "result")
	require.Equal(t, vm.DataInt, v.Tag)
	require.EqualValues(t, 30, v.I)
}

// fn explode() -> Void { unwrap(None) }
// explode()
//
// Unwrap is only valid inside a function body, so the failing unwrap is
// wrapped in a zero-argument function invoked from top level.
func TestUnwrapNoneIsRuntimeError(t *testing.T) {
	none := ast.NewLiteral(token.NoPos, types.Option(types.Int()), nil)
	fn := ast.NewFunction(token.NoPos, "explode", nil, []ast.Stmt{
		ast.NewUnwrap(token.NoPos, none),
	}, types.Function(nil, types.Void()))
	call := ast.NewCall(token.NoPos, types.Void(), "explode", nil, nil)
	prog := []ast.Stmt{
		fn,
		ast.NewExpression(token.NoPos, call),
	}
	c := New(nil)
	ops, err := c.Compile(prog)
	require.NoError(t, err)

	program, err := assemble.Assemble(ops)
	require.NoError(t, err)

	st := vm.NewState(program.Code, program.RuntimeErrorTable, nil)
	m := vm.New(st, &sink{})
	err = m.Run()
	require.Error(t, err)
}
