package codegen

import (
	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/types"
)

// compileStmt lowers one statement of a function or closure body. fc is
// never nil here (top-level statements go through compileTopLevelStmt
// instead, since globals need STOREGLOBAL rather than a local slot).
func compileStmt(pc *pcomp, fc *fcomp, s ast.Stmt) ([]asm.Op, error) {
	switch n := s.(type) {
	case *ast.Let:
		return compileLocalLet(pc, fc, n)
	case *ast.Function:
		return compileLocalFunction(pc, fc, n)
	case *ast.Struct, *ast.Enum:
		return nil, diag.New(diag.KindCompile, s.Pos(), "struct/enum declarations are only supported at top level")
	case *ast.Return:
		return compileReturn(pc, fc, n)
	case *ast.Expression:
		return compileExpressionStmt(pc, fc, n)
	case *ast.If:
		return compileIf(pc, fc, n)
	case *ast.While:
		return compileWhile(pc, fc, n)
	case *ast.For:
		return compileFor(pc, fc, n)
	case *ast.Foreach:
		return compileForeach(pc, fc, n)
	case *ast.ForRange:
		return compileForRange(pc, fc, n)
	case *ast.Block:
		return compileBlock(pc, fc, n)
	case *ast.Match:
		return compileMatch(pc, fc, n)
	case *ast.Unwrap:
		return compileUnwrap(pc, fc, n)
	case *ast.IfLet:
		return compileIfLet(pc, fc, n)
	case *ast.Break:
		return compileBreak(fc, n)
	case *ast.Continue:
		return compileContinue(fc, n)
	case *ast.Pass:
		return nil, nil
	default:
		return nil, diag.New(diag.KindCompile, s.Pos(), "codegen: unhandled statement %T", s)
	}
}

// compileLocalLet declares a fresh local slot before compiling the
// initialiser, so a self-referential closure bound by the same Let can
// already resolve its own name (spec §4.3 recursive closures).
func compileLocalLet(pc *pcomp, fc *fcomp, n *ast.Let) ([]asm.Op, error) {
	if n.Global {
		return nil, diag.New(diag.KindCompile, n.Pos(), "nested global declarations are not supported")
	}
	slot := fc.declareLocal(n.Identifier, n.Ttype, n.Pos())
	valueOps, err := compileExpr(pc, fc, n.Expr)
	if err != nil {
		return nil, err
	}
	return append(valueOps, asm.Store(slot)), nil
}

// compileLocalFunction lowers a nested named function declaration. Named
// functions never capture (spec §4.3: only CLOSURE carries a captured-value
// list; a nested function that needs a free variable must be written as a
// closure instead), so it compiles with no parent fcomp; its value is then
// bound to a local slot of its own name, through which the enclosing body
// calls it. The function's own body cannot read that slot, so a call to
// itself by name inside its body does not resolve to it.
func compileLocalFunction(pc *pcomp, fc *fcomp, n *ast.Function) ([]asm.Op, error) {
	slot := fc.declareLocal(n.Identifier, n.Ttype, n.Pos())
	fnOps, err := compileFunctionLikeInto(pc, nil, n.Identifier, n.Parameters, n.Body, false, &n.Captures)
	if err != nil {
		return nil, err
	}
	return append(fnOps, asm.Store(slot)), nil
}

func compileReturn(pc *pcomp, fc *fcomp, n *ast.Return) ([]asm.Op, error) {
	if n.Value == nil {
		return []asm.Op{asm.Ret(false)}, nil
	}
	ops, err := compileExpr(pc, fc, n.Value)
	if err != nil {
		return nil, err
	}
	return append(ops, asm.Ret(true)), nil
}

// compileExpressionStmt discards the one value every expression leaves on
// the stack; StoreExpr used in statement position skips the DUP that would
// otherwise preserve a result nothing here reads.
func compileExpressionStmt(pc *pcomp, fc *fcomp, n *ast.Expression) ([]asm.Op, error) {
	if store, ok := n.Expr.(*ast.StoreExpr); ok {
		return compileStoreExpr(pc, fc, store, false)
	}
	ops, err := compileExpr(pc, fc, n.Expr)
	if err != nil {
		return nil, err
	}
	return append(ops, asm.Simple(asm.POP)), nil
}

func compileBody(pc *pcomp, fc *fcomp, body []ast.Stmt) ([]asm.Op, error) {
	var ops []asm.Op
	for _, s := range body {
		o, err := compileStmt(pc, fc, s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o...)
	}
	return ops, nil
}

func compileBlockBody(pc *pcomp, fc *fcomp, body []ast.Stmt) ([]asm.Op, error) {
	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)
	return compileBody(pc, fc, body)
}

func compileBlock(pc *pcomp, fc *fcomp, n *ast.Block) ([]asm.Op, error) {
	return compileBlockBody(pc, fc, n.Body)
}

// compileIf lowers If/Elif/Else as a cascade of JUMPIFFALSE tests, one per
// condition, all converging on a single end label.
func compileIf(pc *pcomp, fc *fcomp, n *ast.If) ([]asm.Op, error) {
	end := pc.gen.Gen()
	var ops []asm.Op

	clauses := append([]ast.ElifClause{{Cond: n.Cond, Body: n.Then}}, n.Elif...)
	for _, c := range clauses {
		condOps, err := compileExpr(pc, fc, c.Cond)
		if err != nil {
			return nil, err
		}
		bodyOps, err := compileBlockBody(pc, fc, c.Body)
		if err != nil {
			return nil, err
		}
		next := pc.gen.Gen()
		ops = append(ops, condOps...)
		ops = append(ops, asm.JumpIfFalse(next))
		ops = append(ops, bodyOps...)
		ops = append(ops, asm.Jmp(end))
		ops = append(ops, asm.Label(next))
	}

	if n.Else != nil {
		elseOps, err := compileBlockBody(pc, fc, n.Else)
		if err != nil {
			return nil, err
		}
		ops = append(ops, elseOps...)
	}
	ops = append(ops, asm.Label(end))
	return ops, nil
}

func compileWhile(pc *pcomp, fc *fcomp, n *ast.While) ([]asm.Op, error) {
	loopStart, loopEnd, loopNext := pc.gen.Gen(), pc.gen.Gen(), pc.gen.Gen()
	condOps, err := compileExpr(pc, fc, n.Cond)
	if err != nil {
		return nil, err
	}

	fc.loops = append(fc.loops, loopLabels{breakLabel: loopEnd, continueLabel: loopNext})
	bodyOps, err := compileBlockBody(pc, fc, n.Body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	if err != nil {
		return nil, err
	}

	var ops []asm.Op
	ops = append(ops, asm.Label(loopStart))
	ops = append(ops, condOps...)
	ops = append(ops, asm.JumpIfFalse(loopEnd))
	ops = append(ops, bodyOps...)
	ops = append(ops, asm.Label(loopNext))
	ops = append(ops, asm.Bjmp(loopStart))
	ops = append(ops, asm.Label(loopEnd))
	return ops, nil
}

// compileFor lowers the C-style for loop; continue jumps to a label placed
// right after the body so Post still runs before the condition is retested.
func compileFor(pc *pcomp, fc *fcomp, n *ast.For) ([]asm.Op, error) {
	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)

	var ops []asm.Op
	if n.Init != nil {
		initOps, err := compileStmt(pc, fc, n.Init)
		if err != nil {
			return nil, err
		}
		ops = append(ops, initOps...)
	}

	loopStart, loopEnd, continueLabel := pc.gen.Gen(), pc.gen.Gen(), pc.gen.Gen()
	ops = append(ops, asm.Label(loopStart))
	if n.Cond != nil {
		condOps, err := compileExpr(pc, fc, n.Cond)
		if err != nil {
			return nil, err
		}
		ops = append(ops, condOps...)
		ops = append(ops, asm.JumpIfFalse(loopEnd))
	}

	fc.loops = append(fc.loops, loopLabels{breakLabel: loopEnd, continueLabel: continueLabel})
	bodyOps, err := compileBlockBody(pc, fc, n.Body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	if err != nil {
		return nil, err
	}
	ops = append(ops, bodyOps...)

	ops = append(ops, asm.Label(continueLabel))
	if n.Post != nil {
		postOps, err := compileStmt(pc, fc, n.Post)
		if err != nil {
			return nil, err
		}
		ops = append(ops, postOps...)
	}
	ops = append(ops, asm.Bjmp(loopStart))
	ops = append(ops, asm.Label(loopEnd))
	return ops, nil
}

// compileForeach iterates a list via a hidden index counter and a list_len
// native call each pass (spec §9 supplemented feature, no dedicated
// FOREACH op in the bytecode).
func compileForeach(pc *pcomp, fc *fcomp, n *ast.Foreach) ([]asm.Op, error) {
	listLenIdx, err := pc.nativeIndex("list_len", n.Pos())
	if err != nil {
		return nil, err
	}

	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)

	iterOps, err := compileExpr(pc, fc, n.Iterable)
	if err != nil {
		return nil, err
	}
	getArr, storeArr := pc.declareTemp(fc, n.Iterable.ResolvedType())
	getIdx, storeIdx := pc.declareTemp(fc, types.Int())

	var ops []asm.Op
	ops = append(ops, iterOps...)
	ops = append(ops, storeArr)
	ops = append(ops, asm.Integer(0), storeIdx)

	loopStart, loopEnd, continueLabel := pc.gen.Gen(), pc.gen.Gen(), pc.gen.Gen()
	ops = append(ops, asm.Label(loopStart))
	ops = append(ops, getIdx, getArr, asm.Native(listLenIdx), asm.Simple(asm.ILSS), asm.JumpIfFalse(loopEnd))

	pc.enterBlock(fc)
	varSlot := fc.declareLocal(n.Identifier, elemTypeOf(n.Iterable.ResolvedType()), n.Pos())
	ops = append(ops, getArr, getIdx, asm.Simple(asm.LIN), asm.Store(varSlot))

	fc.loops = append(fc.loops, loopLabels{breakLabel: loopEnd, continueLabel: continueLabel})
	bodyOps, err := compileBody(pc, fc, n.Body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	pc.leaveBlock(fc)
	if err != nil {
		return nil, err
	}
	ops = append(ops, bodyOps...)

	ops = append(ops, asm.Label(continueLabel))
	ops = append(ops, getIdx, asm.Integer(1), asm.Simple(asm.INT_ADD), storeIdx)
	ops = append(ops, asm.Bjmp(loopStart))
	ops = append(ops, asm.Label(loopEnd))
	return ops, nil
}

// compileForRange lowers an inclusive or exclusive integer range loop with
// an optional step (defaulting to 1).
func compileForRange(pc *pcomp, fc *fcomp, n *ast.ForRange) ([]asm.Op, error) {
	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)

	startOps, err := compileExpr(pc, fc, n.Start)
	if err != nil {
		return nil, err
	}
	endOps, err := compileExpr(pc, fc, n.End)
	if err != nil {
		return nil, err
	}
	var stepOps []asm.Op
	if n.Step != nil {
		stepOps, err = compileExpr(pc, fc, n.Step)
		if err != nil {
			return nil, err
		}
	} else {
		stepOps = []asm.Op{asm.Integer(1)}
	}

	varSlot := fc.declareLocal(n.Identifier, types.Int(), n.Pos())
	getEnd, storeEnd := pc.declareTemp(fc, types.Int())
	getStep, storeStep := pc.declareTemp(fc, types.Int())

	var ops []asm.Op
	ops = append(ops, startOps...)
	ops = append(ops, asm.Store(varSlot))
	ops = append(ops, endOps...)
	ops = append(ops, storeEnd)
	ops = append(ops, stepOps...)
	ops = append(ops, storeStep)

	loopStart, loopEnd, continueLabel := pc.gen.Gen(), pc.gen.Gen(), pc.gen.Gen()
	ops = append(ops, asm.Label(loopStart))
	ops = append(ops, asm.Get(varSlot), getEnd)
	if n.Inclusive {
		ops = append(ops, asm.Simple(asm.IGTR), asm.Simple(asm.NOT))
	} else {
		ops = append(ops, asm.Simple(asm.ILSS))
	}
	ops = append(ops, asm.JumpIfFalse(loopEnd))

	fc.loops = append(fc.loops, loopLabels{breakLabel: loopEnd, continueLabel: continueLabel})
	bodyOps, err := compileBlockBody(pc, fc, n.Body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	if err != nil {
		return nil, err
	}
	ops = append(ops, bodyOps...)

	ops = append(ops, asm.Label(continueLabel))
	ops = append(ops, asm.Get(varSlot), getStep, asm.Simple(asm.INT_ADD), asm.Store(varSlot))
	ops = append(ops, asm.Bjmp(loopStart))
	ops = append(ops, asm.Label(loopEnd))
	return ops, nil
}

// compileMatch lowers a cascade of tag-equality tests on the subject's
// stored tag slot (expr[1]); a matched arm's optional payload is bound via
// expr[0] (spec §4.2 "Match"). The subject is evaluated once into a temp.
func compileMatch(pc *pcomp, fc *fcomp, n *ast.Match) ([]asm.Op, error) {
	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)

	subjectOps, err := compileExpr(pc, fc, n.Subject)
	if err != nil {
		return nil, err
	}
	getSubject, storeSubject := pc.declareTemp(fc, n.Subject.ResolvedType())

	var ops []asm.Op
	ops = append(ops, subjectOps...)
	ops = append(ops, storeSubject)

	end := pc.gen.Gen()
	for _, arm := range n.Arms {
		tag, ok := pc.enumTag[arm.Tag]
		if !ok {
			return nil, diag.New(diag.KindCompile, n.Pos(), "unknown match tag %q", arm.Tag)
		}
		next := pc.gen.Gen()

		ops = append(ops, getSubject, asm.Integer(1), asm.Simple(asm.LIN))
		ops = append(ops, asm.Integer(tag), asm.Simple(asm.EQUALS))
		ops = append(ops, asm.JumpIfFalse(next))

		pc.enterBlock(fc)
		if arm.Bind != "" {
			bindSlot := fc.declareLocal(arm.Bind, types.Any(), n.Pos())
			ops = append(ops, getSubject, asm.Integer(0), asm.Simple(asm.LIN), asm.Store(bindSlot))
		}
		armOps, err := compileBody(pc, fc, arm.Body)
		pc.leaveBlock(fc)
		if err != nil {
			return nil, err
		}
		ops = append(ops, armOps...)
		ops = append(ops, asm.Jmp(end))
		ops = append(ops, asm.Label(next))
	}

	if n.Default != nil {
		defaultOps, err := compileBlockBody(pc, fc, n.Default)
		if err != nil {
			return nil, err
		}
		ops = append(ops, defaultOps...)
	}
	ops = append(ops, asm.Label(end))
	return ops, nil
}

// compileUnwrap evaluates Expr and runs UNWRAP for its runtime None check
// (spec §3 UNWRAP, §7); UNWRAP leaves the value on the stack so a trailing
// POP discards it, matching every other statement-position expression.
func compileUnwrap(pc *pcomp, fc *fcomp, n *ast.Unwrap) ([]asm.Op, error) {
	ops, err := compileExpr(pc, fc, n.Expr)
	if err != nil {
		return nil, err
	}
	ops = append(ops, asm.Op{Code: asm.UNWRAP, Pos: posOf(n.Pos())})
	ops = append(ops, asm.Simple(asm.POP))
	return ops, nil
}

// compileIfLet binds the payload of a Some(...) value. ISSOME consumes its
// operand, so the value is DUP'd first to survive into the bound slot; the
// else path must POP that surviving duplicate since it never gets bound.
func compileIfLet(pc *pcomp, fc *fcomp, n *ast.IfLet) ([]asm.Op, error) {
	valueOps, err := compileExpr(pc, fc, n.Expr)
	if err != nil {
		return nil, err
	}

	elseLabel, end := pc.gen.Gen(), pc.gen.Gen()
	var ops []asm.Op
	ops = append(ops, valueOps...)
	ops = append(ops, asm.Simple(asm.DUP), asm.Simple(asm.ISSOME), asm.JumpIfFalse(elseLabel))

	pc.enterBlock(fc)
	bindSlot := fc.declareLocal(n.Identifier, types.Any(), n.Pos())
	ops = append(ops, asm.Store(bindSlot))
	thenOps, err := compileBody(pc, fc, n.Then)
	pc.leaveBlock(fc)
	if err != nil {
		return nil, err
	}
	ops = append(ops, thenOps...)
	ops = append(ops, asm.Jmp(end))

	ops = append(ops, asm.Label(elseLabel), asm.Simple(asm.POP))
	if n.Else != nil {
		elseOps, err := compileBlockBody(pc, fc, n.Else)
		if err != nil {
			return nil, err
		}
		ops = append(ops, elseOps...)
	}
	ops = append(ops, asm.Label(end))
	return ops, nil
}

func compileBreak(fc *fcomp, n *ast.Break) ([]asm.Op, error) {
	if len(fc.loops) == 0 {
		return nil, diag.New(diag.KindCompile, n.Pos(), "break outside of a loop")
	}
	return []asm.Op{asm.Jmp(fc.loops[len(fc.loops)-1].breakLabel)}, nil
}

func compileContinue(fc *fcomp, n *ast.Continue) ([]asm.Op, error) {
	if len(fc.loops) == 0 {
		return nil, diag.New(diag.KindCompile, n.Pos(), "continue outside of a loop")
	}
	return []asm.Op{asm.Jmp(fc.loops[len(fc.loops)-1].continueLabel)}, nil
}
