package codegen

import (
	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/types"
)

// compileExpr lowers one expression to the ops that leave exactly its one
// result value on top of the stack (spec §4.2 "Expressions").
func compileExpr(pc *pcomp, fc *fcomp, e ast.Expr) ([]asm.Op, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return compileLiteral(n)
	case *ast.Identifier:
		return pc.readIdent(fc, n.Name, n.Pos())
	case *ast.Binop:
		return compileBinop(pc, fc, n)
	case *ast.Unary:
		return compileUnary(pc, fc, n)
	case *ast.Call:
		return compileCall(pc, fc, n)
	case *ast.Closure:
		return compileFunctionLikeInto(pc, fc, "", n.Parameters, n.Body, true, &n.Captures)
	case *ast.ListConstructor:
		return compileListConstructor(pc, fc, n)
	case *ast.ListCompConstructor:
		return compileListComp(pc, fc, n)
	case *ast.Field:
		return compileField(pc, fc, n, false)
	case *ast.Indexed:
		return compileIndexed(pc, fc, n, false)
	case *ast.Sliced:
		return compileSliced(pc, fc, n)
	case *ast.StoreExpr:
		return compileStoreExpr(pc, fc, n, true)
	default:
		return nil, diag.New(diag.KindCompile, e.Pos(), "codegen: unhandled expression %T", e)
	}
}

func compileLiteral(n *ast.Literal) ([]asm.Op, error) {
	switch v := n.Value.(type) {
	case int64:
		return []asm.Op{asm.Integer(v)}, nil
	case float64:
		return []asm.Op{asm.Float(v)}, nil
	case bool:
		return []asm.Op{asm.Bool(v)}, nil
	case rune:
		return []asm.Op{asm.Char(v)}, nil
	case string:
		return []asm.Op{asm.String(v)}, nil
	case nil:
		return []asm.Op{asm.None()}, nil
	default:
		return nil, diag.New(diag.KindCompile, n.Pos(), "codegen: literal of unrecognised Go type %T", v)
	}
}

// compileBinop dispatches arithmetic/comparison ops on the resolved type of
// the operands (spec §4.2 "Int -> integer op; Float -> float op;
// String/List -> CONCAT for +") and lowers && to a DUP+NOT+JUMPIFFALSE
// short-circuit and || to a DUP+JUMPIFFALSE one.
func compileBinop(pc *pcomp, fc *fcomp, n *ast.Binop) ([]asm.Op, error) {
	switch n.Op {
	case "&&":
		return compileAnd(pc, fc, n)
	case "||":
		return compileOr(pc, fc, n)
	}

	left, err := compileExpr(pc, fc, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(pc, fc, n.Right)
	if err != nil {
		return nil, err
	}
	ops := append(append([]asm.Op{}, left...), right...)

	t := n.Left.ResolvedType()
	switch n.Op {
	case "+":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.INT_ADD)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FLOAT_ADD)), nil
		case types.KindString, types.KindList:
			return append(ops, asm.Simple(asm.CONCAT)), nil
		}
	case "-":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.INT_SUB)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FLOAT_SUB)), nil
		}
	case "*":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.INT_MUL)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FLOAT_MUL)), nil
		}
	case "/":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.INT_DIV)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FLOAT_DIV)), nil
		}
	case "%":
		if t.Kind == types.KindInt {
			return append(ops, asm.Simple(asm.INT_MOD)), nil
		}
	case "<":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.ILSS)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FLSS)), nil
		}
	case ">":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.IGTR)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FGTR)), nil
		}
	case "<=":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.IGTR), asm.Simple(asm.NOT)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FGTR), asm.Simple(asm.NOT)), nil
		}
	case ">=":
		switch t.Kind {
		case types.KindInt:
			return append(ops, asm.Simple(asm.ILSS), asm.Simple(asm.NOT)), nil
		case types.KindFloat:
			return append(ops, asm.Simple(asm.FLSS), asm.Simple(asm.NOT)), nil
		}
	case "==":
		return append(ops, asm.Simple(asm.EQUALS)), nil
	case "!=":
		return append(ops, asm.Simple(asm.EQUALS), asm.Simple(asm.NOT)), nil
	}
	return nil, diag.New(diag.KindCompile, n.Pos(), "no lowering for %s %s %s", t, n.Op, n.Right.ResolvedType())
}

func compileAnd(pc *pcomp, fc *fcomp, n *ast.Binop) ([]asm.Op, error) {
	left, err := compileExpr(pc, fc, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(pc, fc, n.Right)
	if err != nil {
		return nil, err
	}
	evalRight, end := pc.gen.Gen(), pc.gen.Gen()

	ops := append([]asm.Op{}, left...)
	ops = append(ops, asm.Simple(asm.DUP), asm.Simple(asm.NOT), asm.JumpIfFalse(evalRight))
	ops = append(ops, asm.Jmp(end))
	ops = append(ops, asm.Label(evalRight), asm.Simple(asm.POP))
	ops = append(ops, right...)
	ops = append(ops, asm.Label(end))
	return ops, nil
}

func compileOr(pc *pcomp, fc *fcomp, n *ast.Binop) ([]asm.Op, error) {
	left, err := compileExpr(pc, fc, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(pc, fc, n.Right)
	if err != nil {
		return nil, err
	}
	evalRight, end := pc.gen.Gen(), pc.gen.Gen()

	ops := append([]asm.Op{}, left...)
	ops = append(ops, asm.Simple(asm.DUP), asm.JumpIfFalse(evalRight))
	ops = append(ops, asm.Jmp(end))
	ops = append(ops, asm.Label(evalRight), asm.Simple(asm.POP))
	ops = append(ops, right...)
	ops = append(ops, asm.Label(end))
	return ops, nil
}

func compileUnary(pc *pcomp, fc *fcomp, n *ast.Unary) ([]asm.Op, error) {
	ops, err := compileExpr(pc, fc, n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "-":
		return append(ops, asm.Simple(asm.NEG)), nil
	case "!":
		return append(ops, asm.Simple(asm.NOT)), nil
	default:
		return nil, diag.New(diag.KindCompile, n.Pos(), "unknown unary operator %q", n.Op)
	}
}

// compileCall lowers a call to a known global slot as DCALL (which reads
// the callee's Function value directly out of that stack slot, spec §4.2),
// and any other callee (a local, a parameter, a capture, or an expression
// target) as a GET/eval-then-CALL sequence.
func compileCall(pc *pcomp, fc *fcomp, n *ast.Call) ([]asm.Op, error) {
	var ops []asm.Op
	for _, a := range n.Args {
		o, err := compileExpr(pc, fc, a)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o...)
	}

	if n.Target != nil {
		targetOps, err := compileExpr(pc, fc, n.Target)
		if err != nil {
			return nil, err
		}
		ops = append(ops, targetOps...)
		ops = append(ops, asm.Call())
		return ops, nil
	}

	if slot, ok := pc.globalIndex[n.Callee]; ok {
		ops = append(ops, asm.Dcall(slot, n.Callee))
		return ops, nil
	}

	// A bare Callee that isn't a declared global is either a native (the
	// front end leaves native-call resolution to codegen, the sole owner of
	// the registry, rather than threading it through the parser) or an
	// undeclared identifier, in which case readIdent below reports it.
	if pc.natives != nil {
		if idx, ok := pc.natives.Index(n.Callee); ok {
			ops = append(ops, asm.Native(idx))
			return ops, nil
		}
	}

	calleeOps, err := pc.readIdent(fc, n.Callee, n.Pos())
	if err != nil {
		return nil, err
	}
	ops = append(ops, calleeOps...)
	ops = append(ops, asm.Call())
	return ops, nil
}

func compileListConstructor(pc *pcomp, fc *fcomp, n *ast.ListConstructor) ([]asm.Op, error) {
	var ops []asm.Op
	for _, el := range n.Elements {
		o, err := compileExpr(pc, fc, el)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o...)
	}
	ops = append(ops, asm.NewListOp(uint32(len(n.Elements))))
	return ops, nil
}

// compileListComp lowers `[for Var in Iterable if Cond: Element]` into a
// hand-written accumulation loop: an empty result list is built up one
// singleton CONCAT at a time, guarded by Cond when present (spec §9
// supplemented feature, following the teacher's preference for lowering
// sugar to primitive ops rather than adding VM-level support).
func compileListComp(pc *pcomp, fc *fcomp, n *ast.ListCompConstructor) ([]asm.Op, error) {
	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)

	getResult, storeResult := pc.declareTemp(fc, n.ResolvedType())
	getArr, storeArr := pc.declareTemp(fc, n.Iterable.ResolvedType())
	getIdx, storeIdx := pc.declareTemp(fc, types.Int())
	getLen, storeLen := pc.declareTemp(fc, types.Int())

	listLenIdx, err := pc.nativeIndex("list_len", n.Pos())
	if err != nil {
		return nil, err
	}

	iterOps, err := compileExpr(pc, fc, n.Iterable)
	if err != nil {
		return nil, err
	}

	var ops []asm.Op
	ops = append(ops, asm.NewListOp(0), storeResult)
	ops = append(ops, iterOps...)
	ops = append(ops, storeArr)
	ops = append(ops, getArr, asm.Native(listLenIdx), storeLen)
	ops = append(ops, asm.Integer(0), storeIdx)

	loopStart, loopEnd := pc.gen.Gen(), pc.gen.Gen()
	ops = append(ops, asm.Label(loopStart))
	ops = append(ops, getIdx, getLen, asm.Simple(asm.ILSS), asm.JumpIfFalse(loopEnd))

	pc.enterBlock(fc)
	varSlot := fc.declareLocal(n.Var, elemTypeOf(n.Iterable.ResolvedType()), n.Pos())
	ops = append(ops, getArr, getIdx, asm.Simple(asm.LIN), asm.Store(varSlot))

	skipElem := pc.gen.Gen()
	if n.Cond != nil {
		condOps, err := compileExpr(pc, fc, n.Cond)
		if err != nil {
			return nil, err
		}
		ops = append(ops, condOps...)
		ops = append(ops, asm.JumpIfFalse(skipElem))
	}

	elemOps, err := compileExpr(pc, fc, n.Element)
	if err != nil {
		return nil, err
	}
	ops = append(ops, elemOps...)
	ops = append(ops, asm.NewListOp(1))
	ops = append(ops, getResult, asm.Simple(asm.CONCAT), storeResult)
	ops = append(ops, asm.Label(skipElem))
	pc.leaveBlock(fc)

	ops = append(ops, getIdx, asm.Integer(1), asm.Simple(asm.INT_ADD), storeIdx)
	ops = append(ops, asm.Bjmp(loopStart))
	ops = append(ops, asm.Label(loopEnd))
	ops = append(ops, getResult)
	return ops, nil
}

func elemTypeOf(t types.Type) types.Type {
	if t.Kind == types.KindList && t.Elem != nil {
		return *t.Elem
	}
	return types.Any()
}

// compileField lowers struct-field access: struct values are heap Lists in
// declaration-field order (spec §4.2 "struct constructors... push a LIST"),
// so a field read/write is just an index by the field's declared position.
func compileField(pc *pcomp, fc *fcomp, n *ast.Field, forWrite bool) ([]asm.Op, error) {
	structName := n.Target.ResolvedType().Name
	fields, ok := pc.env.CustomTypes[structName]
	if !ok {
		return nil, diag.New(diag.KindCompile, n.Pos(), "unknown struct type %q", structName)
	}
	idx := -1
	for i, f := range fields {
		if f.Name == n.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, diag.New(diag.KindCompile, n.Pos(), "struct %q has no field %q", structName, n.Name)
	}

	targetOps, err := compileExpr(pc, fc, n.Target)
	if err != nil {
		return nil, err
	}
	ops := append([]asm.Op{}, targetOps...)
	ops = append(ops, asm.Integer(int64(idx)))
	if forWrite {
		ops = append(ops, asm.Pin(posOf(n.Pos())))
	} else {
		ops = append(ops, asm.Simple(asm.LIN))
	}
	return ops, nil
}

// compileIndexed lowers a[i], normalising a negative index by adding the
// array's length (spec §4.2 "Indexing"): the array is evaluated once into a
// temp so the normalisation check can read its length without re-running
// any side effect the target expression might have.
func compileIndexed(pc *pcomp, fc *fcomp, n *ast.Indexed, forWrite bool) ([]asm.Op, error) {
	listLenIdx, err := pc.nativeIndex("list_len", n.Pos())
	if err != nil {
		return nil, err
	}

	targetOps, err := compileExpr(pc, fc, n.Target)
	if err != nil {
		return nil, err
	}
	indexOps, err := compileExpr(pc, fc, n.Index)
	if err != nil {
		return nil, err
	}

	getArr, storeArr := pc.declareTemp(fc, n.Target.ResolvedType())
	getIdx, storeIdx := pc.declareTemp(fc, types.Int())

	var ops []asm.Op
	ops = append(ops, targetOps...)
	ops = append(ops, storeArr)
	ops = append(ops, indexOps...)
	ops = append(ops, storeIdx)

	skip := pc.gen.Gen()
	ops = append(ops, getIdx, asm.Integer(0), asm.Simple(asm.ILSS), asm.JumpIfFalse(skip))
	ops = append(ops, getIdx, getArr, asm.Native(listLenIdx), asm.Simple(asm.INT_ADD), storeIdx)
	ops = append(ops, asm.Label(skip))

	ops = append(ops, getArr, getIdx)
	if forWrite {
		ops = append(ops, asm.Pin(posOf(n.Pos())))
	} else {
		ops = append(ops, asm.Simple(asm.LIN))
	}
	return ops, nil
}

// compileSliced lowers a[start:end] by building a fresh list via list_len
// defaults (Start nil -> 0, End nil -> len) and a small copy loop.
func compileSliced(pc *pcomp, fc *fcomp, n *ast.Sliced) ([]asm.Op, error) {
	listLenIdx, err := pc.nativeIndex("list_len", n.Pos())
	if err != nil {
		return nil, err
	}

	pc.enterBlock(fc)
	defer pc.leaveBlock(fc)

	targetOps, err := compileExpr(pc, fc, n.Target)
	if err != nil {
		return nil, err
	}
	getArr, storeArr := pc.declareTemp(fc, n.Target.ResolvedType())
	getStart, storeStart := pc.declareTemp(fc, types.Int())
	getEnd, storeEnd := pc.declareTemp(fc, types.Int())
	getIdx, storeIdx := pc.declareTemp(fc, types.Int())
	getResult, storeResult := pc.declareTemp(fc, n.ResolvedType())

	var ops []asm.Op
	ops = append(ops, targetOps...)
	ops = append(ops, storeArr)

	if n.Start != nil {
		o, err := compileExpr(pc, fc, n.Start)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o...)
	} else {
		ops = append(ops, asm.Integer(0))
	}
	ops = append(ops, storeStart)

	if n.End != nil {
		o, err := compileExpr(pc, fc, n.End)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o...)
	} else {
		ops = append(ops, getArr, asm.Native(listLenIdx))
	}
	ops = append(ops, storeEnd)

	ops = append(ops, asm.NewListOp(0), storeResult)
	ops = append(ops, getStart, storeIdx)

	loopStart, loopEnd := pc.gen.Gen(), pc.gen.Gen()
	ops = append(ops, asm.Label(loopStart))
	ops = append(ops, getIdx, getEnd, asm.Simple(asm.ILSS), asm.JumpIfFalse(loopEnd))
	ops = append(ops, getArr, getIdx, asm.Simple(asm.LIN), asm.NewListOp(1))
	ops = append(ops, getResult, asm.Simple(asm.CONCAT), storeResult)
	ops = append(ops, getIdx, asm.Integer(1), asm.Simple(asm.INT_ADD), storeIdx)
	ops = append(ops, asm.Bjmp(loopStart))
	ops = append(ops, asm.Label(loopEnd))
	ops = append(ops, getResult)
	return ops, nil
}

// compileStoreExpr lowers an assignment expression. Assigning to a global
// identifier is a direct STOREGLOBAL (ASSIGN's DataStackAddress case is
// relative to the current activation window, which a global slot is not);
// every other target (local, field, index) goes through the
// push-value/push-reference/ASSIGN sequence spec §4.2 describes.
func compileStoreExpr(pc *pcomp, fc *fcomp, n *ast.StoreExpr, produceValue bool) ([]asm.Op, error) {
	valueOps, err := compileExpr(pc, fc, n.Value)
	if err != nil {
		return nil, err
	}

	if id, ok := n.Target.(*ast.Identifier); ok {
		if fc == nil || !fc.hasLocal(id.Name) {
			if slot, ok := pc.globalIndex[id.Name]; ok {
				var ops []asm.Op
				ops = append(ops, valueOps...)
				if produceValue {
					ops = append(ops, asm.Simple(asm.DUP))
				}
				ops = append(ops, asm.StoreGlobal(slot))
				return ops, nil
			}
		}
	}

	destOps, err := compileStoreTarget(pc, fc, n.Target)
	if err != nil {
		return nil, err
	}

	var ops []asm.Op
	ops = append(ops, valueOps...)
	if produceValue {
		ops = append(ops, asm.Simple(asm.DUP))
	}
	ops = append(ops, destOps...)
	ops = append(ops, asm.Simple(asm.ASSIGN))
	return ops, nil
}

// compileStoreTarget pushes the reference value ASSIGN expects: STACKREF of
// a local slot for a plain identifier, or a PIN-produced element reference
// for a field/index target.
func compileStoreTarget(pc *pcomp, fc *fcomp, target ast.Expr) ([]asm.Op, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		if fc != nil {
			if slot, ok := fc.findLocal(t.Name); ok {
				return []asm.Op{asm.StackRef(slot)}, nil
			}
		}
		return nil, diag.New(diag.KindCompile, t.Pos(), "cannot assign to %q: not a local variable", t.Name)
	case *ast.Field:
		return compileField(pc, fc, t, true)
	case *ast.Indexed:
		return compileIndexed(pc, fc, t, true)
	default:
		return nil, diag.New(diag.KindCompile, target.Pos(), "invalid assignment target %T", target)
	}
}
