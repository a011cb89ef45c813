package codegen

import (
	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/symtab"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// loopLabels is the break/continue target pair for one enclosing loop (spec
// §4.2 "break/continue push their target labels onto per-loop stacks").
type loopLabels struct {
	breakLabel    uint32
	continueLabel uint32
}

// fcomp holds the compiler state private to one function or closure body: a
// stack of local-slot maps mirroring the env scope stack, the running
// body-local slot counter, the parent fcomp (nil at the outermost,
// non-capturing level), and the ordered list of names this body ends up
// capturing.
//
// Slot layout within the activation window is fixed by the calling
// convention (spec §4.3): params occupy [0, paramCount), captures occupy
// [paramCount, paramCount+captureCount) in first-use order, and Let-bound
// locals occupy everything from there on. nextLocal is seeded by the
// caller once paramCount (always known) and captureCount (only known after
// the discovery pass, see compileFunctionLikeInto) are both fixed.
type fcomp struct {
	pc     *pcomp
	parent *fcomp

	scopes     []map[string]uint32
	nextLocal  uint32
	paramCount uint32

	captureOrder []string
	captureSlot  map[string]uint32

	loops []loopLabels
}

func newFcomp(pc *pcomp, parent *fcomp, paramCount uint32) *fcomp {
	return &fcomp{
		pc:          pc,
		parent:      parent,
		paramCount:  paramCount,
		scopes:      []map[string]uint32{make(map[string]uint32)},
		captureSlot: make(map[string]uint32),
	}
}

func (fc *fcomp) pushBlock() { fc.scopes = append(fc.scopes, make(map[string]uint32)) }
func (fc *fcomp) popBlock()  { fc.scopes = fc.scopes[:len(fc.scopes)-1] }

// declareLocal reserves the next body-local slot for name in the current
// block and records it in the matching env scope too, so a nested closure
// looking the name up sees it as a capture source.
func (fc *fcomp) declareLocal(name string, t types.Type, pos token.Position) uint32 {
	slot := fc.nextLocal
	fc.nextLocal++
	fc.scopes[len(fc.scopes)-1][name] = slot
	_, _ = fc.pc.env.Declare(name, t, pos, symtab.KindVariable)
	return slot
}

// findLocal searches this function's own scope stack, innermost first.
func (fc *fcomp) findLocal(name string) (uint32, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		if slot, ok := fc.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// hasLocal reports whether name resolves within this function's own scope
// stack (not counting captures from an enclosing function).
func (fc *fcomp) hasLocal(name string) bool {
	_, ok := fc.findLocal(name)
	return ok
}

// ensureCaptureSlot assigns name a fresh capture slot the first time it is
// requested, in first-use order (spec §4.3); the slot is always
// paramCount+rank, independent of when during the scan it was discovered,
// since the caller physically pushes captured values in this same order.
// Subsequent requests for the same name return the existing slot.
func (fc *fcomp) ensureCaptureSlot(name string) uint32 {
	if slot, ok := fc.captureSlot[name]; ok {
		return slot
	}
	slot := fc.paramCount + uint32(len(fc.captureOrder))
	fc.captureOrder = append(fc.captureOrder, name)
	fc.captureSlot[name] = slot
	fc.scopes[0][name] = slot
	return slot
}

// readIdent resolves name for a read in the context of fc (nil fc means
// top-level/global context) and returns the ops that push its value,
// cascading a capture into fc (and transitively into every enclosing
// fcomp between the defining scope and fc) when the name is free in fc's
// body (spec §4.1 step 4, §4.3).
func (pc *pcomp) readIdent(fc *fcomp, name string, pos token.Position) ([]asm.Op, error) {
	if fc != nil {
		if slot, ok := fc.findLocal(name); ok {
			return []asm.Op{asm.Get(slot)}, nil
		}
	}
	if slot, ok := pc.globalIndex[name]; ok {
		return []asm.Op{asm.GetGlobal(slot)}, nil
	}
	if fc == nil {
		return nil, unknownIdentifier(pc, name, pos)
	}
	if fc.parent == nil {
		return nil, diag.New(diag.KindCompile, pos, "captured variable %q not in any enclosing scope", name)
	}
	// name is free in fc: it must come from an enclosing function. Ensure
	// the parent can supply it (recursing further if the parent doesn't
	// have it locally either), then reserve fc's own capture slot for it.
	slot := fc.ensureCaptureSlot(name)
	if _, err := pc.readIdent(fc.parent, name, pos); err != nil {
		return nil, err
	}
	return []asm.Op{asm.Get(slot)}, nil
}

// compileFunctionLikeInto lowers a function or closure body into IR using a
// two-pass strategy: a discovery pass compiles the body once (discarding
// its ops) purely to learn the final capture list and local-slot count,
// then a second pass recompiles it for real now that the
// OFFSET(args+captures, locals) prologue's operand is known. This mirrors
// the assembler's own two-pass resolution of forward references (spec
// §4.4) applied to the analogous problem here: a function's captures are
// only known once its whole body has been read. captureSink, when non-nil,
// records the discovered capture list back onto the source AST node
// (ast.Closure.Captures / ast.Function.Captures, spec §6) — purely
// informational, codegen itself only needs discover.captureOrder.
func compileFunctionLikeInto(pc *pcomp, parent *fcomp, name string, params []ast.Param, body []ast.Stmt, allowCapture bool, captureSink *[]string) ([]asm.Op, error) {
	paramCount := uint32(len(params))
	capParent := parentOrNil(parent, allowCapture)

	discover := newFcomp(pc, capParent, paramCount)
	discover.nextLocal = paramCount
	if _, err := runFunctionBody(pc, discover, params, body); err != nil {
		return nil, err
	}
	captureCount := uint32(len(discover.captureOrder))
	localsOperand := discover.nextLocal - paramCount
	if captureSink != nil {
		*captureSink = append([]string(nil), discover.captureOrder...)
	}

	real := newFcomp(pc, capParent, paramCount)
	real.nextLocal = paramCount + captureCount
	bodyOps, err := runFunctionBody(pc, real, params, body)
	if err != nil {
		return nil, err
	}

	prologue := asm.Offset(paramCount+captureCount, localsOperand)
	fnOps := append([]asm.Op{prologue}, bodyOps...)
	if !endsInReturn(body) {
		fnOps = append(fnOps, asm.Ret(false))
	}

	skip := pc.gen.Gen()
	var out []asm.Op
	if captureCount > 0 {
		for _, capName := range discover.captureOrder {
			ops, err := pc.readIdent(parent, capName, token.NoPos)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		}
		out = append(out, asm.NewListOp(captureCount))
		out = append(out, asm.Closure(skip))
	} else {
		out = append(out, asm.Function(skip, name))
	}
	out = append(out, fnOps...)
	out = append(out, asm.Label(skip))
	return out, nil
}

func parentOrNil(parent *fcomp, allowCapture bool) *fcomp {
	if allowCapture {
		return parent
	}
	return nil
}

// runFunctionBody pushes a fresh closure-boundary scope, binds the
// parameters to slots [0, len(params)), compiles every statement of body,
// and pops the scope again.
func runFunctionBody(pc *pcomp, fc *fcomp, params []ast.Param, body []ast.Stmt) ([]asm.Op, error) {
	pc.pushScope(true)
	defer pc.popScope()

	for i, p := range params {
		fc.scopes[0][p.Name] = uint32(i)
		if _, err := pc.env.Declare(p.Name, p.Ttype, token.NoPos, symtab.KindParameter); err != nil {
			return nil, diag.Wrap(err, diag.KindCompile, token.NoPos, "%s", err.Error())
		}
	}

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

func endsInReturn(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ast.Return)
	return ok
}
