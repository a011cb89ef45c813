// Package codegen lowers a typed AST (internal/ast) into the label-based IR
// internal/asm defines (spec §4.2): scope and local-slot assignment through
// internal/symtab, closure capture discovery, control-flow lowering via
// LABEL/JMP/BJMP/JUMPIFFALSE, and synthetic constructor functions for
// struct/enum declarations. It is grounded on the teacher's two-level
// pcomp/fcomp split in lang/compiler/compiler.go, adapted from a CFG-block
// model to this toolchain's flat, label-patched IR.
package codegen

import (
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/native"
	"github.com/ash-lang/ash/internal/symtab"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// labelGen is the subset of asm's label generator codegen needs; declared
// locally since asm.NewLabelGen returns an unexported type.
type labelGen interface{ Gen() uint32 }

// pcomp holds program-wide compiler state: the symbol environment, the
// label generator, the global-frame slot assignment, and the native
// registry consulted for NATIVE(index) call sites.
type pcomp struct {
	env     *symtab.Environment
	gen     labelGen
	natives *native.Registry

	// boundaries[k] reports whether env scope k+1 is a closure boundary
	// (a Function/Closure body), kept in lockstep with env.Push/Pop so
	// Environment.Lookup's capture-crossing logic has what it needs.
	boundaries []bool

	globalIndex map[string]uint32 // symbol id (mangled for functions) -> global slot
	nextGlobal  uint32

	enumTag map[string]int64 // enum arm name -> its tag value (spec §4.2 "enum arms push an integer tag")

	tempSeq uint32

	errs []error
}

// New returns a Compiler ready to lower a whole program. natives may be nil
// if the program uses no native calls.
func New(natives *native.Registry) *Compiler {
	return &Compiler{
		pc: &pcomp{
			env:         symtab.New(),
			gen:         asm.NewLabelGen(),
			natives:     natives,
			globalIndex: make(map[string]uint32),
			enumTag:     make(map[string]int64),
		},
	}
}

// Compiler is the public entry point; it wraps the internal pcomp so
// callers never see unexported state.
type Compiler struct {
	pc *pcomp
}

// Compile lowers a whole program's top-level statements to IR, prefixed by
// the ALLOCGLOBALS(n) frame-setup instruction spec §4.2 describes.
func (c *Compiler) Compile(prog []ast.Stmt) ([]asm.Op, error) {
	pc := c.pc

	if err := pc.predeclareGlobals(prog); err != nil {
		return nil, err
	}

	var body []asm.Op
	for _, s := range prog {
		ops, err := pc.compileTopLevelStmt(s)
		if err != nil {
			return nil, err
		}
		body = append(body, ops...)
	}

	out := make([]asm.Op, 0, len(body)+1)
	out = append(out, asm.AllocGlobals(pc.nextGlobal))
	out = append(out, body...)
	return out, nil
}

// predeclareGlobals walks the top-level statement list once, assigning a
// global slot to every name that will be visible as a GETGLOBAL/STOREGLOBAL
// target: Let bindings, function declarations (keyed by their mangled
// name), and struct/enum constructors (spec §4.2 "lowered to a synthetic
// function"). Declaring ahead of codegen lets mutually-recursive top-level
// functions call one another regardless of declaration order.
func (pc *pcomp) predeclareGlobals(prog []ast.Stmt) error {
	for _, s := range prog {
		switch n := s.(type) {
		case *ast.Let:
			if _, err := pc.declareGlobal(n.Identifier, n.Ttype, n.Pos(), symtab.KindVariable); err != nil {
				return err
			}
		case *ast.Function:
			ft := n.Ttype
			if _, err := pc.declareGlobal(n.Identifier, ft, n.Pos(), symtab.KindFunction); err != nil {
				return err
			}
		case *ast.Struct:
			fieldTypes := make([]types.Type, len(n.Fields))
			for i, f := range n.Fields {
				fieldTypes[i] = f.Ttype
			}
			pc.env.CustomTypes[n.Name] = toFieldTypes(n.Fields)
			ctor := types.Function(fieldTypes, types.Custom(n.Name, nil))
			if _, err := pc.declareGlobal(n.Name, ctor, n.Pos(), symtab.KindConstructor); err != nil {
				return err
			}
		case *ast.Enum:
			for i, arm := range n.Arms {
				var params []types.Type
				if arm.Payload != nil {
					params = []types.Type{*arm.Payload}
				}
				ctor := types.Function(params, types.Custom(n.Name, nil))
				if _, err := pc.declareGlobal(arm.Name, ctor, n.Pos(), symtab.KindConstructor); err != nil {
					return err
				}
				pc.enumTag[arm.Name] = int64(i)
			}
		}
	}
	return nil
}

func toFieldTypes(params []ast.Param) []symtab.FieldType {
	out := make([]symtab.FieldType, len(params))
	for i, p := range params {
		out[i] = symtab.FieldType{Name: p.Name, Ttype: p.Ttype}
	}
	return out
}

// declareGlobal declares id in the (single, persistent) top-level scope and
// assigns it the next free global slot, keyed by mangled name for
// functions and by bare name for everything else, constructors included
// (spec §3 Symbol).
func (pc *pcomp) declareGlobal(id string, t types.Type, pos token.Position, kind symtab.Kind) (symtab.Symbol, error) {
	sym, err := pc.env.Declare(id, t, pos, kind)
	if err != nil {
		return symtab.Symbol{}, diag.Wrap(err, diag.KindCompile, pos, "%s", err.Error())
	}
	slot := pc.nextGlobal
	pc.nextGlobal++
	pc.globalIndex[sym.ID] = slot
	return sym, nil
}

// pushScope enters a new env scope and records whether it is a closure
// boundary, keeping pc.boundaries in lockstep with env's scope stack.
func (pc *pcomp) pushScope(isBoundary bool) {
	pc.env.Push()
	pc.boundaries = append(pc.boundaries, isBoundary)
}

func (pc *pcomp) popScope() {
	pc.env.Pop()
	pc.boundaries = pc.boundaries[:len(pc.boundaries)-1]
}

func unknownIdentifier(pc *pcomp, name string, pos token.Position) error {
	suggestions := pc.env.Suggestions(name, 3)
	if len(suggestions) == 0 {
		return diag.New(diag.KindReference, pos, "unknown identifier %q", name)
	}
	return diag.New(diag.KindReference, pos, "unknown identifier %q (did you mean %v?)", name, suggestions)
}
