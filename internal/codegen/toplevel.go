package codegen

import (
	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/types"
)

// compileTopLevelStmt lowers one top-level declaration. Unlike compileStmt
// it runs with fc == nil (no activation window exists at module scope), so
// Let bindings and constructor results land in the global frame via
// STOREGLOBAL rather than a local slot.
func (pc *pcomp) compileTopLevelStmt(s ast.Stmt) ([]asm.Op, error) {
	switch n := s.(type) {
	case *ast.Let:
		return pc.compileGlobalLet(n)
	case *ast.Function:
		return pc.compileGlobalFunction(n)
	case *ast.Struct:
		return pc.compileGlobalStruct(n)
	case *ast.Enum:
		return pc.compileGlobalEnum(n)
	case *ast.Expression:
		return compileExpressionStmt(pc, nil, n)
	default:
		return nil, diag.New(diag.KindCompile, s.Pos(), "%T is not a valid top-level statement", s)
	}
}

func (pc *pcomp) compileGlobalLet(n *ast.Let) ([]asm.Op, error) {
	slot, ok := pc.globalIndex[n.Identifier]
	if !ok {
		return nil, diag.New(diag.KindCompile, n.Pos(), "internal error: global %q not predeclared", n.Identifier)
	}
	ops, err := compileExpr(pc, nil, n.Expr)
	if err != nil {
		return nil, err
	}
	return append(ops, asm.StoreGlobal(slot)), nil
}

func (pc *pcomp) compileGlobalFunction(n *ast.Function) ([]asm.Op, error) {
	mangled := types.Mangle(n.Identifier, n.Ttype.Params)
	slot, ok := pc.globalIndex[mangled]
	if !ok {
		return nil, diag.New(diag.KindCompile, n.Pos(), "internal error: function %q not predeclared", mangled)
	}
	ops, err := compileFunctionLikeInto(pc, nil, mangled, n.Parameters, n.Body, false, &n.Captures)
	if err != nil {
		return nil, err
	}
	return append(ops, asm.StoreGlobal(slot)), nil
}

func (pc *pcomp) compileGlobalStruct(n *ast.Struct) ([]asm.Op, error) {
	slot, ok := pc.globalIndex[n.Name]
	if !ok {
		return nil, diag.New(diag.KindCompile, n.Pos(), "internal error: struct %q not predeclared", n.Name)
	}
	ops := pc.structConstructorOps(n.Name, uint32(len(n.Fields)))
	return append(ops, asm.StoreGlobal(slot)), nil
}

func (pc *pcomp) compileGlobalEnum(n *ast.Enum) ([]asm.Op, error) {
	var ops []asm.Op
	for _, arm := range n.Arms {
		slot, ok := pc.globalIndex[arm.Name]
		if !ok {
			return nil, diag.New(diag.KindCompile, n.Pos(), "internal error: enum arm %q not predeclared", arm.Name)
		}
		ctorOps := pc.enumArmConstructorOps(arm.Name, arm.Payload != nil, pc.enumTag[arm.Name])
		ops = append(ops, ctorOps...)
		ops = append(ops, asm.StoreGlobal(slot))
	}
	return ops, nil
}
