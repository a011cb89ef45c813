package codegen

import "github.com/ash-lang/ash/internal/asm"

// wrapConstructor wraps a constructor body (raw ops with no statements,
// locals or captures of its own) in the same FUNCTION/OFFSET/RET/LABEL
// frame compileFunctionLikeInto produces for an ordinary function, following
// spec §4.2 "struct/enum constructors are lowered to a synthetic function".
func (pc *pcomp) wrapConstructor(name string, paramCount uint32, body []asm.Op) []asm.Op {
	skip := pc.gen.Gen()
	var ops []asm.Op
	ops = append(ops, asm.Function(skip, name))
	ops = append(ops, asm.Offset(paramCount, 0))
	ops = append(ops, body...)
	ops = append(ops, asm.Ret(true))
	ops = append(ops, asm.Label(skip))
	return ops
}

// structConstructorOps builds a struct's constructor: pop the n field
// arguments already pushed by the caller back into a LIST in declaration
// order (spec §4.2).
func (pc *pcomp) structConstructorOps(name string, fieldCount uint32) []asm.Op {
	var body []asm.Op
	for i := uint32(0); i < fieldCount; i++ {
		body = append(body, asm.Get(i))
	}
	body = append(body, asm.NewListOp(fieldCount))
	return pc.wrapConstructor(name, fieldCount, body)
}

// enumArmConstructorOps builds one enum arm's constructor: a 2-element
// LIST of [payload-or-None, tag], consulted by Match's tag test (expr[1])
// and payload bind (expr[0]).
func (pc *pcomp) enumArmConstructorOps(armName string, hasPayload bool, tag int64) []asm.Op {
	var body []asm.Op
	paramCount := uint32(0)
	if hasPayload {
		paramCount = 1
		body = append(body, asm.Get(0))
	} else {
		body = append(body, asm.None())
	}
	body = append(body, asm.Integer(tag), asm.NewListOp(2))
	return pc.wrapConstructor(armName, paramCount, body)
}
