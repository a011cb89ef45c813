// Package bytecode defines the flat, little-endian encoded instruction set
// the assembler (internal/assemble) produces and the VM (internal/vm)
// interprets (spec §3 "Bytecode", §4.6). Every instruction starts with one
// opcode byte; operand encodings are fixed-size per spec: u32 LE for
// indices/labels/counts, i64/f64 LE for literals, CHAR as one raw byte, and
// STRING as a u64 LE length followed by raw UTF-8 bytes.
package bytecode

// Op is a single bytecode opcode byte.
type Op byte

const (
	OpRet Op = iota
	OpInteger
	OpFloat
	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpIMod
	OpStore
	OpGet
	OpAllocLocals
	OpAssign
	OpCall
	OpDirectCall
	OpNewList
	OpTrue
	OpFalse
	OpFunction
	OpIGtr
	OpILss
	OpJumpIfFalse
	OpEquals
	OpClosure
	OpString
	OpByte
	OpNative
	OpStoreGlobal
	OpGetGlobal
	OpAllocGlobals
	OpChar
	OpPop
	OpNeg
	OpLoop
	OpNot
	OpNone
	OpPrint
	OpJmp
	OpLIndex
	OpPIndex
	OpBJmp
	OpStackRef
	OpFree
	OpClone
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFGtr
	OpFLss
	OpOffset
	OpTailCall
	OpConcat
	OpDup
	OpAnd
	OpOr
	OpIsSome
	OpUnwrap

	opCount
)

var opNames = [...]string{
	OpRet: "ret", OpInteger: "integer", OpFloat: "float",
	OpIAdd: "iadd", OpISub: "isub", OpIMul: "imul", OpIDiv: "idiv", OpIMod: "imod",
	OpStore: "store", OpGet: "get", OpAllocLocals: "alloclocals", OpAssign: "assign",
	OpCall: "call", OpDirectCall: "dcall", OpNewList: "newlist", OpTrue: "true", OpFalse: "false",
	OpFunction: "function", OpIGtr: "igtr", OpILss: "ilss", OpJumpIfFalse: "jif",
	OpEquals: "equ", OpClosure: "closure", OpString: "string", OpByte: "byte", OpNative: "native",
	OpStoreGlobal: "storeglobal", OpGetGlobal: "getglobal", OpAllocGlobals: "allocglobals",
	OpChar: "char", OpPop: "pop", OpNeg: "neg", OpLoop: "loop", OpNot: "not", OpNone: "none",
	OpPrint: "print", OpJmp: "jmp", OpLIndex: "lindex", OpPIndex: "pindex", OpBJmp: "bjmp",
	OpStackRef: "stackref", OpFree: "free", OpClone: "clone",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv", OpFGtr: "fgtr", OpFLss: "flss",
	OpOffset: "offset", OpTailCall: "tcall", OpConcat: "concat", OpDup: "dup",
	OpAnd: "and", OpOr: "or", OpIsSome: "issome", OpUnwrap: "unwrap",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "illegal"
}

// isJumpTarget reports whether op's u32 operand is a jump distance the
// assembler derives from a label (as opposed to a plain count/index).
func isJumpTarget(op Op) bool {
	switch op {
	case OpJumpIfFalse, OpJmp, OpBJmp, OpFunction, OpClosure:
		return true
	default:
		return false
	}
}
