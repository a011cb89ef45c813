package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ash-lang/ash/internal/bytecode"
)

// VM wraps a State and drives it to completion (spec §4.6). Print goes to
// Stdout so callers (tests, the CLI) can capture output instead of writing
// straight to os.Stdout.
type VM struct {
	State  *State
	Stdout interface{ WriteString(string) (int, error) }
}

// New wires code, the runtime-error table produced by the assembler, and
// the native registry into a fresh, runnable VM.
func New(st *State, stdout interface{ WriteString(string) (int, error) }) *VM {
	return &VM{State: st, Stdout: stdout}
}

func (v *VM) readU32() uint32 {
	s := v.State
	b := [4]byte{s.next(), s.next(), s.next(), s.next()}
	return binary.LittleEndian.Uint32(b[:])
}

func (v *VM) readI64() int64 {
	s := v.State
	var b [8]byte
	for i := range b {
		b[i] = s.next()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (v *VM) readF64() float64 {
	s := v.State
	var b [8]byte
	for i := range b {
		b[i] = s.next()
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

func (v *VM) readU64() uint64 {
	s := v.State
	var b [8]byte
	for i := range b {
		b[i] = s.next()
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Run executes State.Code from the current PC until a top-level RET (an
// empty call stack) or a runtime error (spec §4.6, §7).
func (v *VM) Run() error {
	s := v.State
	for {
		opPos := uint32(s.PC)
		op := bytecode.Op(s.next())

		switch op {
		case bytecode.OpRet:
			withReturn := s.next() == 1
			if len(s.CallStack) == 0 {
				return nil
			}
			dest := s.CallStack[len(s.CallStack)-1]
			s.CallStack = s.CallStack[:len(s.CallStack)-1]
			if withReturn {
				s.deallocateRegistersWithReturn()
			} else {
				s.deallocateRegisters()
			}
			s.PC = dest

		case bytecode.OpInteger:
			s.push(VInt(v.readI64()))

		case bytecode.OpFloat:
			s.push(VFloat(v.readF64()))

		case bytecode.OpTrue:
			s.push(VBool(true))
		case bytecode.OpFalse:
			s.push(VBool(false))

		case bytecode.OpChar:
			s.push(VChar(rune(s.next())))

		case bytecode.OpString:
			n := v.readU64()
			buf := make([]byte, n)
			for i := range buf {
				buf[i] = s.next()
			}
			idx := s.allocateString(string(buf))
			s.push(VString(idx))

		case bytecode.OpNone:
			s.push(VNone())

		case bytecode.OpAllocGlobals, bytecode.OpAllocLocals:
			n := v.readU32()
			s.allocLocals(int(n))

		case bytecode.OpOffset:
			args := v.readU32()
			locals := v.readU32()
			s.offsetLocals(int(args), int(locals))

		case bytecode.OpGet:
			idx := v.readU32()
			s.push(s.Stack[s.Offset+int(idx)])

		case bytecode.OpStore:
			idx := v.readU32()
			val := s.pop()
			s.Stack[s.Offset+int(idx)] = val

		case bytecode.OpGetGlobal:
			idx := v.readU32()
			s.push(s.Stack[idx])

		case bytecode.OpStoreGlobal:
			idx := v.readU32()
			val := s.pop()
			s.Stack[idx] = val

		case bytecode.OpStackRef:
			idx := v.readU32()
			s.push(VStackAddr(int64(idx)))

		case bytecode.OpJmp:
			d := v.readU32()
			s.PC += int(d)

		case bytecode.OpBJmp:
			d := v.readU32()
			s.PC -= int(d)

		case bytecode.OpJumpIfFalse:
			d := v.readU32()
			cond := s.pop()
			if cond.Tag != DataBool {
				return s.typeMismatch(opPos, "JUMPIFFALSE")
			}
			if !cond.B {
				s.PC += int(d)
			}

		case bytecode.OpFunction:
			addr := int64(s.PC + 4)
			d := v.readU32()
			s.push(VFunction(addr))
			s.PC += int(d)

		case bytecode.OpClosure:
			captured := s.pop()
			if captured.Tag != DataList {
				return s.typeMismatch(opPos, "CLOSURE")
			}
			addr := int64(s.PC + 4)
			d := v.readU32()
			idx := s.allocateCell(HeapCell{Tag: HeapClosure, Addr: addr, Addr2: captured.I})
			s.push(VClosure(idx))
			s.PC += int(d)

		case bytecode.OpCall:
			callee := s.pop()
			switch callee.Tag {
			case DataFunction:
				s.CallStack = append(s.CallStack, s.PC)
				s.PC = int(callee.I)
			case DataClosure:
				cell := s.Heap[callee.I]
				if cell.Tag != HeapClosure {
					return s.runtimeError(opPos, "CALL: closure cell corrupted")
				}
				list := s.Heap[cell.Addr2]
				if list.Tag != HeapList {
					return s.runtimeError(opPos, "CALL: closure capture list corrupted")
				}
				for _, boxed := range list.List {
					s.push(s.toVmData(boxed))
				}
				s.CallStack = append(s.CallStack, s.PC)
				s.PC = int(cell.Addr)
			default:
				return s.typeMismatch(opPos, "CALL")
			}

		case bytecode.OpDirectCall:
			idx := v.readU32()
			target := s.Stack[idx]
			if target.Tag != DataFunction {
				return s.typeMismatch(opPos, "DCALL")
			}
			s.CallStack = append(s.CallStack, s.PC)
			s.PC = int(target.I)

		case bytecode.OpTailCall:
			idx := v.readU32()
			target := s.Stack[idx]
			if target.Tag != DataFunction {
				return s.typeMismatch(opPos, "TCALL")
			}
			// Reuse the current window: slide the new arguments down to its
			// base and drop its record, so the callee's OFFSET rebuilds it there.
			if at := int(target.I); at+5 <= len(s.Code) && bytecode.Op(s.Code[at]) == bytecode.OpOffset && len(s.Window) > 0 {
				args := int(binary.LittleEndian.Uint32(s.Code[at+1 : at+5]))
				copy(s.Stack[s.Offset:], s.Stack[len(s.Stack)-args:])
				s.Stack = s.Stack[:s.Offset+args]
				s.Window = s.Window[:len(s.Window)-1]
			}
			s.PC = int(target.I)

		case bytecode.OpIAdd, bytecode.OpISub, bytecode.OpIMul, bytecode.OpIDiv, bytecode.OpIMod:
			b := s.pop()
			a := s.pop()
			if a.Tag != DataInt || b.Tag != DataInt {
				return s.typeMismatch(opPos, op.String())
			}
			r, err := intArith(op, a.I, b.I, func() error { return s.runtimeError(opPos, "integer division by zero") })
			if err != nil {
				return err
			}
			s.push(VInt(r))

		case bytecode.OpFAdd, bytecode.OpFSub, bytecode.OpFMul, bytecode.OpFDiv:
			b := s.pop()
			a := s.pop()
			if a.Tag != DataFloat || b.Tag != DataFloat {
				return s.typeMismatch(opPos, op.String())
			}
			s.push(VFloat(floatArith(op, a.F, b.F)))

		case bytecode.OpILss, bytecode.OpIGtr:
			b := s.pop()
			a := s.pop()
			if a.Tag != DataInt || b.Tag != DataInt {
				return s.typeMismatch(opPos, op.String())
			}
			if op == bytecode.OpILss {
				s.push(VBool(a.I < b.I))
			} else {
				s.push(VBool(a.I > b.I))
			}

		case bytecode.OpFLss, bytecode.OpFGtr:
			b := s.pop()
			a := s.pop()
			if a.Tag != DataFloat || b.Tag != DataFloat {
				return s.typeMismatch(opPos, op.String())
			}
			if op == bytecode.OpFLss {
				s.push(VBool(a.F < b.F))
			} else {
				s.push(VBool(a.F > b.F))
			}

		case bytecode.OpEquals:
			b := s.pop()
			a := s.pop()
			s.push(VBool(v.valuesEqual(a, b)))

		case bytecode.OpAnd:
			b := s.pop()
			a := s.pop()
			if a.Tag != DataBool || b.Tag != DataBool {
				return s.typeMismatch(opPos, "AND")
			}
			s.push(VBool(a.B && b.B))

		case bytecode.OpOr:
			b := s.pop()
			a := s.pop()
			if a.Tag != DataBool || b.Tag != DataBool {
				return s.typeMismatch(opPos, "OR")
			}
			s.push(VBool(a.B || b.B))

		case bytecode.OpNot:
			a := s.pop()
			if a.Tag != DataBool {
				return s.typeMismatch(opPos, "NOT")
			}
			s.push(VBool(!a.B))

		case bytecode.OpNeg:
			a := s.pop()
			switch a.Tag {
			case DataInt:
				s.push(VInt(-a.I))
			case DataFloat:
				s.push(VFloat(-a.F))
			default:
				return s.typeMismatch(opPos, "NEG")
			}

		case bytecode.OpDup:
			s.push(s.Stack[len(s.Stack)-1])

		case bytecode.OpPop:
			s.pop()

		case bytecode.OpAssign:
			dest := s.pop()
			val := s.pop()
			switch dest.Tag {
			case DataStackAddress:
				s.Stack[s.Offset+int(dest.I)] = val
			case DataList:
				s.Heap[dest.I] = vmDataToHeapCellInPlace(val)
			default:
				return s.runtimeError(opPos, "ASSIGN: invalid destination")
			}

		case bytecode.OpNewList:
			n := int(v.readU32())
			boxed := make([]int64, n)
			for i := n - 1; i >= 0; i-- {
				boxed[i] = s.box(s.pop())
			}
			idx := s.allocateList(boxed)
			s.push(VList(idx))

		case bytecode.OpConcat:
			b := s.pop()
			a := s.pop()
			r, err := v.concat(opPos, a, b)
			if err != nil {
				return err
			}
			s.push(r)

		case bytecode.OpPIndex:
			idxv := s.pop()
			arr := s.pop()
			ref, err := v.pindex(opPos, arr, idxv)
			if err != nil {
				return err
			}
			s.push(ref)

		case bytecode.OpLIndex:
			idxv := s.pop()
			arr := s.pop()
			val, err := v.lindex(opPos, arr, idxv)
			if err != nil {
				return err
			}
			s.push(val)

		case bytecode.OpFree:
			item := s.pop()
			switch item.Tag {
			case DataString, DataList, DataStruct, DataClosure:
				s.freeHeap(item.I)
			}

		case bytecode.OpClone:
			item := s.pop()
			switch item.Tag {
			case DataString, DataList, DataStruct, DataClosure:
				clone := s.allocateNew()
				s.Heap[clone] = s.Heap[item.I]
				s.push(VmData{Tag: item.Tag, I: clone})
			default:
				return s.typeMismatch(opPos, "CLONE")
			}

		case bytecode.OpIsSome:
			v2 := s.pop()
			s.push(VBool(v2.Tag != DataNone))

		case bytecode.OpUnwrap:
			if s.Stack[len(s.Stack)-1].Tag == DataNone {
				return s.runtimeError(opPos, "%s", errUnwrapNone.Error())
			}

		case bytecode.OpNative:
			idx := v.readU32()
			if int(idx) >= len(s.Natives) {
				return s.runtimeError(opPos, "NATIVE: index %d out of range", idx)
			}
			if err := s.Natives[idx](s); err != nil {
				return err
			}

		case bytecode.OpPrint:
			item := s.pop()
			v.printValue(item)

		default:
			return fmt.Errorf("vm: unimplemented opcode %s at %d", op, opPos)
		}
	}
}

func intArith(op bytecode.Op, a, b int64, divZero func() error) (int64, error) {
	switch op {
	case bytecode.OpIAdd:
		return a + b, nil
	case bytecode.OpISub:
		return a - b, nil
	case bytecode.OpIMul:
		return a * b, nil
	case bytecode.OpIDiv:
		if b == 0 {
			return 0, divZero()
		}
		return a / b, nil
	case bytecode.OpIMod:
		if b == 0 {
			return 0, divZero()
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	}
	panic("unreachable")
}

func floatArith(op bytecode.Op, a, b float64) float64 {
	switch op {
	case bytecode.OpFAdd:
		return a + b
	case bytecode.OpFSub:
		return a - b
	case bytecode.OpFMul:
		return a * b
	case bytecode.OpFDiv:
		return a / b
	}
	panic("unreachable")
}
