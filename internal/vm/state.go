// Package vm implements the stack/heap virtual machine described in spec
// §4.5 (State) and §4.6 (Interpreter loop): VmData stack cells, Heap cells
// with indirection variants, activation windows, a free-list allocator and
// a threshold-triggered mark-sweep collector. It is grounded on
// original_source/vm/src/state.rs and vm/src/lib.rs, cleaned up where the
// original left semantics ambiguous or unfinished (see SPEC_FULL.md).
package vm

import (
	"github.com/ash-lang/ash/internal/asm"
)

// DataTag discriminates a VmData stack cell.
type DataTag uint8

const (
	DataInt DataTag = iota
	DataFloat
	DataBool
	DataChar
	DataFunction
	DataClosure
	DataList
	DataString
	DataStruct
	DataStackAddress
	DataNone
)

// VmData is a fixed-size stack cell (spec §3 "VM stack cell"). Heap-backed
// variants (Closure/List/String/Struct) carry an index into State.Heap;
// Function carries a code address; StackAddress carries a stack slot index
// used as an assignment target.
type VmData struct {
	Tag DataTag
	I   int64   // Int, Function addr, Closure/List/String/Struct heap idx, StackAddress idx
	F   float64 // Float
	B   bool    // Bool
	C   rune    // Char
}

func VInt(v int64) VmData         { return VmData{Tag: DataInt, I: v} }
func VFloat(v float64) VmData     { return VmData{Tag: DataFloat, F: v} }
func VBool(v bool) VmData         { return VmData{Tag: DataBool, B: v} }
func VChar(v rune) VmData         { return VmData{Tag: DataChar, C: v} }
func VFunction(addr int64) VmData { return VmData{Tag: DataFunction, I: addr} }
func VClosure(idx int64) VmData   { return VmData{Tag: DataClosure, I: idx} }
func VList(idx int64) VmData      { return VmData{Tag: DataList, I: idx} }
func VString(idx int64) VmData    { return VmData{Tag: DataString, I: idx} }
func VStruct(idx int64) VmData    { return VmData{Tag: DataStruct, I: idx} }
func VStackAddr(idx int64) VmData { return VmData{Tag: DataStackAddress, I: idx} }
func VNone() VmData                { return VmData{Tag: DataNone} }

// HeapTag discriminates a Heap cell.
type HeapTag uint8

const (
	HeapInt HeapTag = iota
	HeapFloat
	HeapBool
	HeapChar
	HeapString
	HeapList
	HeapStruct
	HeapClosure
	HeapFunction
	HeapStringAddress
	HeapListAddress
	HeapStructAddress
	HeapClosureAddress
	HeapNone
)

// HeapCell is a boxed value living in the heap (spec §3 "Heap cell"). The
// *Address variants are indirections: they exist only as the boxed form of
// a VmData stack cell that already referred to another heap cell (spec §9),
// so a list can hold "pointers" to the real String/List/Closure cells
// without duplicating them.
type HeapCell struct {
	Tag    HeapTag
	Int    int64
	Float  float64
	Bool   bool
	Char   rune
	Str    string
	List   []int64 // boxed element heap indices
	Name   string  // Struct type name
	Fields []int64 // Struct field heap indices
	Addr   int64   // code addr (Closure, Function) or target heap idx (*Address variants)
	Addr2  int64   // Closure's captured-list heap idx
}

// State is the VM's entire mutable world (spec §4.5). There is exactly one
// per running program; it is never shared across goroutines.
type State struct {
	Code []byte
	PC   int

	Stack     []VmData
	CallStack []int
	Window    []int
	Offset    int

	Heap      []HeapCell
	FreeSpace []int64

	Threshold int
	GCLock    bool
	GCCount   int
	Collected int

	RuntimeErrorTable map[uint32]asm.Position

	Natives []Native
}

// Native is the host-function ABI (spec §4.7): a native receives the full
// State by reference and either mutates the stack/heap and returns nil, or
// returns a runtime error that aborts the program.
type Native func(*State) error

// NewState returns a State ready to execute code, with natives registered
// at their call-site indices and an initially generous GC threshold so a
// freshly started program doesn't collect before it has allocated anything.
func NewState(code []byte, errTable map[uint32]asm.Position, natives []Native) *State {
	return &State{
		Code:              code,
		RuntimeErrorTable: errTable,
		Natives:           natives,
		Threshold:         1 << 20,
	}
}

func (s *State) next() byte {
	b := s.Code[s.PC]
	s.PC++
	return b
}

// toVmData unboxes a heap cell back into a stack cell, used when reading a
// previously boxed element out of a list (spec §4.6 LIN).
func (s *State) toVmData(idx int64) VmData {
	c := s.Heap[idx]
	switch c.Tag {
	case HeapInt:
		return VInt(c.Int)
	case HeapFloat:
		return VFloat(c.Float)
	case HeapBool:
		return VBool(c.Bool)
	case HeapChar:
		return VChar(c.Char)
	case HeapFunction:
		return VFunction(c.Addr)
	case HeapStringAddress:
		return VString(c.Addr)
	case HeapListAddress:
		return VList(c.Addr)
	case HeapStructAddress:
		return VStruct(c.Addr)
	case HeapClosureAddress:
		return VClosure(c.Addr)
	case HeapNone:
		return VNone()
	default:
		// String/List/Struct/Closure cells are never stored unboxed inside
		// another list; only their *Address indirection is.
		panic("vm: cannot unbox composite heap cell directly")
	}
}

// allocateNew returns a fresh, zeroed heap slot, reusing the free list
// before growing (spec §4.5 allocator).
func (s *State) allocateNew() int64 {
	if n := len(s.FreeSpace); n > 0 {
		idx := s.FreeSpace[n-1]
		s.FreeSpace = s.FreeSpace[:n-1]
		s.Heap[idx] = HeapCell{Tag: HeapNone}
		return idx
	}
	s.collectGarbage()
	if n := len(s.FreeSpace); n > 0 {
		idx := s.FreeSpace[n-1]
		s.FreeSpace = s.FreeSpace[:n-1]
		s.Heap[idx] = HeapCell{Tag: HeapNone}
		return idx
	}
	s.Heap = append(s.Heap, HeapCell{Tag: HeapNone})
	return int64(len(s.Heap) - 1)
}

func (s *State) allocateCell(c HeapCell) int64 {
	if n := len(s.FreeSpace); n > 0 {
		idx := s.FreeSpace[n-1]
		s.FreeSpace = s.FreeSpace[:n-1]
		s.Heap[idx] = c
		return idx
	}
	s.Heap = append(s.Heap, c)
	return int64(len(s.Heap) - 1)
}

// box converts a stack cell into its heap representation: scalars box
// directly, heap-backed cells box as an *Address indirection pointing at
// the cell they already reference (spec §9 "Heap indirections").
func (s *State) box(v VmData) int64 {
	switch v.Tag {
	case DataInt:
		return s.allocateCell(HeapCell{Tag: HeapInt, Int: v.I})
	case DataFloat:
		return s.allocateCell(HeapCell{Tag: HeapFloat, Float: v.F})
	case DataBool:
		return s.allocateCell(HeapCell{Tag: HeapBool, Bool: v.B})
	case DataChar:
		return s.allocateCell(HeapCell{Tag: HeapChar, Char: v.C})
	case DataFunction:
		return s.allocateCell(HeapCell{Tag: HeapFunction, Addr: v.I})
	case DataString:
		return s.allocateCell(HeapCell{Tag: HeapStringAddress, Addr: v.I})
	case DataList:
		return s.allocateCell(HeapCell{Tag: HeapListAddress, Addr: v.I})
	case DataStruct:
		return s.allocateCell(HeapCell{Tag: HeapStructAddress, Addr: v.I})
	case DataClosure:
		return s.allocateCell(HeapCell{Tag: HeapClosureAddress, Addr: v.I})
	case DataNone:
		return s.allocateCell(HeapCell{Tag: HeapNone})
	default:
		panic("vm: cannot box stack address")
	}
}

// AllocateStringForNative lets a native function (internal/native) box a
// host-computed string into the heap the same way the STRING opcode does.
func (s *State) AllocateStringForNative(str string) int64 {
	return s.allocateString(str)
}

func (s *State) allocateString(str string) int64 {
	if n := len(s.FreeSpace); n > 0 {
		idx := s.FreeSpace[n-1]
		s.FreeSpace = s.FreeSpace[:n-1]
		s.Heap[idx] = HeapCell{Tag: HeapString, Str: str}
		return idx
	}
	s.collectGarbage()
	return s.allocateCell(HeapCell{Tag: HeapString, Str: str})
}

func (s *State) allocateList(elems []int64) int64 {
	return s.allocateCell(HeapCell{Tag: HeapList, List: elems})
}

func (s *State) freeHeap(idx int64) {
	s.FreeSpace = append(s.FreeSpace, idx)
}

// collectGarbage runs the soft-threshold mark-sweep sweep (spec §4.5/§5):
// mark every heap cell reachable from the stack, then free every unmarked
// cell. threshold is recomputed to heap.len() * 1.1 after each sweep.
func (s *State) collectGarbage() {
	if s.GCLock {
		return
	}
	if len(s.Heap) < s.Threshold {
		return
	}
	s.Threshold = int(float64(len(s.Heap)) * 1.1)

	s.GCCount++
	marked := make([]bool, len(s.Heap))
	var mark func(idx int64)
	mark = func(idx int64) {
		if idx < 0 || int(idx) >= len(marked) || marked[idx] {
			return
		}
		marked[idx] = true
		c := s.Heap[idx]
		switch c.Tag {
		case HeapList:
			for _, e := range c.List {
				mark(e)
			}
		case HeapStruct:
			for _, f := range c.Fields {
				mark(f)
			}
		case HeapListAddress, HeapStringAddress, HeapStructAddress, HeapClosureAddress:
			mark(c.Addr)
		case HeapClosure:
			mark(c.Addr2)
		}
	}
	for _, v := range s.Stack {
		switch v.Tag {
		case DataList, DataString, DataClosure, DataStruct:
			mark(v.I)
		}
	}

	for i := range s.Heap {
		if !marked[i] && s.Heap[i].Tag != HeapNone {
			s.Heap[i] = HeapCell{Tag: HeapNone}
			s.freeHeap(int64(i))
			s.Collected++
		}
	}
}

// offsetLocals implements OFFSET(args, locals): the new window base sits
// args cells below the current stack top (the arguments already pushed by
// the caller), then locals None cells are appended (spec §4.5).
func (s *State) offsetLocals(args, locals int) {
	s.Offset = len(s.Stack) - args
	s.Window = append(s.Window, s.Offset)
	for i := 0; i < locals; i++ {
		s.Stack = append(s.Stack, VNone())
	}
}

// allocLocals implements ALLOCGLOBALS/ALLOCLOCALS: the window base is the
// current stack top, with no pre-pushed arguments to account for.
func (s *State) allocLocals(n int) {
	s.Offset = len(s.Stack)
	s.Window = append(s.Window, s.Offset)
	for i := 0; i < n; i++ {
		s.Stack = append(s.Stack, VNone())
	}
}

func (s *State) deallocateRegisters() {
	if n := len(s.Window); n > 0 {
		base := s.Window[n-1]
		s.Window = s.Window[:n-1]
		s.Stack = s.Stack[:base]
	}
	if n := len(s.Window); n > 0 {
		s.Offset = s.Window[n-1]
	} else {
		s.Offset = 0
	}
}

func (s *State) deallocateRegistersWithReturn() {
	ret := s.Stack[len(s.Stack)-1]
	if n := len(s.Window); n > 0 {
		base := s.Window[n-1]
		s.Window = s.Window[:n-1]
		s.Stack = s.Stack[:base]
	}
	if n := len(s.Window); n > 0 {
		s.Offset = s.Window[n-1]
	} else {
		s.Offset = 0
	}
	s.Stack = append(s.Stack, ret)
}

func (s *State) pop() VmData {
	v := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return v
}

func (s *State) push(v VmData) { s.Stack = append(s.Stack, v) }
