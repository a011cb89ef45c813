package vm

import "fmt"

// valuesEqual implements EQUALS (spec §4.6): two heap strings compare by
// content; everything else compares by stack-cell tag and value, so two
// List/Closure/Struct cells are equal only if they reference the exact same
// heap index (the asymmetry spec.md documents explicitly).
func (v *VM) valuesEqual(a, b VmData) bool {
	if a.Tag == DataString && b.Tag == DataString {
		return v.State.Heap[a.I].Str == v.State.Heap[b.I].Str
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case DataInt, DataFunction, DataClosure, DataList, DataStruct, DataStackAddress:
		return a.I == b.I
	case DataFloat:
		return a.F == b.F
	case DataBool:
		return a.B == b.B
	case DataChar:
		return a.C == b.C
	case DataNone:
		return true
	}
	return false
}

// concat implements CONCAT for strings (+ on String operands): spec §4.2
// says List also concatenates via this op, handled as a heap-list merge.
func (v *VM) concat(opPos uint32, a, b VmData) (VmData, error) {
	s := v.State
	switch {
	case a.Tag == DataString && b.Tag == DataString:
		joined := s.Heap[a.I].Str + s.Heap[b.I].Str
		idx := s.allocateString(joined)
		return VString(idx), nil
	case a.Tag == DataList && b.Tag == DataList:
		la := s.Heap[a.I].List
		lb := s.Heap[b.I].List
		merged := make([]int64, 0, len(la)+len(lb))
		merged = append(merged, la...)
		merged = append(merged, lb...)
		idx := s.allocateList(merged)
		return VList(idx), nil
	default:
		return VmData{}, s.typeMismatch(opPos, "CONCAT")
	}
}

// pindex implements PIN (spec §4.6/§4.2): resolve array[index] to an
// assignable reference. The reference is itself a VmData.List cell whose
// index names the *boxed element's* heap slot — not the array's own cell —
// so a subsequent ASSIGN overwrites that element in place.
func (v *VM) pindex(opPos uint32, arr, idxv VmData) (VmData, error) {
	s := v.State
	if idxv.Tag != DataInt {
		return VmData{}, s.typeMismatch(opPos, "PINDEX index")
	}
	listIdx, err := v.resolveListIndex(opPos, arr)
	if err != nil {
		return VmData{}, err
	}
	list := s.Heap[listIdx].List
	i := idxv.I
	if i < 0 || int(i) >= len(list) {
		return VmData{}, s.runtimeError(opPos, "index %d out of bounds (len %d)", i, len(list))
	}
	return VList(list[i]), nil
}

// lindex implements LIN: load and unbox array[index].
func (v *VM) lindex(opPos uint32, arr, idxv VmData) (VmData, error) {
	s := v.State
	if idxv.Tag != DataInt {
		return VmData{}, s.typeMismatch(opPos, "LINDEX index")
	}
	listIdx, err := v.resolveListIndex(opPos, arr)
	if err != nil {
		return VmData{}, err
	}
	list := s.Heap[listIdx].List
	i := idxv.I
	if i < 0 || int(i) >= len(list) {
		return VmData{}, s.runtimeError(opPos, "index %d out of bounds (len %d)", i, len(list))
	}
	return s.toVmData(list[i]), nil
}

// resolveListIndex accepts either a direct List cell or a StackAddress
// naming a local slot that holds one (spec §4.2 indexing via references).
func (v *VM) resolveListIndex(opPos uint32, arr VmData) (int64, error) {
	s := v.State
	switch arr.Tag {
	case DataList:
		return arr.I, nil
	case DataStackAddress:
		slot := s.Stack[s.Offset+int(arr.I)]
		if slot.Tag != DataList {
			return 0, s.typeMismatch(opPos, "index target")
		}
		return slot.I, nil
	default:
		return 0, s.typeMismatch(opPos, "index target")
	}
}

// vmDataToHeapCellInPlace converts a stack cell into the heap cell form
// ASSIGN writes through a PIN reference: scalars store directly, heap-backed
// values store as an indirection (spec §4.2 "if a List heap index, the heap
// cell is overwritten in place").
func vmDataToHeapCellInPlace(v VmData) HeapCell {
	switch v.Tag {
	case DataInt:
		return HeapCell{Tag: HeapInt, Int: v.I}
	case DataFloat:
		return HeapCell{Tag: HeapFloat, Float: v.F}
	case DataBool:
		return HeapCell{Tag: HeapBool, Bool: v.B}
	case DataChar:
		return HeapCell{Tag: HeapChar, Char: v.C}
	case DataFunction:
		return HeapCell{Tag: HeapFunction, Addr: v.I}
	case DataString:
		return HeapCell{Tag: HeapStringAddress, Addr: v.I}
	case DataList:
		return HeapCell{Tag: HeapListAddress, Addr: v.I}
	case DataStruct:
		return HeapCell{Tag: HeapStructAddress, Addr: v.I}
	case DataClosure:
		return HeapCell{Tag: HeapClosureAddress, Addr: v.I}
	default:
		return HeapCell{Tag: HeapNone}
	}
}

func (v *VM) printValue(item VmData) {
	s := v.State
	switch item.Tag {
	case DataInt:
		v.writeln(fmt.Sprintf("%d", item.I))
	case DataFloat:
		v.writeln(fmt.Sprintf("%g", item.F))
	case DataBool:
		v.writeln(fmt.Sprintf("%t", item.B))
	case DataChar:
		v.writeln(string(item.C))
	case DataNone:
		v.writeln("None")
	case DataFunction:
		v.writeln(fmt.Sprintf("function pointer: %d", item.I))
	case DataString:
		v.writeln(s.Heap[item.I].Str)
	case DataList:
		v.writeln(v.formatList(item.I))
	default:
		v.writeln(fmt.Sprintf("<%v>", item))
	}
}

func (v *VM) formatList(idx int64) string {
	s := v.State
	list := s.Heap[idx].List
	out := "["
	for i, e := range list {
		if i > 0 {
			out += ", "
		}
		out += v.formatHeapValue(e)
	}
	return out + "]"
}

func (v *VM) formatHeapValue(idx int64) string {
	s := v.State
	c := s.Heap[idx]
	switch c.Tag {
	case HeapInt:
		return fmt.Sprintf("%d", c.Int)
	case HeapFloat:
		return fmt.Sprintf("%g", c.Float)
	case HeapBool:
		return fmt.Sprintf("%t", c.Bool)
	case HeapChar:
		return string(c.Char)
	case HeapStringAddress:
		return s.Heap[c.Addr].Str
	case HeapListAddress:
		return v.formatList(c.Addr)
	case HeapNone:
		return "None"
	default:
		return "<value>"
	}
}

func (v *VM) writeln(s string) {
	if v.Stdout != nil {
		v.Stdout.WriteString(s + "\n")
	}
}
