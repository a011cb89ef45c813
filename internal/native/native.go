// Package native implements the native-function ABI (spec §4.7): a uniform
// entry point host-provided functions use to pop arguments from the VM
// stack, allocate into its heap, and either push a result or return a
// runtime error. Concrete natives here are illustrative (the spec does not
// prescribe which natives exist), chosen to exercise the dependencies
// SPEC_FULL.md's domain-stack section wires into this package.
package native

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/ash-lang/ash/internal/vm"
)

// Registry assigns each native a stable call-site index, mirroring the
// monomorphisation-name-to-index mapping codegen performs when it emits
// NATIVE(index) (spec §4.7).
type Registry struct {
	names []string
	fns   []vm.Native
	index map[string]uint32
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]uint32)}
}

// Register adds fn under name and returns its stable index.
func (r *Registry) Register(name string, fn vm.Native) uint32 {
	idx := uint32(len(r.fns))
	r.names = append(r.names, name)
	r.fns = append(r.fns, fn)
	r.index[name] = idx
	return idx
}

// Index looks up a previously registered native's call index.
func (r *Registry) Index(name string) (uint32, bool) {
	idx, ok := r.index[name]
	return idx, ok
}

// Natives returns the slot-ordered function table a vm.State is built with.
func (r *Registry) Natives() []vm.Native { return r.fns }

// Standard returns the registry of natives shipped by default: println (the
// VM's own PRINT op covers bare `print`, this variant demonstrates the
// native-call path instead), uuid(), heap_stats() and list_len (consulted by
// codegen's negative-index normalisation and foreach/comprehension lowering,
// since the bytecode has no dedicated LEN instruction).
func Standard() *Registry {
	r := NewRegistry()
	r.Register("println_String", nativePrintln)
	r.Register("uuid", nativeUUID)
	r.Register("heap_stats", nativeHeapStats)
	r.Register("list_len", nativeListLen)
	return r
}

// nativeListLen pops a List-cell argument and pushes its element count as an
// Int cell.
func nativeListLen(s *vm.State) error {
	arg := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	if arg.Tag != vm.DataList {
		return fmt.Errorf("list_len: expected List argument")
	}
	n := len(s.Heap[arg.I].List)
	s.Stack = append(s.Stack, vm.VInt(int64(n)))
	return nil
}

// nativePrintln pops one String-cell argument and writes it followed by a
// newline, exercising the same Heap.Str storage PRINT itself reads. Like
// every native, it leaves exactly one value on the stack on success (None
// here) so a call compiled as an expression statement has something for
// the trailing POP to discard.
func nativePrintln(s *vm.State) error {
	arg := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	if arg.Tag != vm.DataString {
		return fmt.Errorf("println: expected String argument")
	}
	str := s.Heap[arg.I].Str
	fmt.Println(str)
	s.Stack = append(s.Stack, vm.VNone())
	return nil
}

// nativeUUID pushes a freshly generated random UUID as a String cell,
// demonstrating a native that allocates into the heap (spec §4.7).
func nativeUUID(s *vm.State) error {
	id := uuid.NewString()
	idx := s.AllocateStringForNative(id)
	s.Stack = append(s.Stack, vm.VString(idx))
	return nil
}

// nativeHeapStats pushes a human-readable String describing the current
// heap size and free-list occupancy, useful for diagnosing GC behavior from
// within a running program.
func nativeHeapStats(s *vm.State) error {
	total := len(s.Heap)
	free := len(s.FreeSpace)
	msg := fmt.Sprintf("heap: %s cells (%s free)", humanize.Comma(int64(total)), humanize.Comma(int64(free)))
	idx := s.AllocateStringForNative(msg)
	s.Stack = append(s.Stack, vm.VString(idx))
	return nil
}
