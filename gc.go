package lox

import (
	"fmt"
	"reflect"

	"golang.org/x/exp/slices"
)

// collectGarbage runs one full tricolor mark-sweep cycle: mark every
// root, trace (blacken) until the gray worklist is empty, prune the
// weak intern table, then sweep unmarked objects (spec.md §4.2).
func (vm *VM) collectGarbage() {
	before := vm.bytesAllocated
	vm.markRoots()
	vm.traceReferences()
	vm.strings.removeWhiteKeys()
	vm.sweep()
	vm.keepGrayCompact()

	vm.nextGC = vm.bytesAllocated * uintptr(vm.cfg.GetInt("vm.gc_heap_grow_factor"))
	if vm.nextGC < initialNextGC {
		vm.nextGC = initialNextGC
	}

	if vm.cfg.GetBool("vm.trace_gc") {
		fmt.Fprintf(vm.stderr, "-- gc collected %d bytes (from %d to %d) next at %d\n",
			before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
	}
}

// markRoots marks every value/object the VM and compiler hold
// directly: the value stack, every call frame's closure, the
// open-upvalue list, the globals table, and the compiler's chain of
// enclosing states (so in-progress functions survive a GC triggered
// mid-compile).
func (vm *VM) markRoots() {
	for i := range vm.stack {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		vm.markObject(u)
	}
	vm.globals.Iterate(func(key *ObjString, value Value) {
		vm.markObject(key)
		vm.markValue(value)
	})
	vm.markObject(vm.initString)

	// In-progress functions join the object list only when endCompiler
	// finishes them, so they are blackened in place rather than marked.
	for c := vm.compiler; c != nil; c = c.enclosing {
		vm.VisitFunction(c.function)
	}
}

func (vm *VM) markValue(v Value) {
	if v.IsObj() {
		vm.markObject(v.AsObj())
	}
}

// markObject marks o black-eligible (gray) if it wasn't already
// marked, and enqueues it on the gray worklist so traceReferences can
// blacken it later. Strings and natives have no outgoing references,
// so they're marked directly without ever touching the gray stack.
func (vm *VM) markObject(o Obj) {
	// A nil *ObjString or *ObjUpvalue arrives as a non-nil interface
	// value, so it is checked for separately.
	if o == nil || reflect.ValueOf(o).IsNil() {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true

	switch o.(type) {
	case *ObjString, *ObjNative:
		return
	}
	vm.gray = append(vm.gray, o)
}

// traceReferences repeatedly pops the gray worklist and blackens each
// object by marking its children, until the worklist is empty.
func (vm *VM) traceReferences() {
	for len(vm.gray) > 0 {
		o := vm.gray[len(vm.gray)-1]
		vm.gray = vm.gray[:len(vm.gray)-1]
		accept(o, vm)
	}
}

// The ObjVisitor methods implement blackening: each one marks exactly
// the children spec.md §4.2 names for that object variant.

func (vm *VM) VisitString(*ObjString) {}

func (vm *VM) VisitFunction(f *ObjFunction) {
	vm.markObject(f.Name)
	for _, c := range f.Chunk.constants {
		vm.markValue(c)
	}
}

func (vm *VM) VisitNative(*ObjNative) {}

func (vm *VM) VisitClosure(c *ObjClosure) {
	vm.markObject(c.Function)
	for _, u := range c.Upvalues {
		vm.markObject(u)
	}
}

func (vm *VM) VisitUpvalue(u *ObjUpvalue) {
	vm.markValue(u.Closed)
}

func (vm *VM) VisitClass(c *ObjClass) {
	vm.markObject(c.Name)
	c.Methods.Iterate(func(key *ObjString, value Value) {
		vm.markObject(key)
		vm.markValue(value)
	})
}

func (vm *VM) VisitInstance(i *ObjInstance) {
	vm.markObject(i.Class)
	i.Fields.Iterate(func(key *ObjString, value Value) {
		vm.markObject(key)
		vm.markValue(value)
	})
}

func (vm *VM) VisitBoundMethod(b *ObjBoundMethod) {
	vm.markValue(b.Receiver)
	vm.markObject(b.Method)
}

// sweep walks the object list, freeing (unlinking) every unmarked
// object and resetting every marked object to white for the next
// cycle.
func (vm *VM) sweep() {
	var prev Obj
	cur := vm.objects
	for cur != nil {
		h := cur.header()
		if h.marked {
			h.marked = false
			prev = cur
			cur = h.next
			continue
		}

		unreached := cur
		cur = h.next
		if prev != nil {
			prev.header().next = cur
		} else {
			vm.objects = cur
		}
		vm.bytesAllocated -= objSize(unreached)
	}
}

// keepGrayCompact is a small GC-internal helper exercised by the
// stress-GC path: golang.org/x/exp/slices trims the worklist's
// backing array back down after a large collection so a single
// pathological cycle doesn't keep the gray stack's capacity inflated
// forever.
func (vm *VM) keepGrayCompact() {
	if cap(vm.gray) > 256 && len(vm.gray) == 0 {
		vm.gray = slices.Clip(vm.gray)
	}
}
