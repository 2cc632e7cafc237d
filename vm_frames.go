package lox

import "fmt"

// callValue dispatches a call by the callee's runtime type (spec.md
// §4.4's call_value table): Closure recurses into call, Class
// constructs an Instance and optionally runs `init`, BoundMethod
// rebinds the receiver and calls through to its Closure, Native
// invokes the host function directly, and everything else is a
// runtime error.
func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError(vm.currentFrameOrNil(), "Can only call functions and classes.")
	}

	switch obj := callee.AsObj().(type) {
	case *ObjClosure:
		return vm.call(obj, argCount)

	case *ObjClass:
		instIdx := len(vm.stack) - argCount - 1
		vm.stack[instIdx] = ObjValue(vm.newInstance(obj))
		if initializer, ok := obj.Methods.Get(vm.initString); ok {
			return vm.call(initializer.AsObj().(*ObjClosure), argCount)
		}
		if argCount != 0 {
			return vm.runtimeError(vm.currentFrameOrNil(), "Expected 0 arguments but got %d.", argCount)
		}
		return nil

	case *ObjBoundMethod:
		idx := len(vm.stack) - argCount - 1
		vm.stack[idx] = obj.Receiver
		return vm.call(obj.Method, argCount)

	case *ObjNative:
		if argCount != obj.Arity {
			return vm.runtimeError(vm.currentFrameOrNil(), "Expected %d arguments but got %d.", obj.Arity, argCount)
		}
		args := vm.stack[len(vm.stack)-argCount:]
		result := obj.Fn(vm, args)
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(result)
		return nil

	default:
		return vm.runtimeError(vm.currentFrameOrNil(), "Can only call functions and classes.")
	}
}

func (vm *VM) currentFrameOrNil() *CallFrame {
	if vm.frameCount == 0 {
		return nil
	}
	return vm.currentFrame()
}

// call pushes a new CallFrame for closure, checking arity and the
// 64-frame recursion limit first.
func (vm *VM) call(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError(vm.currentFrameOrNil(), "Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError(vm.currentFrameOrNil(), "Stack overflow.")
	}
	vm.frames = append(vm.frames, CallFrame{
		closure:   closure,
		ip:        0,
		slotsBase: len(vm.stack) - argCount - 1,
	})
	vm.frameCount++
	return nil
}

// invoke is GetProperty+Call fused: it first checks whether `name` is
// a field holding a callable (a field shadowing a method), and only
// falls back to direct method dispatch — skipping the BoundMethod
// allocation — when it's a genuine method (spec.md §4.4 "Invoke").
func (vm *VM) invoke(f *CallFrame, name *ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsObjType(ObjTypeInstance) {
		return vm.runtimeError(f, "Only instances have methods.")
	}
	inst := receiver.AsObj().(*ObjInstance)

	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[len(vm.stack)-argCount-1] = v
		return vm.callValue(v, argCount)
	}

	return vm.invokeFromClass(f, inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(f *CallFrame, class *ObjClass, name *ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError(f, "Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsObj().(*ObjClosure), argCount)
}

// captureUpvalue reuses an already-open upvalue for `slot` if one
// exists, preserving the invariant that at most one open Upvalue
// exists per live stack slot; otherwise it inserts a new one into the
// descending-by-location open list.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.openSlot > slot {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.openSlot == slot {
		return cur
	}

	created := vm.newUpvalue(slot)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above stack index
// `last`, copying its value out of the stack and splicing it out of
// the open list (spec.md §4.4).
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.openSlot >= last {
		u := vm.openUpvalues
		u.Closed = *u.Location
		u.Location = &u.Closed
		u.isOpen = false
		vm.openUpvalues = u.NextOpen
		u.NextOpen = nil
	}
}

// runtimeError formats the error message, appends the frame-by-frame
// trace (spec.md §4.4's "[line N] in NAME"), resets the stack, and
// returns the resulting *RuntimeError. The VM remains usable for a
// subsequent Interpret call afterward.
func (vm *VM) runtimeError(_ *CallFrame, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	var trace []string
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Function
		line := fn.Chunk.LineAt(fr.ip - 1)
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}
