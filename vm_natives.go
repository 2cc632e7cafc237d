package lox

import "time"

// defineNatives registers every native function a fresh VM starts
// with: the host clock spec.md §6 requires, plus the two natives
// SPEC_FULL §4 adds (str/len) to make the stdlib's absence of a
// stringification primitive and container length accessor bearable in
// a language with no collection type beyond strings.
func defineNatives(vm *VM) {
	defineNative(vm, "clock", 0, nativeClock)
	defineNative(vm, "str", 1, nativeStr)
	defineNative(vm, "len", 1, nativeLen)
}

func defineNative(vm *VM, name string, arity int, fn NativeFn) {
	n := vm.newNative(name, arity, fn)
	nameStr := vm.copyString(name)
	vm.push(ObjValue(nameStr))
	vm.push(ObjValue(n))
	vm.globals.Set(nameStr, vm.peek(0))
	vm.pop()
	vm.pop()
}

func nativeClock(vm *VM, args []Value) Value {
	return NumberValue(float64(time.Now().UnixNano()) / float64(time.Second))
}

// nativeStr renders any value the way `print` would, as an interned
// string.
func nativeStr(vm *VM, args []Value) Value {
	return ObjValue(vm.copyString(args[0].String()))
}

// nativeLen reports a string's byte length. Natives can't raise a
// guest-visible exception (SPEC_FULL §4), so a non-string argument
// just yields nil rather than aborting the VM.
func nativeLen(vm *VM, args []Value) Value {
	if !args[0].IsString() {
		return NilValue
	}
	s := args[0].AsObj().(*ObjString)
	return NumberValue(float64(len(s.Chars)))
}
