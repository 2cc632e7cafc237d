package lox

import (
	"fmt"
	"io"
	"os"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame identifies one running function invocation: its closure,
// its instruction pointer, and the base of its local-variable window
// on the value stack (spec.md §4.4). slotsBase indexes into VM.stack;
// local N inside this frame is VM.stack[slotsBase+N].
type CallFrame struct {
	closure   *ObjClosure
	ip        int
	slotsBase int
}

// VM is the single-threaded, cooperative, stack-based virtual
// machine. It owns the entire heap (reachable through `objects`),
// the globals and intern tables, and every piece of GC bookkeeping,
// matching spec.md §5: one owner, no locking, no concurrency.
type VM struct {
	heap

	stack      []Value
	frames     []CallFrame
	frameCount int

	globals      *table
	openUpvalues *ObjUpvalue
	initString   *ObjString

	compiler *Compiler // enclosing-chain head, rooted during compilation

	stdout io.Writer
	stderr io.Writer
}

// NewVM constructs a VM ready to Interpret source. cfg may be nil, in
// which case NewConfig()'s defaults apply.
func NewVM(cfg *Config) *VM {
	if cfg == nil {
		cfg = NewConfig()
	}
	vm := &VM{
		heap:    *newHeap(cfg),
		stack:   make([]Value, 0, stackMax),
		frames:  make([]CallFrame, 0, framesMax),
		globals: newTable(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	vm.initString = vm.copyString("init")
	defineNatives(vm)
	return vm
}

// push and pop assume stack-discipline callers; they never grow past
// stackMax because the compiler caps recursion depth via frame
// overflow, which is checked in call().
func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	n := len(vm.stack)
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) resetStack() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret compiles and runs source, returning nil on success, a
// *CompileErrors holding every diagnostic if compilation fails, or a
// *RuntimeError if execution aborts.
func (vm *VM) Interpret(source string) error {
	fn, err := Compile(vm, source)
	if err != nil {
		return err
	}

	vm.push(ObjValue(fn))
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(ObjValue(closure))
	if err := vm.callValue(ObjValue(closure), 0); err != nil {
		return err
	}

	return vm.run()
}

func (vm *VM) currentFrame() *CallFrame {
	return &vm.frames[vm.frameCount-1]
}

func (vm *VM) readByte(f *CallFrame) byte {
	b := f.closure.Function.Chunk.code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort(f *CallFrame) uint16 {
	hi := f.closure.Function.Chunk.code[f.ip]
	lo := f.closure.Function.Chunk.code[f.ip+1]
	f.ip += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(f *CallFrame) Value {
	idx := vm.readByte(f)
	return f.closure.Function.Chunk.constants[idx]
}

func (vm *VM) readString(f *CallFrame) *ObjString {
	return vm.readConstant(f).AsObj().(*ObjString)
}

// run executes the dispatch loop: one opcode per iteration, switched
// on directly, exactly as the teacher's vm.go Match loop does for its
// own (very different) opcode set.
func (vm *VM) run() error {
	f := vm.currentFrame()
	trace := vm.cfg.GetBool("vm.trace_execution")

	for {
		if trace {
			vm.traceInstruction(f)
		}

		op := OpCode(vm.readByte(f))

		switch op {
		case OpConstant:
			vm.push(vm.readConstant(f))

		case OpNil:
			vm.push(NilValue)

		case OpTrue:
			vm.push(BoolValue(true))

		case OpFalse:
			vm.push(BoolValue(false))

		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := vm.readByte(f)
			vm.push(vm.stack[f.slotsBase+int(slot)])

		case OpSetLocal:
			slot := vm.readByte(f)
			vm.stack[f.slotsBase+int(slot)] = vm.peek(0)

		case OpGetGlobal:
			name := vm.readString(f)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError(f, "Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)

		case OpDefineGlobal:
			name := vm.readString(f)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case OpSetGlobal:
			name := vm.readString(f)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError(f, "Undefined variable '%s'.", name.Chars)
			}

		case OpGetUpvalue:
			slot := vm.readByte(f)
			vm.push(*f.closure.Upvalues[slot].Location)

		case OpSetUpvalue:
			slot := vm.readByte(f)
			*f.closure.Upvalues[slot].Location = vm.peek(0)

		case OpGetProperty:
			if !vm.peek(0).IsObjType(ObjTypeInstance) {
				return vm.runtimeError(f, "Only instances have properties.")
			}
			inst := vm.peek(0).AsObj().(*ObjInstance)
			name := vm.readString(f)
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if !vm.bindMethod(inst.Class, name) {
				return vm.runtimeError(f, "Undefined property '%s'.", name.Chars)
			}

		case OpSetProperty:
			if !vm.peek(1).IsObjType(ObjTypeInstance) {
				return vm.runtimeError(f, "Only instances have fields.")
			}
			inst := vm.peek(1).AsObj().(*ObjInstance)
			name := vm.readString(f)
			inst.Fields.Set(name, vm.peek(0))
			value := vm.pop()
			vm.pop()
			vm.push(value)

		case OpGetSuper:
			name := vm.readString(f)
			superclass := vm.pop().AsObj().(*ObjClass)
			if !vm.bindMethod(superclass, name) {
				return vm.runtimeError(f, "Undefined property '%s'.", name.Chars)
			}

		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(ValuesEqual(a, b)))

		case OpGreater:
			if err := vm.binaryNumberOp(f, func(a, b float64) Value { return BoolValue(a > b) }); err != nil {
				return err
			}

		case OpLess:
			if err := vm.binaryNumberOp(f, func(a, b float64) Value { return BoolValue(a < b) }); err != nil {
				return err
			}

		case OpAdd:
			if err := vm.add(f); err != nil {
				return err
			}

		case OpSubtract:
			if err := vm.binaryNumberOp(f, func(a, b float64) Value { return NumberValue(a - b) }); err != nil {
				return err
			}

		case OpMultiply:
			if err := vm.binaryNumberOp(f, func(a, b float64) Value { return NumberValue(a * b) }); err != nil {
				return err
			}

		case OpDivide:
			if err := vm.binaryNumberOp(f, func(a, b float64) Value { return NumberValue(a / b) }); err != nil {
				return err
			}

		case OpNot:
			vm.push(BoolValue(vm.pop().IsFalsey()))

		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(f, "Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))

		case OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case OpJump:
			offset := vm.readShort(f)
			f.ip += int(offset)

		case OpJumpIfFalse:
			offset := vm.readShort(f)
			if vm.peek(0).IsFalsey() {
				f.ip += int(offset)
			}

		case OpLoop:
			offset := vm.readShort(f)
			f.ip -= int(offset)

		case OpCall:
			argCount := int(vm.readByte(f))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			f = vm.currentFrame()

		case OpInvoke:
			method := vm.readString(f)
			argCount := int(vm.readByte(f))
			if err := vm.invoke(f, method, argCount); err != nil {
				return err
			}
			f = vm.currentFrame()

		case OpSuperInvoke:
			method := vm.readString(f)
			argCount := int(vm.readByte(f))
			superclass := vm.pop().AsObj().(*ObjClass)
			if err := vm.invokeFromClass(f, superclass, method, argCount); err != nil {
				return err
			}
			f = vm.currentFrame()

		case OpClosure:
			fn := vm.readConstant(f).AsObj().(*ObjFunction)
			closure := vm.newClosure(fn)
			vm.push(ObjValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(f)
				index := vm.readByte(f)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(f.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}

		case OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.slotsBase)
			vm.frameCount--
			vm.frames = vm.frames[:vm.frameCount]
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stack = vm.stack[:f.slotsBase]
			vm.push(result)
			f = vm.currentFrame()

		case OpClass:
			name := vm.readString(f)
			vm.push(ObjValue(vm.newClass(name)))

		case OpInherit:
			superVal := vm.peek(1)
			if !superVal.IsObjType(ObjTypeClass) {
				return vm.runtimeError(f, "Superclass must be a class.")
			}
			superclass := superVal.AsObj().(*ObjClass)
			subclass := vm.peek(0).AsObj().(*ObjClass)
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop() // drop the subclass reference pushed for this op only

		case OpMethod:
			name := vm.readString(f)
			vm.defineMethod(name)

		case OpHalt:
			return nil

		default:
			return vm.runtimeError(f, "Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) binaryNumberOp(f *CallFrame, op func(a, b float64) Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(f, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

func (vm *VM) add(f *CallFrame) error {
	switch {
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(NumberValue(a + b))
		return nil
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop().AsObj().(*ObjString)
		a := vm.pop().AsObj().(*ObjString)
		vm.push(ObjValue(vm.copyString(a.Chars + b.Chars)))
		return nil
	default:
		return vm.runtimeError(f, "Operands must be two numbers or two strings.")
	}
}

func (vm *VM) defineMethod(name *ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}

func (vm *VM) bindMethod(class *ObjClass, name *ObjString) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	bound := vm.newBoundMethod(vm.peek(0), method.AsObj().(*ObjClosure))
	vm.pop()
	vm.push(ObjValue(bound))
	return true
}
