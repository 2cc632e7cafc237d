package lox

import (
	"fmt"
	"strings"
)

// ObjType discriminates heap object variants. Mirrors the teacher's
// Value interface + visitor split (value.go's Type()/Accept), applied
// here to the heap rather than to parse values.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
)

// gcHeader is the common header every heap object carries: a GC mark
// bit and an intrusive next-pointer into the allocator's object list.
// Every concrete Obj embeds one by value and exposes it through
// header() so the GC can walk the list and flip mark bits without
// knowing the concrete type.
type gcHeader struct {
	marked bool
	next   Obj
}

// Obj is the interface every heap value implements. It plays the same
// role here that the teacher's Value interface plays for parse
// results: a small, closed set of variants dispatched through methods
// rather than a type switch at every call site.
type Obj interface {
	objType() ObjType
	header() *gcHeader
	String() string
}

// ObjVisitor is the GC blackening contract: accept hands a gray object
// to the visitor method for its type, which marks its children. One method per ObjType,
// directly mirroring the teacher's ValueVisitor (VisitString/
// VisitSequence/VisitNode/VisitError) but over the heap instead of
// over parse trees.
type ObjVisitor interface {
	VisitString(*ObjString)
	VisitFunction(*ObjFunction)
	VisitNative(*ObjNative)
	VisitClosure(*ObjClosure)
	VisitUpvalue(*ObjUpvalue)
	VisitClass(*ObjClass)
	VisitInstance(*ObjInstance)
	VisitBoundMethod(*ObjBoundMethod)
}

func accept(o Obj, v ObjVisitor) {
	switch t := o.(type) {
	case *ObjString:
		v.VisitString(t)
	case *ObjFunction:
		v.VisitFunction(t)
	case *ObjNative:
		v.VisitNative(t)
	case *ObjClosure:
		v.VisitClosure(t)
	case *ObjUpvalue:
		v.VisitUpvalue(t)
	case *ObjClass:
		v.VisitClass(t)
	case *ObjInstance:
		v.VisitInstance(t)
	case *ObjBoundMethod:
		v.VisitBoundMethod(t)
	default:
		panic(fmt.Sprintf("lox: accept: unknown object type %T", o))
	}
}

// ObjString is an immutable, interned byte buffer with a precomputed
// FNV-1a hash.
type ObjString struct {
	h     gcHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) objType() ObjType  { return ObjTypeString }
func (s *ObjString) header() *gcHeader { return &s.h }
func (s *ObjString) String() string    { return s.Chars }

func fnv1a(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	hash := offsetBasis
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime
	}
	return hash
}

// ObjFunction is an immutable, fully-compiled function body.
type ObjFunction struct {
	h            gcHeader
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) objType() ObjType  { return ObjTypeFunction }
func (f *ObjFunction) header() *gcHeader { return &f.h }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is a host callable: given the VM and its arguments, it
// returns a result Value. Natives never raise guest-visible errors;
// see SPEC_FULL §4 for the rationale.
type NativeFn func(vm *VM, args []Value) Value

// ObjNative wraps a host function registered under a global name.
type ObjNative struct {
	h     gcHeader
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *ObjNative) objType() ObjType  { return ObjTypeNative }
func (n *ObjNative) header() *gcHeader { return &n.h }
func (n *ObjNative) String() string    { return fmt.Sprintf("<native fn %s>", n.Name) }

// ObjUpvalue is either open (Location points into a live stack slot)
// or closed (Closed holds the value by value, Location points at
// &Closed). NextOpen threads the open-upvalue list, kept sorted by
// descending stack address.
type ObjUpvalue struct {
	h gcHeader
	// openSlot is the stack index Location aliases while open; it lets
	// the VM keep the open-upvalue list ordered and find-or-reuse an
	// existing upvalue for a slot without resorting to raw pointer
	// arithmetic over the growable value stack.
	openSlot int
	isOpen   bool
	Location *Value
	Closed   Value
	NextOpen *ObjUpvalue
}

func (u *ObjUpvalue) objType() ObjType  { return ObjTypeUpvalue }
func (u *ObjUpvalue) header() *gcHeader { return &u.h }
func (u *ObjUpvalue) String() string    { return "<upvalue>" }

// ObjClosure pairs a Function with its captured Upvalues, one slot
// per Function.UpvalueCount.
type ObjClosure struct {
	h        gcHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) objType() ObjType  { return ObjTypeClosure }
func (c *ObjClosure) header() *gcHeader { return &c.h }
func (c *ObjClosure) String() string    { return c.Function.String() }

// ObjClass carries its own flattened method table: inheritance copies
// the superclass's methods in at class-declaration time, so method
// lookup at runtime never walks a superclass chain.
type ObjClass struct {
	h       gcHeader
	Name    *ObjString
	Methods *table
}

func (c *ObjClass) objType() ObjType  { return ObjTypeClass }
func (c *ObjClass) header() *gcHeader { return &c.h }
func (c *ObjClass) String() string    { return c.Name.Chars }

// ObjInstance is a Class reference plus a field table.
type ObjInstance struct {
	h      gcHeader
	Class  *ObjClass
	Fields *table
}

func (i *ObjInstance) objType() ObjType  { return ObjTypeInstance }
func (i *ObjInstance) header() *gcHeader { return &i.h }
func (i *ObjInstance) String() string    { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }

// ObjBoundMethod pairs a receiver Value with the Closure implementing
// the method, materialized by GetProperty when a method is read (but
// not called) off an instance.
type ObjBoundMethod struct {
	h        gcHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) objType() ObjType  { return ObjTypeBoundMethod }
func (b *ObjBoundMethod) header() *gcHeader { return &b.h }
func (b *ObjBoundMethod) String() string    { return b.Method.String() }

// functionSignature renders a parameter list for debug output; unused
// by the VM itself but handy for tests that assert on disassembly.
func functionSignature(f *ObjFunction) string {
	var sb strings.Builder
	sb.WriteString(f.String())
	fmt.Fprintf(&sb, "/%d", f.Arity)
	return sb.String()
}
