package lox

import (
	"math"
	"strconv"
)

// ValueType discriminates the variants of Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Value is the uniform runtime value the compiler and VM pass around:
// nil, a bool, a 64-bit float, or a heap object reference. It is kept
// as a small tagged struct rather than an interface so that Nil/Bool/
// Number never allocate.
type Value struct {
	typ     ValueType
	boolean bool
	number  float64
	obj     Obj
}

// NilValue is the singular nil value.
var NilValue = Value{typ: ValNil}

func BoolValue(b bool) Value {
	return Value{typ: ValBool, boolean: b}
}

func NumberValue(n float64) Value {
	return Value{typ: ValNumber, number: n}
}

func ObjValue(o Obj) Value {
	return Value{typ: ValObj, obj: o}
}

func (v Value) IsNil() bool    { return v.typ == ValNil }
func (v Value) IsBool() bool   { return v.typ == ValBool }
func (v Value) IsNumber() bool { return v.typ == ValNumber }
func (v Value) IsObj() bool    { return v.typ == ValObj }

func (v Value) AsBool() bool      { return v.boolean }
func (v Value) AsNumber() float64 { return v.number }
func (v Value) AsObj() Obj        { return v.obj }

// IsFalsey implements Lox truthiness: nil and false are falsey,
// everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// ValuesEqual is structural equality by variant; cross-variant
// comparison is always false, including NaN against itself.
func ValuesEqual(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case ValNil:
		return true
	case ValBool:
		return a.boolean == b.boolean
	case ValNumber:
		return a.number == b.number
	case ValObj:
		return objEqual(a.obj, b.obj)
	default:
		return false
	}
}

// objEqual reduces string equality to pointer identity (interning
// guarantees this) and falls back to identity for every other object
// kind.
func objEqual(a, b Obj) bool {
	if as, ok := a.(*ObjString); ok {
		bs, ok := b.(*ObjString)
		return ok && as == bs
	}
	return a == b
}

// IsString reports whether v holds a heap string.
func (v Value) IsString() bool {
	if v.typ != ValObj {
		return false
	}
	_, ok := v.obj.(*ObjString)
	return ok
}

// IsObjType reports whether v holds a heap object of the given type.
func (v Value) IsObjType(t ObjType) bool {
	return v.typ == ValObj && v.obj != nil && v.obj.objType() == t
}

// String renders a Value the way `print` and runtime-error messages
// do.
func (v Value) String() string {
	switch v.typ {
	case ValNil:
		return "nil"
	case ValBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.number)
	case ValObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
}
