package lox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCapture interprets source against a fresh VM, returning whatever
// was printed to stdout and the error Interpret produced.
func runCapture(t *testing.T, source string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	vm := NewVM(NewConfig())
	vm.stdout = &out
	err := vm.Interpret(source)
	return out.String(), err
}

func TestVMArithmeticPrecedence(t *testing.T) {
	out, err := runCapture(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestVMStringInterningEquality(t *testing.T) {
	out, err := runCapture(t, `
		var a = "hello" + " " + "world";
		var b = "hello world";
		print a == b;
	`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestVMClosureCapturesCounter(t *testing.T) {
	out, err := runCapture(t, `
		fun makeCounter() {
			var i = 0;
			fun count() {
				i = i + 1;
				return i;
			}
			return count;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestVMSingleInheritanceMethodDispatch(t *testing.T) {
	out, err := runCapture(t, `
		class Animal {
			speak() {
				print "...";
			}
			describe() {
				this.speak();
			}
		}
		class Dog < Animal {
			speak() {
				print "Woof";
			}
		}
		var d = Dog();
		d.describe();
	`)
	require.NoError(t, err)
	assert.Equal(t, "Woof\n", out)
}

func TestVMWhileLoop(t *testing.T) {
	out, err := runCapture(t, `
		var i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestVMInitializer(t *testing.T) {
	out, err := runCapture(t, `
		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
			sum() {
				return this.x + this.y;
			}
		}
		var p = Point(3, 4);
		print p.sum();
	`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestVMCompileErrorDuplicateLocal(t *testing.T) {
	_, err := runCapture(t, `
		{
			var a = 1;
			var a = 2;
		}
	`)
	require.Error(t, err)
	ce, ok := err.(*CompileErrors)
	require.True(t, ok)
	require.Len(t, ce.Errors, 1)
	assert.Contains(t, ce.Errors[0].Message, "Already a variable with this name")
}

func TestVMRuntimeErrorArityMismatch(t *testing.T) {
	_, err := runCapture(t, `
		fun add(a, b) { return a + b; }
		add(1);
	`)
	require.Error(t, err)
	re, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Contains(t, re.Message, "Expected 2 arguments but got 1.")
}

func TestVMRuntimeErrorTypeMismatch(t *testing.T) {
	_, err := runCapture(t, `"str" - 1;`)
	require.Error(t, err)
	re, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Contains(t, re.Message, "Operands must be numbers.")
}

func TestVMForLoop(t *testing.T) {
	out, err := runCapture(t, `
		for (var i = 0; i < 3; i = i + 1) {
			print i;
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestVMLogicalOperators(t *testing.T) {
	out, err := runCapture(t, `
		print true and false;
		print false or "fallback";
	`)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{"false", "fallback"}, "\n")+"\n", out)
}

func TestVMNatives(t *testing.T) {
	out, err := runCapture(t, `
		print len("hello");
		print str(1 + 2);
	`)
	require.NoError(t, err)
	assert.Equal(t, "5\n3\n", out)
}

func TestVMSuperCall(t *testing.T) {
	out, err := runCapture(t, `
		class A {
			greet() {
				print "A greets";
			}
		}
		class B < A {
			greet() {
				super.greet();
				print "B greets";
			}
		}
		B().greet();
	`)
	require.NoError(t, err)
	assert.Equal(t, "A greets\nB greets\n", out)
}
