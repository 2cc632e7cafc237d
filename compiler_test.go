package lox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSimpleProgram(t *testing.T) {
	vm := NewVM(NewConfig())
	fn, err := Compile(vm, `print 1 + 1;`)
	require.NoError(t, err)
	assert.Nil(t, fn.Name, "top-level script function has no name")
	assert.Equal(t, 0, fn.Arity)
}

func TestCompileReportsMultipleErrorsAfterSynchronizing(t *testing.T) {
	vm := NewVM(NewConfig())
	_, err := Compile(vm, `
		var = 1;
		var y =;
	`)
	require.Error(t, err)
	ce, ok := err.(*CompileErrors)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(ce.Errors), 2,
		"panic-mode synchronization should let compilation continue past the first error")
}

func TestCompileTopLevelReturnIsAnError(t *testing.T) {
	vm := NewVM(NewConfig())
	_, err := Compile(vm, `return 1;`)
	require.Error(t, err)
	ce := err.(*CompileErrors)
	assert.Contains(t, ce.Errors[0].Message, "Can't return from top-level code.")
}

func TestCompileThisOutsideClassIsAnError(t *testing.T) {
	vm := NewVM(NewConfig())
	_, err := Compile(vm, `print this;`)
	require.Error(t, err)
	ce := err.(*CompileErrors)
	assert.Contains(t, ce.Errors[0].Message, "Can't use 'this' outside of a class.")
}

func TestCompileReadLocalInOwnInitializerIsAnError(t *testing.T) {
	vm := NewVM(NewConfig())
	_, err := Compile(vm, `
		{
			var a = a;
		}
	`)
	require.Error(t, err)
	ce := err.(*CompileErrors)
	assert.Contains(t, ce.Errors[0].Message, "Can't read local variable in its own initializer.")
}

func TestCompileSelfInheritanceIsAnError(t *testing.T) {
	vm := NewVM(NewConfig())
	_, err := Compile(vm, `class Oops < Oops {}`)
	require.Error(t, err)
	ce := err.(*CompileErrors)
	assert.Contains(t, ce.Errors[0].Message, "A class can't inherit from itself.")
}
