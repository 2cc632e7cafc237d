package lox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strKey(s string) *ObjString {
	return &ObjString{Chars: s, Hash: fnv1a(s)}
}

func TestTableSetGetDelete(t *testing.T) {
	tbl := newTable()
	key := strKey("answer")

	isNew := tbl.Set(key, NumberValue(42))
	assert.True(t, isNew)

	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42.0, v.AsNumber())

	isNew = tbl.Set(key, NumberValue(43))
	assert.False(t, isNew, "overwriting an existing key must not report new")

	ok = tbl.Delete(key)
	assert.True(t, ok)
	_, ok = tbl.Get(key)
	assert.False(t, ok)
}

func TestTableTombstoneSurvivesProbeChain(t *testing.T) {
	tbl := newTable()
	// Force a handful of entries into the same small table so at least
	// one pair collides, then delete one and confirm the other is still
	// reachable despite probing through the tombstone.
	keys := make([]*ObjString, 0, 20)
	for i := 0; i < 20; i++ {
		k := strKey(string(rune('a' + i)))
		keys = append(keys, k)
		tbl.Set(k, NumberValue(float64(i)))
	}
	tbl.Delete(keys[0])
	for i := 1; i < len(keys); i++ {
		v, ok := tbl.Get(keys[i])
		require.True(t, ok, "key %d should still be reachable", i)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestTableAddAllFlattenInheritance(t *testing.T) {
	// Keys are compared by identity, so each key object is reused for
	// lookup, the way interning guarantees in the VM.
	speak := strKey("speak")
	bark := strKey("bark")

	base := newTable()
	base.Set(speak, BoolValue(true))

	derived := newTable()
	derived.Set(bark, BoolValue(true))
	derived.AddAll(base)

	_, ok := derived.Get(speak)
	assert.True(t, ok)
	_, ok = derived.Get(bark)
	assert.True(t, ok)
}

func TestTableFindStringInterned(t *testing.T) {
	tbl := newTable()
	s := strKey("hello")
	tbl.Set(s, BoolValue(true))

	found := tbl.findStringInterned("hello", fnv1a("hello"))
	require.NotNil(t, found)
	assert.Same(t, s, found)

	assert.Nil(t, tbl.findStringInterned("goodbye", fnv1a("goodbye")))
}

func TestTableRemoveWhiteKeys(t *testing.T) {
	tbl := newTable()
	marked := strKey("kept")
	marked.h.marked = true
	unmarked := strKey("swept")

	tbl.Set(marked, BoolValue(true))
	tbl.Set(unmarked, BoolValue(true))

	tbl.removeWhiteKeys()

	_, ok := tbl.Get(marked)
	assert.True(t, ok)
	_, ok = tbl.Get(unmarked)
	assert.False(t, ok)
}
