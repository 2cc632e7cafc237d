package lox

// table is the open-addressing hash table shared by globals,
// per-instance fields, and class method tables (spec.md §4.1).
// Keyed by *ObjString identity (interning reduces key equality to a
// pointer compare), linear probing, power-of-two capacity, 0.75 load
// factor, and tombstone deletion so probe chains survive deletes.
type table struct {
	count    int // live entries + tombstones
	entries  []tableEntry
}

type tableEntry struct {
	key   *ObjString
	value Value
	// tombstone marks a deleted slot: key == nil, value == Bool(true).
	// A slot with key == nil and value == NilValue is genuinely empty.
}

func newTable() *table {
	return &table{}
}

const tableMaxLoad = 0.75

func (t *table) isTombstone(e *tableEntry) bool {
	return e.key == nil && e.value.IsBool() && e.value.AsBool()
}

// findEntry returns the slot matching key, or else the first
// tombstone seen along the probe chain (preferred as the insertion
// target so probe continuity is preserved), or else the terminating
// empty slot.
func findEntry(entries []tableEntry, key *ObjString) *tableEntry {
	capacity := uint32(len(entries))
	index := key.Hash % capacity
	var tombstone *tableEntry

	for {
		e := &entries[index]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				// Truly empty: return the tombstone we passed, if any.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			// Tombstone.
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		index = (index + 1) % capacity
	}
}

func (t *table) adjustCapacity(capacity int) {
	entries := make([]tableEntry, capacity)
	for i := range entries {
		entries[i] = tableEntry{key: nil, value: NilValue}
	}

	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		dst := findEntry(entries, e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
	t.entries = entries
}

// Get looks up key, returning (value, true) if present.
func (t *table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return NilValue, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return NilValue, false
	}
	return e.value, true
}

// Set inserts or overwrites key -> value, returning true if this
// created a brand-new entry (as opposed to overwriting one).
func (t *table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		capacity := growCapacity(len(t.entries))
		t.adjustCapacity(capacity)
	}

	e := findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && e.value.IsNil() {
		t.count++
	}
	e.key = key
	e.value = value
	return isNewKey
}

// Delete removes key via tombstoning, preserving probe continuity for
// any other key that hashed into the same chain.
func (t *table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolValue(true)
	return true
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// AddAll copies every live entry of src into t, used by `Inherit` to
// flatten a superclass's method table into its subclass.
func (t *table) AddAll(src *table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// findStringInterned is the intern table's specialized lookup: walks
// the probe chain comparing hash+length+bytes instead of identity,
// since this is exactly the table that establishes identity in the
// first place.
func (t *table) findStringInterned(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		e := &t.entries[index]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				return nil
			}
			// tombstone: keep probing
		case e.key.Hash == hash && e.key.Chars == chars:
			return e.key
		}
		index = (index + 1) % capacity
	}
}

// removeWhiteKeys deletes every entry whose key is unmarked, called
// between the GC's mark and sweep phases so the intern table holds
// its strings weakly.
func (t *table) removeWhiteKeys() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.h.marked {
			t.Delete(e.key)
		}
	}
}

// Iterate calls fn for every live key/value pair. fn must not mutate
// the table.
func (t *table) Iterate(fn func(key *ObjString, value Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}
