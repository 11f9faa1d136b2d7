// Package table implements the open-addressed hash table described in
// spec.md §4.1/§9: a single data structure, parameterized over key and
// value type, that backs string interning, the globals table, instance
// field tables and class method tables alike. Only the interning use
// ignores the value slot.
//
// Grounded on original_source/src/table.c: linear probing with tombstone
// deletion, capacity doubling at a fixed max load factor, and a single
// delete path that always decrements the live entry count (see
// SPEC_FULL.md's resolution of the "Ambiguity" design note).
package table

// Key is the constraint on table keys: comparable by == (heap objects
// compare by identity, interned strings' identity is equivalent to content
// equality) and able to report their own hash.
type Key interface {
	comparable
	Hash() uint32
}

const maxLoad = 0.75

type entry[K Key, V any] struct {
	key       K
	val       V
	present   bool // true once a key has been stored here
	tombstone bool // true if the key was deleted; keeps the probe chain intact
}

// Table is an open-addressed hash table with power-of-two capacity.
type Table[K Key, V any] struct {
	entries []entry[K, V]
	count   int // number of live (non-tombstone) entries
}

// Len returns the number of live entries.
func (t *Table[K, V]) Len() int { return t.count }

func (t *Table[K, V]) findEntry(entries []entry[K, V], key K) int {
	cap := uint32(len(entries))
	idx := key.Hash() & (cap - 1)
	var tombstone int = -1
	for {
		e := &entries[idx]
		if !e.present {
			if !e.tombstone {
				if tombstone != -1 {
					return tombstone
				}
				return int(idx)
			}
			if tombstone == -1 {
				tombstone = int(idx)
			}
		} else if e.key == key {
			return int(idx)
		}
		idx = (idx + 1) & (cap - 1)
	}
}

func (t *Table[K, V]) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry[K, V], newCap)
	for i := range t.entries {
		old := &t.entries[i]
		if !old.present {
			continue
		}
		idx := t.findEntry(newEntries, old.key)
		newEntries[idx].key = old.key
		newEntries[idx].val = old.val
		newEntries[idx].present = true
	}
	t.entries = newEntries
}

// Set stores val under key, returning true if key was already present
// (and live) in the table.
func (t *Table[K, V]) Set(key K, val V) bool {
	if float64(t.count+1) > maxLoad*float64(len(t.entries)) {
		t.grow()
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	existed := e.present && !e.tombstone
	if !existed {
		t.count++
	}
	e.key = key
	e.val = val
	e.present = true
	e.tombstone = false
	return existed
}

// Get returns the value stored under key, and whether it was found.
func (t *Table[K, V]) Get(key K) (V, bool) {
	var zero V
	if len(t.entries) == 0 {
		return zero, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if !e.present || e.tombstone {
		return zero, false
	}
	return e.val, true
}

// Has reports whether key is present, without retrieving its value.
func (t *Table[K, V]) Has(key K) bool {
	_, ok := t.Get(key)
	return ok
}

// Delete removes key from the table, leaving a tombstone so later probe
// chains through this slot stay intact. It returns the deleted value and
// whether the key was present.
func (t *Table[K, V]) Delete(key K) (V, bool) {
	var zero V
	if len(t.entries) == 0 {
		return zero, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if !e.present || e.tombstone {
		return zero, false
	}
	val := e.val
	e.present = false
	e.tombstone = true
	var zeroKey K
	e.key = zeroKey
	e.val = zero
	t.count--
	return val, true
}

// FindString looks up an interned string equal to (length, hash, contents)
// without already holding a *String key. It is used exclusively by the
// string interning table, which is why it lives here rather than in
// lang/value: the probe needs raw content comparison, not key equality,
// the one operation a generic Table[K,V] cannot express for a K that is a
// pointer to heap-allocated content.
func (t *Table[K, V]) FindString(hash uint32, equalsContent func(k K) bool) (K, bool) {
	var zero K
	if len(t.entries) == 0 {
		return zero, false
	}
	cap := uint32(len(t.entries))
	idx := hash & (cap - 1)
	for {
		e := &t.entries[idx]
		if !e.present {
			if !e.tombstone {
				return zero, false
			}
		} else if equalsContent(e.key) {
			return e.key, true
		}
		idx = (idx + 1) & (cap - 1)
	}
}

// Each calls fn for every live entry. fn must not mutate the table.
func (t *Table[K, V]) Each(fn func(key K, val V)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.present && !e.tombstone {
			fn(e.key, e.val)
		}
	}
}

// RemoveUnreachable deletes every live entry whose key does not satisfy
// keep. Used by the garbage collector to sweep the interned-string table
// (spec.md §4.4 "collect_garbage": table_remove_unmarked_object).
func (t *Table[K, V]) RemoveUnreachable(keep func(key K) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.present && !e.tombstone && !keep(e.key) {
			t.Delete(e.key)
		}
	}
}
