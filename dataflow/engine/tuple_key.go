package engine

import (
	"math"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// TupleKey is a hashable key over a tuple or a subset of its positions.
// It hashes the underlying values directly instead of building strings.
type TupleKey struct {
	hash   uint64
	values []interface{}
}

// NewTupleKey creates a key from specific tuple positions.
func NewTupleKey(t plan.Tuple, indices []int) TupleKey {
	if len(indices) == 1 {
		val := t[indices[0]]
		return TupleKey{
			hash:   hashValue(val),
			values: []interface{}{val},
		}
	}

	values := make([]interface{}, len(indices))
	for i, idx := range indices {
		values[i] = t[idx]
	}
	return TupleKey{
		hash:   hashValues(values),
		values: values,
	}
}

// NewTupleKeyFull creates a key from an entire tuple. The tuple is
// referenced, not copied; tuples are immutable in engine usage.
func NewTupleKeyFull(t plan.Tuple) TupleKey {
	return TupleKey{
		hash:   hashValues(t),
		values: t,
	}
}

// hashValues computes an FNV-1a hash over a slice of values.
func hashValues(values []interface{}) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for _, v := range values {
		hash ^= hashValue(v)
		hash *= prime
	}

	return hash
}

// hashValue hashes a single scalar without string conversion. Int and
// float values that compare equal must hash equally, so integral floats
// hash through their int64 value.
func hashValue(v interface{}) uint64 {
	switch val := v.(type) {
	case string:
		return hashString(val)
	case int:
		return uint64(int64(val))
	case int64:
		return uint64(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return uint64(int64(val))
		}
		return math.Float64bits(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case nil:
		return 0
	default:
		return 0
	}
}

// hashString hashes a string without allocation.
func hashString(s string) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime
	}

	return hash
}

// Equal checks if two keys are equal.
func (k TupleKey) Equal(other TupleKey) bool {
	if k.hash != other.hash {
		return false
	}
	if len(k.values) != len(other.values) {
		return false
	}
	for i, v1 := range k.values {
		if !dataflow.ValuesEqual(v1, other.values[i]) {
			return false
		}
	}
	return true
}

// TupleKeyMap is a hash map keyed by TupleKey, with collision buckets
// under the native Go map.
type TupleKeyMap struct {
	m map[uint64][]mapEntry
}

type mapEntry struct {
	values []interface{}
	value  interface{}
}

// NewTupleKeyMap creates an empty TupleKeyMap.
func NewTupleKeyMap() *TupleKeyMap {
	return &TupleKeyMap{m: make(map[uint64][]mapEntry)}
}

// NewTupleKeyMapWithCapacity pre-sizes the map for expectedSize entries.
func NewTupleKeyMapWithCapacity(expectedSize int) *TupleKeyMap {
	return &TupleKeyMap{m: make(map[uint64][]mapEntry, expectedSize)}
}

// Put adds or updates a key-value pair.
func (m *TupleKeyMap) Put(key TupleKey, value interface{}) {
	entries := m.m[key.hash]
	for i := range entries {
		if tupleValuesEqual(entries[i].values, key.values) {
			entries[i].value = value
			return
		}
	}
	m.m[key.hash] = append(entries, mapEntry{values: key.values, value: value})
}

// Get retrieves a value by key.
func (m *TupleKeyMap) Get(key TupleKey) (interface{}, bool) {
	entries, ok := m.m[key.hash]
	if !ok {
		return nil, false
	}
	for _, entry := range entries {
		if tupleValuesEqual(entry.values, key.values) {
			return entry.value, true
		}
	}
	return nil, false
}

// Exists checks if a key exists.
func (m *TupleKeyMap) Exists(key TupleKey) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of distinct keys.
func (m *TupleKeyMap) Len() int {
	n := 0
	for _, entries := range m.m {
		n += len(entries)
	}
	return n
}

// Range calls fn for every key-value pair until fn returns false.
// Iteration order is unspecified; callers must not depend on it.
func (m *TupleKeyMap) Range(fn func(values []interface{}, value interface{}) bool) {
	for _, entries := range m.m {
		for _, entry := range entries {
			if !fn(entry.values, entry.value) {
				return
			}
		}
	}
}

func tupleValuesEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !dataflow.ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
