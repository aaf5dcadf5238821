package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// Relation is a named, immutable, unordered multiset of tuples sharing
// one schema. Relations are the only unit of production and consumption
// between operators; no operator may depend on tuple order.
type Relation struct {
	name   string
	schema plan.Schema
	tuples []plan.Tuple
}

// NewRelation constructs a relation after checking every tuple against
// the schema. A tuple whose arity or types disagree fails with
// SchemaMismatchError.
func NewRelation(name string, schema plan.Schema, tuples []plan.Tuple) (*Relation, error) {
	for i, t := range tuples {
		if len(t) != len(schema) {
			return nil, &SchemaMismatchError{
				Relation: name,
				Detail:   fmt.Sprintf("tuple %d has arity %d, schema %s has arity %d", i, len(t), schema, len(schema)),
			}
		}
		for j, v := range t {
			if !dataflow.Conforms(v, schema[j].Type) {
				return nil, &SchemaMismatchError{
					Relation: name,
					Detail:   fmt.Sprintf("tuple %d attribute %q: value %v (%T) does not conform to %s", i, schema[j].Name, v, v, schema[j].Type),
				}
			}
		}
	}
	return &Relation{name: name, schema: schema, tuples: tuples}, nil
}

// newRelationUnchecked builds a relation from operator output whose
// conformance is guaranteed by construction.
func newRelationUnchecked(name string, schema plan.Schema, tuples []plan.Tuple) *Relation {
	return &Relation{name: name, schema: schema, tuples: tuples}
}

// Name returns the binding name, or "" for anonymous intermediates.
func (r *Relation) Name() string { return r.name }

// WithName returns the same relation value under a new binding name.
func (r *Relation) WithName(name string) *Relation {
	return &Relation{name: name, schema: r.schema, tuples: r.tuples}
}

// Schema returns the relation's schema.
func (r *Relation) Schema() plan.Schema { return r.schema }

// Size returns the tuple count, counting duplicates.
func (r *Relation) Size() int { return len(r.tuples) }

// IsEmpty reports whether the relation has no tuples.
func (r *Relation) IsEmpty() bool { return len(r.tuples) == 0 }

// Tuples returns the backing tuple slice. Callers must treat it as
// read-only.
func (r *Relation) Tuples() []plan.Tuple { return r.tuples }

// Iterator provides streaming access to tuples.
type Iterator interface {
	Next() bool
	Tuple() plan.Tuple
	Close() error
}

// Iterator returns a fresh iterator over the tuples. Every call starts a
// new pass, so one relation can feed both sides of a self-join.
func (r *Relation) Iterator() Iterator {
	return &sliceIterator{tuples: r.tuples, pos: -1}
}

type sliceIterator struct {
	tuples []plan.Tuple
	pos    int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.tuples)
}

func (it *sliceIterator) Tuple() plan.Tuple {
	if it.pos >= 0 && it.pos < len(it.tuples) {
		return it.tuples[it.pos]
	}
	return nil
}

func (it *sliceIterator) Close() error { return nil }

// Contains reports whether the relation contains a tuple equal to t.
func (r *Relation) Contains(t plan.Tuple) bool {
	key := NewTupleKeyFull(t)
	for _, have := range r.tuples {
		if NewTupleKeyFull(have).Equal(key) {
			return true
		}
	}
	return false
}

// counted returns a map from tuple key to multiplicity.
func (r *Relation) counted() *TupleKeyMap {
	m := NewTupleKeyMapWithCapacity(len(r.tuples))
	for _, t := range r.tuples {
		key := NewTupleKeyFull(t)
		if n, ok := m.Get(key); ok {
			m.Put(key, n.(int)+1)
		} else {
			m.Put(key, 1)
		}
	}
	return m
}

// EqualMultiset reports whether two relations hold the same tuples with
// the same multiplicities. Schemas must match exactly.
func (r *Relation) EqualMultiset(other *Relation) bool {
	if !r.schema.Equal(other.schema) {
		return false
	}
	if len(r.tuples) != len(other.tuples) {
		return false
	}
	counts := r.counted()
	equal := true
	other.counted().Range(func(values []interface{}, value interface{}) bool {
		n, ok := counts.Get(TupleKey{hash: hashValues(values), values: values})
		if !ok || n.(int) != value.(int) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Sorted returns the tuples in the total value order, primary key first
// attribute, then each following attribute. Used by tests and formatting;
// operators never rely on it.
func (r *Relation) Sorted() []plan.Tuple {
	sorted := make([]plan.Tuple, len(r.tuples))
	copy(sorted, r.tuples)

	sort.Slice(sorted, func(i, j int) bool {
		for k := 0; k < len(sorted[i]) && k < len(sorted[j]); k++ {
			cmp := dataflow.CompareValues(sorted[i][k], sorted[j][k])
			if cmp < 0 {
				return true
			} else if cmp > 0 {
				return false
			}
		}
		return len(sorted[i]) < len(sorted[j])
	})

	return sorted
}

// String returns a compact colored summary for logging.
func (r *Relation) String() string {
	count := r.Size()
	var countStr string
	switch {
	case count == 0:
		countStr = color.RedString("%d", count)
	case count < 100:
		countStr = color.GreenString("%d", count)
	case count < 10000:
		countStr = color.YellowString("%d", count)
	default:
		countStr = color.RedString("%d", count)
	}

	name := r.name
	if name == "" {
		name = "_"
	}

	return fmt.Sprintf("%s%s%s%s%s %s%s",
		color.BlueString("Relation(%s [", name),
		color.CyanString(strings.Join(r.schema.Names(), " ")),
		color.BlueString("]"),
		color.BlueString(", "),
		countStr,
		"Tuples",
		color.BlueString(")"))
}

// Table returns a formatted markdown table representation.
func (r *Relation) Table() string {
	formatter := NewTableFormatter()
	return formatter.FormatRelation(r)
}
