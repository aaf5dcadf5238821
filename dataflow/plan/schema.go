// Package plan defines the already-parsed program surface consumed by the
// engine: schemas, scalar expression trees, aggregate specifications,
// relational operator nodes, and program statements. Plans are pure data;
// evaluation lives in the engine package.
package plan

import (
	"fmt"
	"strings"

	"github.com/ominux/raco/dataflow"
)

// Tuple is a fixed-arity row of scalar values matching a Schema.
// Tuples are value types; operators never share mutable tuple state.
type Tuple []interface{}

// Clone returns an independent copy of the tuple.
func (t Tuple) Clone() Tuple {
	c := make(Tuple, len(t))
	copy(c, t)
	return c
}

// Attribute is one named, typed column of a schema.
type Attribute struct {
	Name string
	Type dataflow.ScalarType
}

// Schema is an ordered sequence of attributes. Schemas are immutable once
// a relation is produced from them.
type Schema []Attribute

// NewSchema builds a schema from alternating name/type pairs.
func NewSchema(attrs ...Attribute) Schema {
	return Schema(attrs)
}

// Attr is a convenience constructor for a single attribute.
func Attr(name string, t dataflow.ScalarType) Attribute {
	return Attribute{Name: name, Type: t}
}

// IndexOf returns the position of the named attribute, or -1.
func (s Schema) IndexOf(name string) int {
	for i, a := range s {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the schema contains the named attribute.
func (s Schema) Has(name string) bool {
	return s.IndexOf(name) >= 0
}

// Names returns the attribute names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}

// Concat appends another schema, as produced by a join. Duplicate names
// are a plan error detected by the join operator, not here.
func (s Schema) Concat(other Schema) Schema {
	out := make(Schema, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return out
}

// Prefixed returns the schema with every attribute name prefixed,
// used to rename one side of a self-join.
func (s Schema) Prefixed(prefix string) Schema {
	out := make(Schema, len(s))
	for i, a := range s {
		out[i] = Attribute{Name: prefix + a.Name, Type: a.Type}
	}
	return out
}

// Equal reports whether two schemas have identical names and types in
// identical order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Bindings maps attribute names to the current tuple's values for
// expression evaluation.
func (s Schema) Bindings(t Tuple) Bindings {
	b := make(Bindings, len(s))
	for i, a := range s {
		if i < len(t) {
			b[a.Name] = t[i]
		}
	}
	return b
}

// String renders the schema as "name:type, ...".
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = fmt.Sprintf("%s:%s", a.Name, a.Type)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
