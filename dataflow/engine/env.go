package engine

import (
	"fmt"
	"sort"
)

// Env is the binding environment mapping relation names to relation
// values. Relation names are not globals; every operator evaluation
// receives an Env explicitly, and the fixpoint controller swaps a
// snapshot in atomically between iterations.
type Env struct {
	bindings map[string]*Relation
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]*Relation)}
}

// Bind binds a name to a relation value for the rest of the current
// iteration. Rebinding replaces the whole value; relations themselves
// stay immutable.
func (e *Env) Bind(name string, rel *Relation) {
	e.bindings[name] = rel.WithName(name)
}

// Lookup resolves a bound relation name.
func (e *Env) Lookup(name string) (*Relation, bool) {
	rel, ok := e.bindings[name]
	return rel, ok
}

// MustLookup resolves a name or returns an error naming it.
func (e *Env) MustLookup(name string) (*Relation, error) {
	rel, ok := e.bindings[name]
	if !ok {
		return nil, fmt.Errorf("unbound relation %q", name)
	}
	return rel, nil
}

// Clone returns an independent snapshot of the bindings. The relation
// values are shared; they are immutable.
func (e *Env) Clone() *Env {
	next := &Env{bindings: make(map[string]*Relation, len(e.bindings))}
	for name, rel := range e.bindings {
		next.bindings[name] = rel
	}
	return next
}

// Replace atomically swaps this environment's bindings for another's.
func (e *Env) Replace(other *Env) {
	e.bindings = other.bindings
}

// Names returns the bound names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
