package plan

import (
	"fmt"
	"strings"
)

// Statement is one step of a program: a relation binding, a store to the
// sink, or an iterate-until-fixpoint block.
type Statement interface {
	stmt()
	String() string
}

// Assign binds the result of an operator expression to a relation name.
// A name bound inside one iteration denotes exactly one immutable
// relation value for the rest of that iteration.
type Assign struct {
	Name string
	Op   Operator
}

func (a *Assign) stmt()          {}
func (a *Assign) String() string { return fmt.Sprintf("%s = %s;", a.Name, a.Op) }

// Store persists a bound relation under a sink identifier.
type Store struct {
	Name string // bound relation name
	Key  string // sink identifier
}

func (s *Store) stmt()          {}
func (s *Store) String() string { return fmt.Sprintf("store(%s, %s);", s.Name, s.Key) }

// DoWhile repeatedly executes its body statements, then evaluates the
// test operator against the post-body bindings. The test must yield a
// single-row, single-attribute boolean relation; the loop continues while
// that value is true. Programs typically build the test from a DIFF of
// two consecutive iterations' relations.
type DoWhile struct {
	Body []Statement
	Test Operator
}

func (d *DoWhile) stmt() {}

func (d *DoWhile) String() string {
	parts := make([]string, len(d.Body))
	for i, s := range d.Body {
		parts[i] = s.String()
	}
	return fmt.Sprintf("do { %s } while %s;", strings.Join(parts, " "), d.Test)
}

// Program is an ordered sequence of statements.
type Program struct {
	Name       string
	Statements []Statement
}

// NonEmpty builds the canonical continuation test: a single-row boolean
// relation that is true iff the input relation has at least one tuple.
func NonEmpty(input Operator) Operator {
	counted := &GroupBy{
		Keys:  nil,
		Aggs:  []Aggregate{Count("n")},
		Input: input,
	}
	return Emit(counted, Out("continue", Gt(C("n"), L(int64(0)))))
}
