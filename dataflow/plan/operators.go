package plan

import (
	"fmt"
	"strings"
)

// Operator is a node in a relational operator tree. The engine evaluates
// the tree bottom-up against a binding environment.
type Operator interface {
	// Kind returns the operator kind name used in error context.
	Kind() string

	String() string
}

// Scan binds data obtained from an external source under a declared
// schema. No schema inference happens; the declaration is authoritative
// and every scanned tuple is checked against it.
type Scan struct {
	Source string
	Schema Schema
}

func (s *Scan) Kind() string   { return "scan" }
func (s *Scan) String() string { return fmt.Sprintf("Scan(%s)", s.Source) }

// Named reads a relation previously bound in the environment.
type Named struct {
	Name string
}

func (n *Named) Kind() string   { return "named" }
func (n *Named) String() string { return fmt.Sprintf("Named(%s)", n.Name) }

// Values is a table literal: a constant relation with inline rows.
type Values struct {
	Schema Schema
	Rows   []Tuple
}

func (v *Values) Kind() string   { return "values" }
func (v *Values) String() string { return fmt.Sprintf("Values(%s, %d rows)", v.Schema, len(v.Rows)) }

// Empty is a relation with a schema and no tuples.
type Empty struct {
	Schema Schema
}

func (e *Empty) Kind() string   { return "empty" }
func (e *Empty) String() string { return fmt.Sprintf("Empty(%s)", e.Schema) }

// Filter keeps tuples for which the boolean predicate holds.
type Filter struct {
	Pred  Expr
	Input Operator
}

func (f *Filter) Kind() string   { return "filter" }
func (f *Filter) String() string { return fmt.Sprintf("Filter(%s)[%s]", f.Pred, f.Input) }

// OutputCol is one (expression, output name) pair of a projection.
type OutputCol struct {
	Name string
	Expr Expr
}

// Project maps each input tuple to an output tuple through a list of
// named expressions; it may derive new attributes or drop existing ones.
type Project struct {
	Cols  []OutputCol
	Input Operator
}

func (p *Project) Kind() string { return "project" }

func (p *Project) String() string {
	parts := make([]string, len(p.Cols))
	for i, c := range p.Cols {
		parts[i] = fmt.Sprintf("%s=%s", c.Name, c.Expr)
	}
	return fmt.Sprintf("Project(%s)[%s]", strings.Join(parts, ", "), p.Input)
}

// Emit is a convenience constructor for Project.
func Emit(input Operator, cols ...OutputCol) *Project {
	return &Project{Cols: cols, Input: input}
}

// Out pairs an output name with an expression.
func Out(name string, e Expr) OutputCol { return OutputCol{Name: name, Expr: e} }

// Keep projects existing attributes through unchanged.
func Keep(names ...string) []OutputCol {
	cols := make([]OutputCol, len(names))
	for i, n := range names {
		cols[i] = OutputCol{Name: n, Expr: Col{Name: n}}
	}
	return cols
}

// Rename prefixes every attribute name of its input. Joining a relation
// with a renamed copy of itself is how self-joins avoid attribute-name
// collisions.
type Rename struct {
	Prefix string
	Input  Operator
}

func (r *Rename) Kind() string   { return "rename" }
func (r *Rename) String() string { return fmt.Sprintf("Rename(%s)[%s]", r.Prefix, r.Input) }

// JoinKey equates one left attribute with one right attribute.
type JoinKey struct {
	Left  string
	Right string
}

// Join is an equi-join on one or more attribute pairs, optionally refined
// by a guard predicate evaluated over the combined bindings of each
// matched pair before emission.
//
// When PickMinCol is set, each distinct left tuple keeps only the single
// surviving match minimizing that output attribute; remaining ties break
// by the full tuple order. This is the deterministic tie-break for
// closest-cluster style matching, never source iteration order.
type Join struct {
	Left  Operator
	Right Operator
	On    []JoinKey

	Guard      Expr
	PickMinCol string
}

func (j *Join) Kind() string { return "join" }

func (j *Join) String() string {
	keys := make([]string, len(j.On))
	for i, k := range j.On {
		keys[i] = fmt.Sprintf("%s=%s", k.Left, k.Right)
	}
	s := fmt.Sprintf("Join(%s)", strings.Join(keys, ", "))
	if j.Guard != nil {
		s += fmt.Sprintf(" where %s", j.Guard)
	}
	return fmt.Sprintf("%s[%s, %s]", s, j.Left, j.Right)
}

// GroupBy partitions input tuples by the grouping key (empty key means
// one global group) and folds each aggregate into one output tuple per
// group.
type GroupBy struct {
	Keys  []string
	Aggs  []Aggregate
	Input Operator
}

func (g *GroupBy) Kind() string { return "groupby" }

func (g *GroupBy) String() string {
	aggs := make([]string, len(g.Aggs))
	for i, a := range g.Aggs {
		aggs[i] = a.As
	}
	return fmt.Sprintf("GroupBy(%s; %s)[%s]", strings.Join(g.Keys, ", "), strings.Join(aggs, ", "), g.Input)
}

// UnionAll concatenates same-schema relations without deduplication.
type UnionAll struct {
	Inputs []Operator
}

func (u *UnionAll) Kind() string { return "unionall" }

func (u *UnionAll) String() string {
	parts := make([]string, len(u.Inputs))
	for i, in := range u.Inputs {
		parts[i] = in.String()
	}
	return fmt.Sprintf("UnionAll[%s]", strings.Join(parts, ", "))
}

// Diff produces the multiset difference of two same-schema relations:
// tuples of Left not matched in Right, respecting multiplicities. With
// Symmetric set, unmatched tuples of both sides are produced.
type Diff struct {
	Left      Operator
	Right     Operator
	Symmetric bool
}

func (d *Diff) Kind() string   { return "diff" }
func (d *Diff) String() string { return fmt.Sprintf("Diff[%s, %s]", d.Left, d.Right) }

// Distinct collapses a multiset to a set.
type Distinct struct {
	Input Operator
}

func (d *Distinct) Kind() string   { return "distinct" }
func (d *Distinct) String() string { return fmt.Sprintf("Distinct[%s]", d.Input) }

// Limit keeps at most N tuples. Which tuples survive is unspecified, as
// relations are unordered.
type Limit struct {
	N     int
	Input Operator
}

func (l *Limit) Kind() string   { return "limit" }
func (l *Limit) String() string { return fmt.Sprintf("Limit(%d)[%s]", l.N, l.Input) }

// SpatialJoin is the two-stage replication join over a regular grid: a
// replicate stage pads near-boundary points into adjacent cells as ghost
// rows, then a local join keyed on cell coordinates finds unique point
// pairs within Epsilon without a full cross-product.
//
// Input must expose integer or float attributes ID, X and Y. Output
// schema is (id, id1, dist) with id < id1.
type SpatialJoin struct {
	Input Operator

	ID string
	X  string
	Y  string

	CellSize float64
	Epsilon  float64
}

func (s *SpatialJoin) Kind() string { return "spatialjoin" }

func (s *SpatialJoin) String() string {
	return fmt.Sprintf("SpatialJoin(cell=%v, eps=%v)[%s]", s.CellSize, s.Epsilon, s.Input)
}
