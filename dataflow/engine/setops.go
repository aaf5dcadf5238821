package engine

import (
	"fmt"

	"github.com/ominux/raco/dataflow/plan"
)

// evalUnionAll concatenates same-schema relations without deduplication.
// Programs use it to unpivot positional attributes into indexed long
// form, so multiplicities must survive.
func (ev *evaluator) evalUnionAll(node *plan.UnionAll) (*Relation, error) {
	if len(node.Inputs) == 0 {
		return nil, fmt.Errorf("union requires at least one input")
	}

	first, err := ev.eval(node.Inputs[0])
	if err != nil {
		return nil, err
	}
	schema := first.Schema()

	total := first.Size()
	rest := make([]*Relation, 0, len(node.Inputs)-1)
	for _, in := range node.Inputs[1:] {
		rel, err := ev.eval(in)
		if err != nil {
			return nil, err
		}
		if !rel.Schema().Equal(schema) {
			return nil, &SchemaMismatchError{
				Relation: rel.Name(),
				Detail:   fmt.Sprintf("union input schema %s differs from %s", rel.Schema(), schema),
			}
		}
		rest = append(rest, rel)
		total += rel.Size()
	}

	tuples := make([]plan.Tuple, 0, total)
	tuples = append(tuples, first.Tuples()...)
	for _, rel := range rest {
		tuples = append(tuples, rel.Tuples()...)
	}
	return newRelationUnchecked("", schema, tuples), nil
}

// evalDiff computes the multiset difference. One-sided, it keeps each
// left tuple whose multiplicity exceeds its right multiplicity, as many
// times as the excess; symmetric adds the right side's excess too. The
// fixpoint controller's convergence test is DIFF-emptiness, so the
// multiset arithmetic here must be exact.
func (ev *evaluator) evalDiff(node *plan.Diff) (*Relation, error) {
	left, err := ev.eval(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(node.Right)
	if err != nil {
		return nil, err
	}
	if !left.Schema().Equal(right.Schema()) {
		return nil, &SchemaMismatchError{
			Relation: left.Name(),
			Detail:   fmt.Sprintf("diff schemas differ: %s vs %s", left.Schema(), right.Schema()),
		}
	}

	tuples := minusMultiset(left, right)
	if node.Symmetric {
		tuples = append(tuples, minusMultiset(right, left)...)
	}
	return newRelationUnchecked("", left.Schema(), tuples), nil
}

// minusMultiset returns a's tuples with b's multiplicities subtracted.
func minusMultiset(a, b *Relation) []plan.Tuple {
	remaining := b.counted()

	var result []plan.Tuple
	for _, t := range a.Tuples() {
		key := NewTupleKeyFull(t)
		if n, ok := remaining.Get(key); ok && n.(int) > 0 {
			remaining.Put(key, n.(int)-1)
			continue
		}
		result = append(result, t)
	}
	return result
}
