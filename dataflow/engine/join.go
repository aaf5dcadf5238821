package engine

import (
	"fmt"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// evalJoin performs a hash equi-join on the node's attribute pairs,
// builds on the right side and probes with the left. Right join-key
// attributes whose name equals their paired left key are dropped from
// the output schema; any other name collision is a plan error the
// program resolves with Rename.
func (ev *evaluator) evalJoin(node *plan.Join) (*Relation, error) {
	left, err := ev.eval(node.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(node.Right)
	if err != nil {
		return nil, err
	}
	if len(node.On) == 0 {
		return nil, fmt.Errorf("equi-join requires at least one attribute pair")
	}

	leftSchema := left.Schema()
	rightSchema := right.Schema()

	leftIndices := make([]int, len(node.On))
	rightIndices := make([]int, len(node.On))
	dropRight := make(map[int]bool)
	for i, key := range node.On {
		leftIndices[i] = leftSchema.IndexOf(key.Left)
		rightIndices[i] = rightSchema.IndexOf(key.Right)
		if leftIndices[i] < 0 {
			return nil, fmt.Errorf("join key %q not in left schema %s", key.Left, leftSchema)
		}
		if rightIndices[i] < 0 {
			return nil, fmt.Errorf("join key %q not in right schema %s", key.Right, rightSchema)
		}
		if key.Left == key.Right {
			dropRight[rightIndices[i]] = true
		}
	}

	outSchema := make(plan.Schema, 0, len(leftSchema)+len(rightSchema))
	outSchema = append(outSchema, leftSchema...)
	keptRight := make([]int, 0, len(rightSchema))
	for i, attr := range rightSchema {
		if dropRight[i] {
			continue
		}
		if leftSchema.Has(attr.Name) {
			return nil, fmt.Errorf("join output attribute %q collides; rename one side", attr.Name)
		}
		outSchema = append(outSchema, attr)
		keptRight = append(keptRight, i)
	}

	// Build phase on the right relation.
	hashTable := NewTupleKeyMapWithCapacity(right.Size())
	for _, t := range right.Tuples() {
		key := NewTupleKey(t, rightIndices)
		if existing, ok := hashTable.Get(key); ok {
			hashTable.Put(key, append(existing.([]plan.Tuple), t))
		} else {
			hashTable.Put(key, []plan.Tuple{t})
		}
	}

	pickMinIdx := -1
	if node.PickMinCol != "" {
		pickMinIdx = outSchema.IndexOf(node.PickMinCol)
		if pickMinIdx < 0 {
			return nil, fmt.Errorf("tie-break attribute %q not in join output %s", node.PickMinCol, outSchema)
		}
	}

	var result []plan.Tuple
	for _, leftTuple := range left.Tuples() {
		key := NewTupleKey(leftTuple, leftIndices)
		matchesVal, ok := hashTable.Get(key)
		if !ok {
			continue
		}

		var best plan.Tuple
		for _, rightTuple := range matchesVal.([]plan.Tuple) {
			joined := make(plan.Tuple, 0, len(outSchema))
			joined = append(joined, leftTuple...)
			for _, idx := range keptRight {
				joined = append(joined, rightTuple[idx])
			}

			if node.Guard != nil {
				v, err := node.Guard.Eval(outSchema.Bindings(joined))
				if err != nil {
					return nil, fmt.Errorf("join guard %s on tuple %v: %w", node.Guard, joined, err)
				}
				truth, ok := v.(bool)
				if !ok {
					return nil, fmt.Errorf("join guard %s yielded non-boolean %v", node.Guard, v)
				}
				if !truth {
					continue
				}
			}

			if pickMinIdx < 0 {
				result = append(result, joined)
				continue
			}
			if best == nil || pickMinLess(joined, best, pickMinIdx) {
				best = joined
			}
		}
		if best != nil {
			result = append(result, best)
		}
	}

	return newRelationUnchecked("", outSchema, result), nil
}

// pickMinLess orders surviving matches for one probe tuple: first by the
// discriminating attribute, then by the whole tuple so residual ties
// never fall back to source iteration order.
func pickMinLess(a, b plan.Tuple, idx int) bool {
	cmp := dataflow.CompareValues(a[idx], b[idx])
	if cmp != 0 {
		return cmp < 0
	}
	for i := range a {
		cmp = dataflow.CompareValues(a[i], b[i])
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}
