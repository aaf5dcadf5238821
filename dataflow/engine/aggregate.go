package engine

import (
	"fmt"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// aggState holds the running fold for one aggregate within one group.
// Built-in folds update the numeric fields; user-defined aggregates keep
// their opaque state in user. State is owned exclusively by its group's
// fold and never shared.
type aggState struct {
	count    int64
	sumInt   int64
	sumFloat float64
	sawFloat bool
	min      interface{}
	max      interface{}

	user     interface{}
	userInit bool
}

// evalGroupBy partitions the input by the grouping key (empty key means
// one global group) and folds each aggregate over its group's tuples.
// Tuples are visited exactly once per aggregate, in unspecified order;
// any order sensitivity is a bug in the aggregate definition, not here.
func (ev *evaluator) evalGroupBy(node *plan.GroupBy) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}
	inSchema := input.Schema()

	keyIndices := make([]int, len(node.Keys))
	for i, key := range node.Keys {
		keyIndices[i] = inSchema.IndexOf(key)
		if keyIndices[i] < 0 {
			return nil, fmt.Errorf("grouping attribute %q not in schema %s", key, inSchema)
		}
	}

	outSchema := make(plan.Schema, 0, len(node.Keys)+len(node.Aggs))
	for _, idx := range keyIndices {
		outSchema = append(outSchema, inSchema[idx])
	}
	for _, agg := range node.Aggs {
		if err := agg.Validate(); err != nil {
			return nil, err
		}
		t, err := aggregateType(agg, inSchema)
		if err != nil {
			return nil, err
		}
		outSchema = append(outSchema, plan.Attribute{Name: agg.As, Type: t})
	}
	if dup := duplicateAttr(outSchema); dup != "" {
		return nil, fmt.Errorf("duplicate output attribute %q", dup)
	}

	groups := NewTupleKeyMap()
	var groupOrder []TupleKey // stable output assembly; not observable

	for _, t := range input.Tuples() {
		key := NewTupleKey(t, keyIndices)
		statesVal, ok := groups.Get(key)
		var states []*aggState
		if !ok {
			states = make([]*aggState, len(node.Aggs))
			for i := range states {
				states[i] = &aggState{}
			}
			groups.Put(key, states)
			groupOrder = append(groupOrder, key)
		} else {
			states = statesVal.([]*aggState)
		}

		b := inSchema.Bindings(t)
		for i, agg := range node.Aggs {
			if err := updateAggregate(states[i], agg, b); err != nil {
				return nil, err
			}
		}
	}

	// A non-empty grouping key over no input rows yields the empty
	// relation; the global group always yields one row, provided every
	// aggregate has an identity for the empty fold.
	if len(groupOrder) == 0 && len(node.Keys) == 0 {
		row := make(plan.Tuple, len(node.Aggs))
		for i, agg := range node.Aggs {
			v, err := emptyGroupResult(agg)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		return newRelationUnchecked("", outSchema, []plan.Tuple{row}), nil
	}

	result := make([]plan.Tuple, 0, len(groupOrder))
	for _, key := range groupOrder {
		statesVal, _ := groups.Get(key)
		states := statesVal.([]*aggState)

		row := make(plan.Tuple, 0, len(outSchema))
		row = append(row, key.values...)
		for i, agg := range node.Aggs {
			v, err := outputAggregate(states[i], agg)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		result = append(result, row)
	}

	return newRelationUnchecked("", outSchema, result), nil
}

// aggregateType derives the output attribute type of one aggregate.
func aggregateType(agg plan.Aggregate, inSchema plan.Schema) (dataflow.ScalarType, error) {
	switch agg.Kind {
	case plan.AggCount:
		return dataflow.TypeInt, nil
	case plan.AggAvg:
		return dataflow.TypeFloat, nil
	case plan.AggSum, plan.AggMin, plan.AggMax:
		return plan.InferType(agg.Arg, inSchema)
	case plan.AggUser:
		return agg.Type, nil
	default:
		return 0, fmt.Errorf("unknown aggregate kind %s", agg.Kind)
	}
}

// updateAggregate folds one tuple's bindings into the aggregate state.
// This is the single dispatch path over the closed set of variants; the
// group-by operator never knows what any aggregate computes.
func updateAggregate(s *aggState, agg plan.Aggregate, b plan.Bindings) error {
	if agg.Kind == plan.AggUser {
		if !s.userInit {
			state, err := agg.User.Init(b)
			if err != nil {
				return fmt.Errorf("uda %s init: %w", agg.User.Name, err)
			}
			s.user = state
			s.userInit = true
			return nil
		}
		state, err := agg.User.Update(s.user, b)
		if err != nil {
			return fmt.Errorf("uda %s update: %w", agg.User.Name, err)
		}
		s.user = state
		return nil
	}

	if agg.Kind == plan.AggCount {
		s.count++
		return nil
	}

	v, err := agg.Arg.Eval(b)
	if err != nil {
		return fmt.Errorf("aggregate %s argument %s: %w", agg.Kind, agg.Arg, err)
	}

	switch agg.Kind {
	case plan.AggSum, plan.AggAvg:
		if i, ok := dataflow.AsInt64(v); ok && !s.sawFloat {
			s.sumInt += i
		} else {
			f, ok := dataflow.AsFloat64(v)
			if !ok {
				return fmt.Errorf("aggregate %s over non-numeric value %v", agg.Kind, v)
			}
			if !s.sawFloat {
				s.sumFloat = float64(s.sumInt)
				s.sawFloat = true
			}
			s.sumFloat += f
		}
		s.count++
	case plan.AggMin:
		if s.count == 0 || dataflow.CompareValues(v, s.min) < 0 {
			s.min = v
		}
		s.count++
	case plan.AggMax:
		if s.count == 0 || dataflow.CompareValues(v, s.max) > 0 {
			s.max = v
		}
		s.count++
	}
	return nil
}

// outputAggregate projects final state to the group's output value.
func outputAggregate(s *aggState, agg plan.Aggregate) (interface{}, error) {
	switch agg.Kind {
	case plan.AggCount:
		return s.count, nil
	case plan.AggSum:
		if s.sawFloat {
			return s.sumFloat, nil
		}
		return s.sumInt, nil
	case plan.AggAvg:
		if s.count == 0 {
			return nil, &EmptyGroupError{Aggregate: "avg"}
		}
		if s.sawFloat {
			return s.sumFloat / float64(s.count), nil
		}
		return float64(s.sumInt) / float64(s.count), nil
	case plan.AggMin:
		if s.count == 0 {
			return nil, &EmptyGroupError{Aggregate: "min"}
		}
		return s.min, nil
	case plan.AggMax:
		if s.count == 0 {
			return nil, &EmptyGroupError{Aggregate: "max"}
		}
		return s.max, nil
	case plan.AggUser:
		if !s.userInit {
			return nil, &EmptyGroupError{Aggregate: agg.User.Name}
		}
		v, err := agg.User.Output(s.user)
		if err != nil {
			return nil, fmt.Errorf("uda %s output: %w", agg.User.Name, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown aggregate kind %s", agg.Kind)
	}
}

// emptyGroupResult supplies the identity element for a global group with
// no input, or EmptyGroupError when the aggregate defines none.
func emptyGroupResult(agg plan.Aggregate) (interface{}, error) {
	switch agg.Kind {
	case plan.AggCount:
		return int64(0), nil
	case plan.AggSum:
		return int64(0), nil
	case plan.AggAvg:
		return nil, &EmptyGroupError{Aggregate: "avg"}
	case plan.AggMin:
		return nil, &EmptyGroupError{Aggregate: "min"}
	case plan.AggMax:
		return nil, &EmptyGroupError{Aggregate: "max"}
	case plan.AggUser:
		return nil, &EmptyGroupError{Aggregate: agg.User.Name}
	default:
		return nil, fmt.Errorf("unknown aggregate kind %s", agg.Kind)
	}
}
