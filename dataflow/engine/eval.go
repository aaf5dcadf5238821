package engine

import (
	"errors"
	"fmt"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// evaluator evaluates one operator tree against a binding environment.
// It carries the loop context so errors reproduce the failing step.
type evaluator struct {
	catalog Catalog
	opts    Options
	pool    *WorkerPool
	env     *Env

	binding   string // assignment target, for error context
	iteration int    // loop iteration number, 0 outside loops
}

// eval dispatches on the operator kind. Failures local to a node are
// wrapped with the operator kind, binding name and iteration number;
// child failures propagate already wrapped.
func (ev *evaluator) eval(op plan.Operator) (*Relation, error) {
	rel, err := ev.evalNode(op)
	if err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) {
			return nil, err
		}
		return nil, &OpError{Op: op.Kind(), Relation: ev.binding, Iteration: ev.iteration, Err: err}
	}
	if ev.opts.EnableDebugLogging {
		fmt.Printf("[eval] %s -> %s\n", op.Kind(), rel)
	}
	return rel, nil
}

func (ev *evaluator) evalNode(op plan.Operator) (*Relation, error) {
	switch node := op.(type) {
	case *plan.Scan:
		return ev.evalScan(node)
	case *plan.Named:
		return ev.env.MustLookup(node.Name)
	case *plan.Values:
		return NewRelation("", node.Schema, node.Rows)
	case *plan.Empty:
		return newRelationUnchecked("", node.Schema, nil), nil
	case *plan.Filter:
		return ev.evalFilter(node)
	case *plan.Project:
		return ev.evalProject(node)
	case *plan.Rename:
		return ev.evalRename(node)
	case *plan.Join:
		return ev.evalJoin(node)
	case *plan.GroupBy:
		return ev.evalGroupBy(node)
	case *plan.UnionAll:
		return ev.evalUnionAll(node)
	case *plan.Diff:
		return ev.evalDiff(node)
	case *plan.Distinct:
		return ev.evalDistinct(node)
	case *plan.Limit:
		return ev.evalLimit(node)
	case *plan.SpatialJoin:
		return ev.evalSpatialJoin(node)
	default:
		return nil, fmt.Errorf("unknown operator %T", op)
	}
}

func (ev *evaluator) evalScan(node *plan.Scan) (*Relation, error) {
	rel, err := ev.catalog.Scan(node.Source)
	if err != nil {
		return nil, err
	}
	if !rel.Schema().Equal(node.Schema) {
		return nil, &SchemaMismatchError{
			Relation: node.Source,
			Detail:   fmt.Sprintf("declared schema %s, source schema %s", node.Schema, rel.Schema()),
		}
	}
	return rel, nil
}

func (ev *evaluator) evalFilter(node *plan.Filter) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}
	schema := input.Schema()

	keep := func(t plan.Tuple) (bool, error) {
		v, err := node.Pred.Eval(schema.Bindings(t))
		if err != nil {
			return false, err
		}
		truth, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("filter predicate %s yielded non-boolean %v", node.Pred, v)
		}
		return truth, nil
	}

	tuples, err := ev.mapTuples(input, func(t plan.Tuple) (plan.Tuple, bool, error) {
		ok, err := keep(t)
		return t, ok, err
	})
	if err != nil {
		return nil, err
	}
	return newRelationUnchecked("", schema, tuples), nil
}

func (ev *evaluator) evalProject(node *plan.Project) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}
	inSchema := input.Schema()

	outSchema := make(plan.Schema, len(node.Cols))
	for i, col := range node.Cols {
		t, err := plan.InferType(col.Expr, inSchema)
		if err != nil {
			return nil, err
		}
		outSchema[i] = plan.Attribute{Name: col.Name, Type: t}
	}
	if dup := duplicateAttr(outSchema); dup != "" {
		return nil, fmt.Errorf("duplicate output attribute %q", dup)
	}

	tuples, err := ev.mapTuples(input, func(t plan.Tuple) (plan.Tuple, bool, error) {
		b := inSchema.Bindings(t)
		out := make(plan.Tuple, len(node.Cols))
		for i, col := range node.Cols {
			v, err := col.Expr.Eval(b)
			if err != nil {
				return nil, false, fmt.Errorf("projecting %s from tuple %v: %w", col.Expr, t, err)
			}
			out[i] = v
		}
		return out, true, nil
	})
	if err != nil {
		return nil, err
	}
	return newRelationUnchecked("", outSchema, tuples), nil
}

func (ev *evaluator) evalRename(node *plan.Rename) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}
	return newRelationUnchecked("", input.Schema().Prefixed(node.Prefix), input.Tuples()), nil
}

func (ev *evaluator) evalDistinct(node *plan.Distinct) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}

	seen := NewTupleKeyMapWithCapacity(input.Size())
	var result []plan.Tuple
	for _, t := range input.Tuples() {
		key := NewTupleKeyFull(t)
		if !seen.Exists(key) {
			seen.Put(key, true)
			result = append(result, t)
		}
	}
	return newRelationUnchecked("", input.Schema(), result), nil
}

func (ev *evaluator) evalLimit(node *plan.Limit) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}
	if input.Size() <= node.N {
		return input, nil
	}
	return newRelationUnchecked("", input.Schema(), input.Tuples()[:node.N]), nil
}

// mapTuples applies fn to every tuple, keeping results where fn reports
// true. Large inputs are split across the worker pool when configured;
// chunk results are concatenated in input order, which a multiset cannot
// observe anyway.
func (ev *evaluator) mapTuples(input *Relation, fn func(plan.Tuple) (plan.Tuple, bool, error)) ([]plan.Tuple, error) {
	tuples := input.Tuples()

	if ev.pool == nil || len(tuples) < ev.opts.ParallelThreshold {
		var result []plan.Tuple
		for _, t := range tuples {
			out, keep, err := fn(t)
			if err != nil {
				return nil, err
			}
			if keep {
				result = append(result, out)
			}
		}
		return result, nil
	}

	chunkSize := (len(tuples) + ev.pool.WorkerCount() - 1) / ev.pool.WorkerCount()
	var chunks []interface{}
	for i := 0; i < len(tuples); i += chunkSize {
		end := i + chunkSize
		if end > len(tuples) {
			end = len(tuples)
		}
		chunks = append(chunks, tuples[i:end])
	}

	chunkResults, err := ev.pool.ExecuteParallel(chunks, func(in interface{}) (interface{}, error) {
		chunk := in.([]plan.Tuple)
		var out []plan.Tuple
		for _, t := range chunk {
			mapped, keep, err := fn(t)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, mapped)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	var result []plan.Tuple
	for _, cr := range chunkResults {
		result = append(result, cr.([]plan.Tuple)...)
	}
	return result, nil
}

// duplicateAttr returns the first attribute name appearing twice.
func duplicateAttr(s plan.Schema) string {
	seen := make(map[string]bool, len(s))
	for _, attr := range s {
		if seen[attr.Name] {
			return attr.Name
		}
		seen[attr.Name] = true
	}
	return ""
}

// truthValue extracts the single boolean from a continuation-test
// relation: one row, one boolean attribute.
func truthValue(rel *Relation) (bool, error) {
	if rel.Size() != 1 || len(rel.Schema()) != 1 {
		return false, fmt.Errorf("continuation test must yield a single-row, single-attribute relation, got %d rows of %s", rel.Size(), rel.Schema())
	}
	if rel.Schema()[0].Type != dataflow.TypeBool {
		return false, fmt.Errorf("continuation test attribute %q is %s, want bool", rel.Schema()[0].Name, rel.Schema()[0].Type)
	}
	v := rel.Tuples()[0][0]
	truth, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("continuation test value %v is not boolean", v)
	}
	return truth, nil
}
