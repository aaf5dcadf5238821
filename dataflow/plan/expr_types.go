package plan

import (
	"fmt"

	"github.com/ominux/raco/dataflow"
)

// InferType statically derives the scalar type an expression produces
// over tuples of the given schema. Projection uses it so output schemas
// are well defined even when the input relation is empty.
func InferType(e Expr, s Schema) (dataflow.ScalarType, error) {
	switch x := e.(type) {
	case Col:
		idx := s.IndexOf(x.Name)
		if idx < 0 {
			return 0, fmt.Errorf("unknown attribute %q in schema %s", x.Name, s)
		}
		return s[idx].Type, nil

	case Lit:
		t, ok := dataflow.TypeOf(x.Value)
		if !ok {
			return 0, fmt.Errorf("literal %v (%T) is not a scalar", x.Value, x.Value)
		}
		return t, nil

	case Arith:
		lt, err := InferType(x.Left, s)
		if err != nil {
			return 0, err
		}
		rt, err := InferType(x.Right, s)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case OpDiv, OpPow:
			return dataflow.TypeFloat, nil
		case OpIDiv:
			return dataflow.TypeInt, nil
		default:
			if lt == dataflow.TypeInt && rt == dataflow.TypeInt {
				return dataflow.TypeInt, nil
			}
			return dataflow.TypeFloat, nil
		}

	case Unary:
		at, err := InferType(x.Arg, s)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case OpSqrt, OpLn, OpFloor:
			return dataflow.TypeFloat, nil
		case OpInt:
			return dataflow.TypeInt, nil
		default: // neg, abs preserve the operand type
			return at, nil
		}

	case Cmp, And, Or, Not:
		return dataflow.TypeBool, nil

	case Case:
		tt, err := InferType(x.Then, s)
		if err != nil {
			return 0, err
		}
		et, err := InferType(x.Else, s)
		if err != nil {
			return 0, err
		}
		if tt == et {
			return tt, nil
		}
		if (tt == dataflow.TypeInt && et == dataflow.TypeFloat) ||
			(tt == dataflow.TypeFloat && et == dataflow.TypeInt) {
			return dataflow.TypeFloat, nil
		}
		return 0, fmt.Errorf("case branches have incompatible types %s and %s", tt, et)

	default:
		return 0, fmt.Errorf("cannot infer type of %T", e)
	}
}
