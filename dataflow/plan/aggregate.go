package plan

import (
	"fmt"

	"github.com/ominux/raco/dataflow"
)

// AggregateKind is the closed set of aggregate variants. The group-by
// operator dispatches on the kind through a single evaluation path and
// stays ignorant of what any particular aggregate computes.
type AggregateKind int

const (
	AggCount AggregateKind = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggUser
)

func (k AggregateKind) String() string {
	switch k {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggUser:
		return "user"
	default:
		return fmt.Sprintf("AggregateKind(%d)", int(k))
	}
}

// Aggregate describes one aggregate output of a GroupBy.
//
// Built-in kinds fold Arg over the group's tuples. AggUser dispatches to
// the attached UserAggregate, which sees full tuple bindings rather than
// a single argument expression.
type Aggregate struct {
	Kind AggregateKind
	Arg  Expr   // value expression for built-ins; nil for count(*)
	As   string // output attribute name
	Type dataflow.ScalarType

	User *UserAggregate
}

// UserAggregate is a user-defined aggregate following the explicit
// init/update/output protocol:
//
//	Init(first)  -> state   from the group's first observed tuple only
//	Update(s, t) -> state   folds one more tuple into state
//	Output(s)    -> value   projects final state to the output value
//
// The engine guarantees each group tuple is visited by Update exactly
// once, in unspecified order. Update must therefore be order-independent
// for its stated tie policy; TiePolicy documents how ties are broken so
// the output stays deterministic under any fold order.
type UserAggregate struct {
	Name      string
	TiePolicy string

	Init   func(first Bindings) (interface{}, error)
	Update func(state interface{}, t Bindings) (interface{}, error)
	Output func(state interface{}) (interface{}, error)
}

// Validate reports whether the aggregate is fully specified: built-ins
// other than count need an argument expression, and user-defined
// aggregates must carry all three protocol phases.
func (a Aggregate) Validate() error {
	if a.As == "" {
		return fmt.Errorf("%s aggregate has no output attribute name", a.Kind)
	}
	switch a.Kind {
	case AggCount:
		return nil
	case AggUser:
		if a.User == nil {
			return fmt.Errorf("user aggregate %q has no definition", a.As)
		}
		switch {
		case a.User.Init == nil:
			return fmt.Errorf("uda %s: missing init phase", a.User.Name)
		case a.User.Update == nil:
			return fmt.Errorf("uda %s: missing update phase", a.User.Name)
		case a.User.Output == nil:
			return fmt.Errorf("uda %s: missing output phase", a.User.Name)
		}
		return nil
	default:
		if a.Arg == nil {
			return fmt.Errorf("%s aggregate %q has no argument expression", a.Kind, a.As)
		}
		return nil
	}
}

// Count builds a count(*) aggregate.
func Count(as string) Aggregate {
	return Aggregate{Kind: AggCount, As: as, Type: dataflow.TypeInt}
}

// Sum builds a sum aggregate over an expression.
func Sum(arg Expr, as string) Aggregate {
	return Aggregate{Kind: AggSum, Arg: arg, As: as, Type: dataflow.TypeFloat}
}

// Avg builds an average aggregate over an expression.
func Avg(arg Expr, as string) Aggregate {
	return Aggregate{Kind: AggAvg, Arg: arg, As: as, Type: dataflow.TypeFloat}
}

// Min builds a minimum aggregate over an expression.
func Min(arg Expr, as string) Aggregate {
	return Aggregate{Kind: AggMin, Arg: arg, As: as, Type: dataflow.TypeFloat}
}

// Max builds a maximum aggregate over an expression.
func Max(arg Expr, as string) Aggregate {
	return Aggregate{Kind: AggMax, Arg: arg, As: as, Type: dataflow.TypeFloat}
}

// User builds a user-defined aggregate output.
func User(uda *UserAggregate, as string, t dataflow.ScalarType) Aggregate {
	return Aggregate{Kind: AggUser, User: uda, As: as, Type: t}
}

// argmaxState is the running (best value, best key) pair for ArgMax.
type argmaxState struct {
	value interface{}
	key   interface{}
}

// ArgMax returns a UDA that keeps the key attribute of the tuple with the
// greatest value attribute. Ties on the value are broken by the greater
// key under the total value order, never by fold order, so the result is
// deterministic over an unordered multiset.
func ArgMax(valueCol, keyCol string) *UserAggregate {
	return &UserAggregate{
		Name:      fmt.Sprintf("argmax(%s, %s)", valueCol, keyCol),
		TiePolicy: "equal values keep the greater key",
		Init: func(first Bindings) (interface{}, error) {
			v, ok := first[valueCol]
			if !ok {
				return nil, fmt.Errorf("argmax: unbound attribute %q", valueCol)
			}
			k, ok := first[keyCol]
			if !ok {
				return nil, fmt.Errorf("argmax: unbound attribute %q", keyCol)
			}
			return argmaxState{value: v, key: k}, nil
		},
		Update: func(state interface{}, t Bindings) (interface{}, error) {
			s := state.(argmaxState)
			v := t[valueCol]
			k := t[keyCol]
			cmp := dataflow.CompareValues(v, s.value)
			if cmp > 0 || (cmp == 0 && dataflow.CompareValues(k, s.key) > 0) {
				return argmaxState{value: v, key: k}, nil
			}
			return s, nil
		},
		Output: func(state interface{}) (interface{}, error) {
			return state.(argmaxState).key, nil
		},
	}
}
