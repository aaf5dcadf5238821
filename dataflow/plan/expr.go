package plan

import (
	"fmt"
	"math"
	"strings"

	"github.com/ominux/raco/dataflow"
)

// Bindings maps attribute names to scalar values for one tuple (or one
// aligned tuple pair after a join-side rename).
type Bindings map[string]interface{}

// Expr is a scalar expression tree evaluated per tuple.
type Expr interface {
	// RequiredColumns returns all attribute names the expression reads.
	RequiredColumns() []string

	// Eval evaluates the expression against the given bindings.
	Eval(b Bindings) (interface{}, error)

	String() string
}

// DomainError reports an illegal scalar operation: division by zero,
// log of a non-positive value, sqrt of a negative value. The engine never
// converts these to NaN/Inf; they surface to the caller.
type DomainError struct {
	Op     string
	Detail string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error in %s: %s", e.Op, e.Detail)
}

// Col references an attribute by name.
type Col struct {
	Name string
}

func (c Col) RequiredColumns() []string { return []string{c.Name} }

func (c Col) Eval(b Bindings) (interface{}, error) {
	v, ok := b[c.Name]
	if !ok {
		return nil, fmt.Errorf("unbound attribute %q", c.Name)
	}
	return v, nil
}

func (c Col) String() string { return c.Name }

// Lit is a literal scalar value.
type Lit struct {
	Value interface{}
}

func (l Lit) RequiredColumns() []string          { return nil }
func (l Lit) Eval(Bindings) (interface{}, error) { return l.Value, nil }
func (l Lit) String() string                     { return fmt.Sprintf("%v", l.Value) }

// ArithOp enumerates binary arithmetic operators.
type ArithOp string

const (
	OpAdd  ArithOp = "+"
	OpSub  ArithOp = "-"
	OpMul  ArithOp = "*"
	OpDiv  ArithOp = "/"
	OpIDiv ArithOp = "//"
	OpMod  ArithOp = "%"
	OpPow  ArithOp = "**"
)

// Arith is a binary arithmetic expression. Mixed int/float operands
// promote to float; / always yields float, // always yields int.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (a Arith) RequiredColumns() []string {
	return append(a.Left.RequiredColumns(), a.Right.RequiredColumns()...)
}

func (a Arith) Eval(b Bindings) (interface{}, error) {
	leftVal, err := a.Left.Eval(b)
	if err != nil {
		return nil, err
	}
	rightVal, err := a.Right.Eval(b)
	if err != nil {
		return nil, err
	}

	li, leftIsInt := dataflow.AsInt64(leftVal)
	ri, rightIsInt := dataflow.AsInt64(rightVal)
	lf, leftOk := dataflow.AsFloat64(leftVal)
	rf, rightOk := dataflow.AsFloat64(rightVal)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("non-numeric operand to %s: %v, %v", a.Op, leftVal, rightVal)
	}

	useInt := leftIsInt && rightIsInt

	switch a.Op {
	case OpAdd:
		if useInt {
			return li + ri, nil
		}
		return lf + rf, nil
	case OpSub:
		if useInt {
			return li - ri, nil
		}
		return lf - rf, nil
	case OpMul:
		if useInt {
			return li * ri, nil
		}
		return lf * rf, nil
	case OpDiv:
		if rf == 0 {
			return nil, &DomainError{Op: a.String(), Detail: "division by zero"}
		}
		return lf / rf, nil
	case OpIDiv:
		if !useInt {
			if rf == 0 {
				return nil, &DomainError{Op: a.String(), Detail: "division by zero"}
			}
			return int64(math.Floor(lf / rf)), nil
		}
		if ri == 0 {
			return nil, &DomainError{Op: a.String(), Detail: "division by zero"}
		}
		// Floored division, not Go's truncating division.
		q := li / ri
		if (li%ri != 0) && ((li < 0) != (ri < 0)) {
			q--
		}
		return q, nil
	case OpMod:
		if useInt {
			if ri == 0 {
				return nil, &DomainError{Op: a.String(), Detail: "modulo by zero"}
			}
			return li % ri, nil
		}
		if rf == 0 {
			return nil, &DomainError{Op: a.String(), Detail: "modulo by zero"}
		}
		return math.Mod(lf, rf), nil
	case OpPow:
		return math.Pow(lf, rf), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q", a.Op)
}

func (a Arith) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// UnaryOp enumerates unary scalar functions.
type UnaryOp string

const (
	OpNeg   UnaryOp = "-"
	OpAbs   UnaryOp = "abs"
	OpSqrt  UnaryOp = "sqrt"
	OpLn    UnaryOp = "ln"
	OpFloor UnaryOp = "floor"
	OpInt   UnaryOp = "int"
)

// Unary applies a unary scalar function.
type Unary struct {
	Op  UnaryOp
	Arg Expr
}

func (u Unary) RequiredColumns() []string { return u.Arg.RequiredColumns() }

func (u Unary) Eval(b Bindings) (interface{}, error) {
	val, err := u.Arg.Eval(b)
	if err != nil {
		return nil, err
	}
	f, ok := dataflow.AsFloat64(val)
	if !ok {
		return nil, fmt.Errorf("non-numeric operand to %s: %v", u.Op, val)
	}

	switch u.Op {
	case OpNeg:
		if i, isInt := dataflow.AsInt64(val); isInt {
			return -i, nil
		}
		return -f, nil
	case OpAbs:
		if i, isInt := dataflow.AsInt64(val); isInt {
			if i < 0 {
				return -i, nil
			}
			return i, nil
		}
		return math.Abs(f), nil
	case OpSqrt:
		if f < 0 {
			return nil, &DomainError{Op: u.String(), Detail: fmt.Sprintf("sqrt of negative value %v", f)}
		}
		return math.Sqrt(f), nil
	case OpLn:
		if f <= 0 {
			return nil, &DomainError{Op: u.String(), Detail: fmt.Sprintf("log of non-positive value %v", f)}
		}
		return math.Log(f), nil
	case OpFloor:
		return math.Floor(f), nil
	case OpInt:
		return int64(f), nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", u.Op)
}

func (u Unary) String() string {
	return fmt.Sprintf("%s(%s)", u.Op, u.Arg)
}

// CmpOp enumerates comparison operators.
type CmpOp string

const (
	OpEq CmpOp = "="
	OpNe CmpOp = "!="
	OpLt CmpOp = "<"
	OpLe CmpOp = "<="
	OpGt CmpOp = ">"
	OpGe CmpOp = ">="
)

// Cmp compares two scalar expressions, yielding a boolean.
type Cmp struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

func (c Cmp) RequiredColumns() []string {
	return append(c.Left.RequiredColumns(), c.Right.RequiredColumns()...)
}

func (c Cmp) Eval(b Bindings) (interface{}, error) {
	leftVal, err := c.Left.Eval(b)
	if err != nil {
		return nil, err
	}
	rightVal, err := c.Right.Eval(b)
	if err != nil {
		return nil, err
	}

	cmp := dataflow.CompareValues(leftVal, rightVal)
	switch c.Op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	}
	return nil, fmt.Errorf("unknown comparison operator %q", c.Op)
}

func (c Cmp) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// And is a short-circuit boolean conjunction over its operands.
type And struct {
	Operands []Expr
}

func (a And) RequiredColumns() []string {
	var cols []string
	for _, op := range a.Operands {
		cols = append(cols, op.RequiredColumns()...)
	}
	return cols
}

func (a And) Eval(b Bindings) (interface{}, error) {
	for _, op := range a.Operands {
		v, err := op.Eval(b)
		if err != nil {
			return nil, err
		}
		truth, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("non-boolean operand to and: %v", v)
		}
		if !truth {
			return false, nil
		}
	}
	return true, nil
}

func (a And) String() string {
	parts := make([]string, len(a.Operands))
	for i, op := range a.Operands {
		parts[i] = op.String()
	}
	return "(and " + strings.Join(parts, " ") + ")"
}

// Or is a short-circuit boolean disjunction over its operands.
type Or struct {
	Operands []Expr
}

func (o Or) RequiredColumns() []string {
	var cols []string
	for _, op := range o.Operands {
		cols = append(cols, op.RequiredColumns()...)
	}
	return cols
}

func (o Or) Eval(b Bindings) (interface{}, error) {
	for _, op := range o.Operands {
		v, err := op.Eval(b)
		if err != nil {
			return nil, err
		}
		truth, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("non-boolean operand to or: %v", v)
		}
		if truth {
			return true, nil
		}
	}
	return false, nil
}

func (o Or) String() string {
	parts := make([]string, len(o.Operands))
	for i, op := range o.Operands {
		parts[i] = op.String()
	}
	return "(or " + strings.Join(parts, " ") + ")"
}

// Not negates a boolean expression.
type Not struct {
	Arg Expr
}

func (n Not) RequiredColumns() []string { return n.Arg.RequiredColumns() }

func (n Not) Eval(b Bindings) (interface{}, error) {
	v, err := n.Arg.Eval(b)
	if err != nil {
		return nil, err
	}
	truth, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("non-boolean operand to not: %v", v)
	}
	return !truth, nil
}

func (n Not) String() string { return fmt.Sprintf("(not %s)", n.Arg) }

// Case is a three-branch conditional: when the condition holds, evaluate
// Then, otherwise Else. Only the taken branch is evaluated, so a guarded
// division never trips a DomainError on the untaken branch.
type Case struct {
	When Expr
	Then Expr
	Else Expr
}

func (c Case) RequiredColumns() []string {
	cols := c.When.RequiredColumns()
	cols = append(cols, c.Then.RequiredColumns()...)
	cols = append(cols, c.Else.RequiredColumns()...)
	return cols
}

func (c Case) Eval(b Bindings) (interface{}, error) {
	cond, err := c.When.Eval(b)
	if err != nil {
		return nil, err
	}
	truth, ok := cond.(bool)
	if !ok {
		return nil, fmt.Errorf("non-boolean case condition: %v", cond)
	}
	if truth {
		return c.Then.Eval(b)
	}
	return c.Else.Eval(b)
}

func (c Case) String() string {
	return fmt.Sprintf("(case when %s then %s else %s end)", c.When, c.Then, c.Else)
}

// Convenience constructors for common expression shapes.

func C(name string) Col          { return Col{Name: name} }
func L(v interface{}) Lit        { return Lit{Value: v} }
func Add(l, r Expr) Arith        { return Arith{Op: OpAdd, Left: l, Right: r} }
func Sub(l, r Expr) Arith        { return Arith{Op: OpSub, Left: l, Right: r} }
func Mul(l, r Expr) Arith        { return Arith{Op: OpMul, Left: l, Right: r} }
func Div(l, r Expr) Arith        { return Arith{Op: OpDiv, Left: l, Right: r} }
func Pow(l, r Expr) Arith        { return Arith{Op: OpPow, Left: l, Right: r} }
func Sqrt(e Expr) Unary          { return Unary{Op: OpSqrt, Arg: e} }
func Abs(e Expr) Unary           { return Unary{Op: OpAbs, Arg: e} }
func Ln(e Expr) Unary            { return Unary{Op: OpLn, Arg: e} }
func Eq(l, r Expr) Cmp           { return Cmp{Op: OpEq, Left: l, Right: r} }
func Lt(l, r Expr) Cmp           { return Cmp{Op: OpLt, Left: l, Right: r} }
func Le(l, r Expr) Cmp           { return Cmp{Op: OpLe, Left: l, Right: r} }
func Gt(l, r Expr) Cmp           { return Cmp{Op: OpGt, Left: l, Right: r} }
func Ge(l, r Expr) Cmp           { return Cmp{Op: OpGe, Left: l, Right: r} }

// EuclideanDistance builds the 2D distance expression
// sqrt((x-x1)^2 + (y-y1)^2) from primitives.
func EuclideanDistance(x, y, x1, y1 Expr) Expr {
	dx := Sub(x, x1)
	dy := Sub(y, y1)
	return Sqrt(Add(Mul(dx, dx), Mul(dy, dy)))
}
