// Package dataflow defines the scalar value model shared by the plan and
// engine layers: the four scalar types, type checking, and the comparison
// and numeric-promotion rules every operator relies on.
package dataflow

import "fmt"

// ScalarType identifies one of the four scalar attribute types.
type ScalarType int

const (
	TypeInt ScalarType = iota
	TypeFloat
	TypeString
	TypeBool
)

// String returns the lowercase type name used in schema declarations.
func (t ScalarType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return fmt.Sprintf("ScalarType(%d)", int(t))
	}
}

// ParseType resolves a type name to a ScalarType.
func ParseType(name string) (ScalarType, error) {
	switch name {
	case "int", "integer", "long":
		return TypeInt, nil
	case "float", "double":
		return TypeFloat, nil
	case "string":
		return TypeString, nil
	case "bool", "boolean":
		return TypeBool, nil
	default:
		return 0, fmt.Errorf("unknown scalar type %q", name)
	}
}

// TypeOf returns the scalar type of a value. Integers are carried as
// int64 and floats as float64; plain int is accepted for convenience.
func TypeOf(v interface{}) (ScalarType, bool) {
	switch v.(type) {
	case int, int64:
		return TypeInt, true
	case float64:
		return TypeFloat, true
	case string:
		return TypeString, true
	case bool:
		return TypeBool, true
	default:
		return 0, false
	}
}

// Conforms reports whether a value is a legal instance of a scalar type.
// An int value conforms to TypeFloat via numeric promotion; the reverse
// does not hold.
func Conforms(v interface{}, t ScalarType) bool {
	vt, ok := TypeOf(v)
	if !ok {
		return false
	}
	if vt == t {
		return true
	}
	return vt == TypeInt && t == TypeFloat
}
