package dataflow

import "strings"

// CompareValues compares two scalar values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Mixed int/float comparisons promote to float. Nil sorts before any
// non-nil value. Values of unrelated types compare by type name so the
// total order stays deterministic.
func CompareValues(left, right interface{}) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	lf, lNum := AsFloat64(left)
	rf, rNum := AsFloat64(right)
	if lNum && rNum {
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}

	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return strings.Compare(ls, rs)
		}
	}

	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			switch {
			case lb == rb:
				return 0
			case !lb:
				return -1
			default:
				return 1
			}
		}
	}

	// Unrelated types: order by type name for determinism.
	lt, _ := TypeOf(left)
	rt, _ := TypeOf(right)
	return strings.Compare(lt.String(), rt.String())
}

// ValuesEqual reports structural equality with int/float promotion.
func ValuesEqual(left, right interface{}) bool {
	return CompareValues(left, right) == 0
}

// AsFloat64 converts a numeric value to float64.
func AsFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// AsInt64 converts an integer-typed value to int64.
func AsInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether the value participates in arithmetic.
func IsNumeric(v interface{}) bool {
	_, ok := AsFloat64(v)
	return ok
}
