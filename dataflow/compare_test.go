package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	cases := []struct {
		name        string
		left, right interface{}
		want        int
	}{
		{"IntOrder", int64(1), int64(2), -1},
		{"IntEqual", int64(3), int64(3), 0},
		{"MixedIntFloatEqual", int64(2), 2.0, 0},
		{"MixedIntFloatOrder", int64(2), 2.5, -1},
		{"Strings", "apple", "banana", -1},
		{"FalseBeforeTrue", false, true, -1},
		{"NilFirst", nil, int64(0), -1},
		{"NilEqual", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareValues(tc.left, tc.right))
			assert.Equal(t, -tc.want, CompareValues(tc.right, tc.left))
		})
	}
}

func TestValuesEqualPromotes(t *testing.T) {
	assert.True(t, ValuesEqual(int64(5), 5.0))
	assert.False(t, ValuesEqual(int64(5), 5.5))
	assert.False(t, ValuesEqual("5", int64(5)))
}

func TestConforms(t *testing.T) {
	assert.True(t, Conforms(int64(1), TypeInt))
	assert.True(t, Conforms(int64(1), TypeFloat), "ints promote to float columns")
	assert.False(t, Conforms(1.5, TypeInt))
	assert.False(t, Conforms("x", TypeFloat))
	assert.True(t, Conforms("x", TypeString))
	assert.True(t, Conforms(true, TypeBool))
}
