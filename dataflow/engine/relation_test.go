package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

var pointSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "x", Type: dataflow.TypeFloat},
}

func mustRel(t *testing.T, schema plan.Schema, tuples ...plan.Tuple) *Relation {
	t.Helper()
	rel, err := NewRelation("", schema, tuples)
	require.NoError(t, err)
	return rel
}

// testEvaluator evaluates operator trees against bound relations, with
// no catalog behind it.
func testEvaluator(env *Env) *evaluator {
	return &evaluator{opts: DefaultOptions(), env: env}
}

func TestNewRelationValidation(t *testing.T) {
	t.Run("ArityMismatch", func(t *testing.T) {
		_, err := NewRelation("r", pointSchema, []plan.Tuple{{int64(1)}})
		var sm *SchemaMismatchError
		require.True(t, errors.As(err, &sm))
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		_, err := NewRelation("r", pointSchema, []plan.Tuple{{"one", 2.0}})
		var sm *SchemaMismatchError
		require.True(t, errors.As(err, &sm))
	})

	t.Run("IntConformsToFloatColumn", func(t *testing.T) {
		_, err := NewRelation("r", pointSchema, []plan.Tuple{{int64(1), int64(2)}})
		require.NoError(t, err)
	})

	t.Run("FloatDoesNotConformToIntColumn", func(t *testing.T) {
		_, err := NewRelation("r", pointSchema, []plan.Tuple{{1.5, 2.0}})
		var sm *SchemaMismatchError
		require.True(t, errors.As(err, &sm))
	})
}

func TestEqualMultiset(t *testing.T) {
	a := mustRel(t, pointSchema,
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(2), 2.0},
	)
	sameReordered := mustRel(t, pointSchema,
		plan.Tuple{int64(2), 2.0},
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(1), 1.0},
	)
	fewerDuplicates := mustRel(t, pointSchema,
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(2), 2.0},
	)

	assert.True(t, a.EqualMultiset(sameReordered))
	assert.False(t, a.EqualMultiset(fewerDuplicates))
	assert.False(t, fewerDuplicates.EqualMultiset(a))
}

func TestIteratorRestartable(t *testing.T) {
	rel := mustRel(t, pointSchema,
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(2), 2.0},
	)

	for pass := 0; pass < 2; pass++ {
		it := rel.Iterator()
		n := 0
		for it.Next() {
			require.NotNil(t, it.Tuple())
			n++
		}
		require.NoError(t, it.Close())
		assert.Equal(t, 2, n)
	}
}

func TestContains(t *testing.T) {
	rel := mustRel(t, pointSchema, plan.Tuple{int64(1), 2.0})
	assert.True(t, rel.Contains(plan.Tuple{int64(1), 2.0}))
	// Promotion: an int that equals the stored float matches.
	assert.True(t, rel.Contains(plan.Tuple{int64(1), int64(2)}))
	assert.False(t, rel.Contains(plan.Tuple{int64(2), 2.0}))
}

func TestTableFormatting(t *testing.T) {
	rel := mustRel(t, pointSchema,
		plan.Tuple{int64(2), 2.0},
		plan.Tuple{int64(1), 1.5},
	)

	table := rel.Table()
	assert.Contains(t, table, "id")
	assert.Contains(t, table, "1.5")
	assert.Contains(t, table, "2 rows")

	empty := mustRel(t, pointSchema)
	assert.Equal(t, "_Empty relation_", empty.Table())
}
