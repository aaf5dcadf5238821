package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

var scoreSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "outcome", Type: dataflow.TypeString},
	{Name: "lprob", Type: dataflow.TypeFloat},
}

func evalGroupByOver(t *testing.T, input *Relation, node *plan.GroupBy) (*Relation, error) {
	t.Helper()
	env := NewEnv()
	env.Bind("in", input)
	node.Input = &plan.Named{Name: "in"}
	return testEvaluator(env).eval(node)
}

func TestBuiltinAggregates(t *testing.T) {
	input := mustRel(t, pointSchema,
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(1), 3.0},
		plan.Tuple{int64(2), 10.0},
	)

	rel, err := evalGroupByOver(t, input, &plan.GroupBy{
		Keys: []string{"id"},
		Aggs: []plan.Aggregate{
			plan.Count("n"),
			plan.Sum(plan.C("x"), "total"),
			plan.Avg(plan.C("x"), "mean"),
			plan.Min(plan.C("x"), "lo"),
			plan.Max(plan.C("x"), "hi"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, rel.Size())

	expected := mustRel(t, rel.Schema(),
		plan.Tuple{int64(1), int64(2), 4.0, 2.0, 1.0, 3.0},
		plan.Tuple{int64(2), int64(1), 10.0, 10.0, 10.0, 10.0},
	)
	assert.True(t, rel.EqualMultiset(expected))
}

func TestSumStaysIntUntilFloatSeen(t *testing.T) {
	intSchema := plan.Schema{{Name: "n", Type: dataflow.TypeInt}}
	input := mustRel(t, intSchema,
		plan.Tuple{int64(2)},
		plan.Tuple{int64(3)},
	)

	rel, err := evalGroupByOver(t, input, &plan.GroupBy{
		Aggs: []plan.Aggregate{plan.Sum(plan.C("n"), "total")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rel.Tuples()[0][0])
}

func TestEmptyInputGlobalGroup(t *testing.T) {
	empty := mustRel(t, pointSchema)

	t.Run("CountAndSumHaveIdentities", func(t *testing.T) {
		rel, err := evalGroupByOver(t, empty, &plan.GroupBy{
			Aggs: []plan.Aggregate{
				plan.Count("n"),
				plan.Sum(plan.C("x"), "total"),
			},
		})
		require.NoError(t, err)
		require.Equal(t, 1, rel.Size())
		assert.Equal(t, plan.Tuple{int64(0), int64(0)}, rel.Tuples()[0])
	})

	t.Run("AvgFailsOnEmptyGroup", func(t *testing.T) {
		_, err := evalGroupByOver(t, empty, &plan.GroupBy{
			Aggs: []plan.Aggregate{plan.Avg(plan.C("x"), "mean")},
		})
		var eg *EmptyGroupError
		require.True(t, errors.As(err, &eg))
	})

	t.Run("MinFailsOnEmptyGroup", func(t *testing.T) {
		_, err := evalGroupByOver(t, empty, &plan.GroupBy{
			Aggs: []plan.Aggregate{plan.Min(plan.C("x"), "lo")},
		})
		var eg *EmptyGroupError
		require.True(t, errors.As(err, &eg))
	})
}

func TestEmptyInputKeyedGroupYieldsEmptyRelation(t *testing.T) {
	empty := mustRel(t, pointSchema)
	rel, err := evalGroupByOver(t, empty, &plan.GroupBy{
		Keys: []string{"id"},
		Aggs: []plan.Aggregate{plan.Count("n")},
	})
	require.NoError(t, err)
	assert.True(t, rel.IsEmpty())
}

func TestArgMaxDeterministicUnderPermutation(t *testing.T) {
	rows := []plan.Tuple{
		{int64(1), "A", 0.2},
		{int64(1), "B", 0.9},
		{int64(1), "C", 0.9},
	}
	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, perm := range permutations {
		ordered := make([]plan.Tuple, len(perm))
		for i, idx := range perm {
			ordered[i] = rows[idx]
		}

		rel, err := evalGroupByOver(t, mustRel(t, scoreSchema, ordered...), &plan.GroupBy{
			Keys: []string{"id"},
			Aggs: []plan.Aggregate{
				plan.User(plan.ArgMax("lprob", "outcome"), "outcome", dataflow.TypeString),
			},
		})
		require.NoError(t, err)
		require.Equal(t, 1, rel.Size())
		// B and C tie on value; the greater outcome wins regardless of
		// fold order.
		assert.Equal(t, "C", rel.Tuples()[0][1], "permutation %v", perm)
	}
}

func TestGroupByRejectsIncompleteAggregates(t *testing.T) {
	input := mustRel(t, scoreSchema, plan.Tuple{int64(1), "A", 0.2})

	t.Run("NilUserDefinition", func(t *testing.T) {
		_, err := evalGroupByOver(t, input, &plan.GroupBy{
			Aggs: []plan.Aggregate{
				{Kind: plan.AggUser, As: "best", Type: dataflow.TypeString},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no definition")
	})

	t.Run("MissingUpdatePhase", func(t *testing.T) {
		partial := plan.ArgMax("lprob", "outcome")
		partial.Update = nil
		_, err := evalGroupByOver(t, input, &plan.GroupBy{
			Aggs: []plan.Aggregate{
				plan.User(partial, "best", dataflow.TypeString),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "update phase")
	})

	t.Run("MissingArgument", func(t *testing.T) {
		_, err := evalGroupByOver(t, input, &plan.GroupBy{
			Aggs: []plan.Aggregate{
				{Kind: plan.AggSum, As: "total"},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "argument")
	})
}

func TestUserAggregateEmptyGroup(t *testing.T) {
	empty := mustRel(t, scoreSchema)
	_, err := evalGroupByOver(t, empty, &plan.GroupBy{
		Aggs: []plan.Aggregate{
			plan.User(plan.ArgMax("lprob", "outcome"), "outcome", dataflow.TypeString),
		},
	})
	var eg *EmptyGroupError
	require.True(t, errors.As(err, &eg))
}
