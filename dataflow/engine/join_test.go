package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

func TestMultiKeyJoin(t *testing.T) {
	left := mustRel(t, plan.Schema{
		{Name: "a", Type: dataflow.TypeInt},
		{Name: "b", Type: dataflow.TypeInt},
		{Name: "v", Type: dataflow.TypeString},
	},
		plan.Tuple{int64(1), int64(1), "x"},
		plan.Tuple{int64(1), int64(2), "y"},
	)
	right := mustRel(t, plan.Schema{
		{Name: "a", Type: dataflow.TypeInt},
		{Name: "b", Type: dataflow.TypeInt},
		{Name: "w", Type: dataflow.TypeString},
	},
		plan.Tuple{int64(1), int64(1), "p"},
		plan.Tuple{int64(2), int64(2), "q"},
	)

	env := NewEnv()
	env.Bind("l", left)
	env.Bind("r", right)
	rel, err := testEvaluator(env).eval(&plan.Join{
		Left:  &plan.Named{Name: "l"},
		Right: &plan.Named{Name: "r"},
		On: []plan.JoinKey{
			{Left: "a", Right: "a"},
			{Left: "b", Right: "b"},
		},
	})
	require.NoError(t, err)

	// Only (1,1) matches on both keys; same-named right keys drop out.
	require.Equal(t, 1, rel.Size())
	assert.Equal(t, []string{"a", "b", "v", "w"}, rel.Schema().Names())
	assert.Equal(t, plan.Tuple{int64(1), int64(1), "x", "p"}, rel.Tuples()[0])
}

func TestJoinCommutative(t *testing.T) {
	a := mustRel(t, plan.Schema{
		{Name: "k", Type: dataflow.TypeInt},
		{Name: "v", Type: dataflow.TypeString},
	},
		plan.Tuple{int64(1), "a1"},
		plan.Tuple{int64(2), "a2"},
		plan.Tuple{int64(2), "a3"},
	)
	b := mustRel(t, plan.Schema{
		{Name: "k", Type: dataflow.TypeInt},
		{Name: "w", Type: dataflow.TypeString},
	},
		plan.Tuple{int64(2), "b1"},
		plan.Tuple{int64(3), "b2"},
	)

	env := NewEnv()
	env.Bind("a", a)
	env.Bind("b", b)

	canonical := func(left, right string) *Relation {
		rel, err := testEvaluator(env).eval(plan.Emit(
			&plan.Join{
				Left:  &plan.Named{Name: left},
				Right: &plan.Named{Name: right},
				On:    []plan.JoinKey{{Left: "k", Right: "k"}},
			},
			plan.Keep("k", "v", "w")...,
		))
		require.NoError(t, err)
		return rel
	}

	assert.True(t, canonical("a", "b").EqualMultiset(canonical("b", "a")))
}

func TestSelfJoinViaRename(t *testing.T) {
	points := mustRel(t, pointSchema,
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(2), 1.0},
	)

	env := NewEnv()
	env.Bind("points", points)

	// Pair points sharing the same x; the renamed side keeps its own key
	// attribute, so the output schema has no collisions.
	rel, err := testEvaluator(env).eval(&plan.Join{
		Left:  &plan.Named{Name: "points"},
		Right: &plan.Rename{Prefix: "r_", Input: &plan.Named{Name: "points"}},
		On:    []plan.JoinKey{{Left: "x", Right: "r_x"}},
		Guard: plan.Lt(plan.C("id"), plan.C("r_id")),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "x", "r_id", "r_x"}, rel.Schema().Names())
	require.Equal(t, 1, rel.Size())
	assert.Equal(t, plan.Tuple{int64(1), 1.0, int64(2), 1.0}, rel.Tuples()[0])
}

func TestJoinCollisionRequiresRename(t *testing.T) {
	points := mustRel(t, pointSchema, plan.Tuple{int64(1), 1.0})

	env := NewEnv()
	env.Bind("points", points)
	_, err := testEvaluator(env).eval(&plan.Join{
		Left:  &plan.Named{Name: "points"},
		Right: &plan.Named{Name: "points"},
		On:    []plan.JoinKey{{Left: "id", Right: "x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rename")
}

func TestGuardedJoinPickMinIsDeterministic(t *testing.T) {
	left := mustRel(t, plan.Schema{
		{Name: "id", Type: dataflow.TypeInt},
	}, plan.Tuple{int64(1)})

	clusterSchema := plan.Schema{
		{Name: "id", Type: dataflow.TypeInt},
		{Name: "cid", Type: dataflow.TypeInt},
		{Name: "dist", Type: dataflow.TypeFloat},
	}
	// Clusters 2 and 3 are equidistant; 5 is farther and fails the guard.
	candidates := []plan.Tuple{
		{int64(1), int64(3), 0.5},
		{int64(1), int64(2), 0.5},
		{int64(1), int64(5), 2.0},
	}

	permutations := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, perm := range permutations {
		ordered := make([]plan.Tuple, len(perm))
		for i, idx := range perm {
			ordered[i] = candidates[idx]
		}

		env := NewEnv()
		env.Bind("l", left)
		env.Bind("r", mustRel(t, clusterSchema, ordered...))

		rel, err := testEvaluator(env).eval(&plan.Join{
			Left:       &plan.Named{Name: "l"},
			Right:      &plan.Named{Name: "r"},
			On:         []plan.JoinKey{{Left: "id", Right: "id"}},
			Guard:      plan.Le(plan.C("dist"), plan.L(1.0)),
			PickMinCol: "cid",
		})
		require.NoError(t, err)
		require.Equal(t, 1, rel.Size())
		assert.Equal(t, int64(2), rel.Tuples()[0][1], "min cid must win under any input order")
	}
}
