package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

var spatialSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "x", Type: dataflow.TypeFloat},
	{Name: "y", Type: dataflow.TypeFloat},
}

func evalSpatial(t *testing.T, points *Relation, cellSize, epsilon float64) *Relation {
	t.Helper()
	env := NewEnv()
	env.Bind("points", points)
	rel, err := testEvaluator(env).eval(&plan.SpatialJoin{
		Input:    &plan.Named{Name: "points"},
		ID:       "id",
		X:        "x",
		Y:        "y",
		CellSize: cellSize,
		Epsilon:  epsilon,
	})
	require.NoError(t, err)
	return rel
}

func TestSpatialJoinCrossBoundaryPair(t *testing.T) {
	const cell = 0.5
	const eps = 0.0000106

	// True distance eps/2, but the points straddle the x = 0.5 cell
	// boundary, so their naive grid cells differ. Only ghost replication
	// can pair them.
	points := mustRel(t, spatialSchema,
		plan.Tuple{int64(1), 0.5 - eps/4, 0.25},
		plan.Tuple{int64(2), 0.5 + eps/4, 0.25},
	)

	rel := evalSpatial(t, points, cell, eps)
	require.Equal(t, 1, rel.Size(), "cross-boundary pair must be found exactly once")

	pair := rel.Tuples()[0]
	assert.Equal(t, int64(1), pair[0])
	assert.Equal(t, int64(2), pair[1])
	assert.InDelta(t, eps/2, pair[2].(float64), eps/100)
}

func TestSpatialJoinBoundaryPointTooFar(t *testing.T) {
	// (0.5, 0.5) sits exactly on a cell corner; replication emits ghost
	// rows for it, but the true-distance filter still rejects the pair.
	points := mustRel(t, spatialSchema,
		plan.Tuple{int64(1), 0.0, 0.0},
		plan.Tuple{int64(2), 0.5, 0.5},
	)

	rel := evalSpatial(t, points, 0.5, 0.0000106)
	assert.True(t, rel.IsEmpty())
}

func TestSpatialJoinSameCellPair(t *testing.T) {
	points := mustRel(t, spatialSchema,
		plan.Tuple{int64(1), 0.10, 0.10},
		plan.Tuple{int64(2), 0.10, 0.15},
		plan.Tuple{int64(3), 3.00, 3.00},
	)

	rel := evalSpatial(t, points, 0.5, 0.1)
	require.Equal(t, 1, rel.Size())
	assert.Equal(t, int64(1), rel.Tuples()[0][0])
	assert.Equal(t, int64(2), rel.Tuples()[0][1])
}

func TestSpatialJoinOutputSchema(t *testing.T) {
	points := mustRel(t, spatialSchema, plan.Tuple{int64(1), 0.0, 0.0})
	rel := evalSpatial(t, points, 1.0, 0.5)
	assert.Equal(t, []string{"id", "id1", "dist"}, rel.Schema().Names())
	assert.True(t, rel.IsEmpty())
}

func TestSpatialJoinValidatesParameters(t *testing.T) {
	points := mustRel(t, spatialSchema, plan.Tuple{int64(1), 0.0, 0.0})
	env := NewEnv()
	env.Bind("points", points)

	_, err := testEvaluator(env).eval(&plan.SpatialJoin{
		Input: &plan.Named{Name: "points"},
		ID:    "id", X: "x", Y: "y",
		CellSize: 0, Epsilon: 0.1,
	})
	require.Error(t, err)

	_, err = testEvaluator(env).eval(&plan.SpatialJoin{
		Input: &plan.Named{Name: "points"},
		ID:    "id", X: "x", Y: "missing",
		CellSize: 0.5, Epsilon: 0.1,
	})
	require.Error(t, err)
}
