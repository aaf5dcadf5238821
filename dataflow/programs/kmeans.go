package programs

import (
	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// CentroidSchema is the (cid, cx, cy) schema of the k-means centroid
// source and of the recomputed centroids each iteration.
var CentroidSchema = plan.Schema{
	{Name: "cid", Type: dataflow.TypeInt},
	{Name: "cx", Type: dataflow.TypeFloat},
	{Name: "cy", Type: dataflow.TypeFloat},
}

// KMeansConfig parameterizes the clustering program.
type KMeansConfig struct {
	Points    string // scan source for PointSchema
	Centroids string // scan source for CentroidSchema (initial centers)

	// Tolerance widens the closest-centroid guard so points equidistant
	// to two centers within rounding error tie instead of flapping. Ties
	// resolve to the smallest centroid id.
	Tolerance float64
}

// DefaultKMeansConfig uses sources "points" and "centroids".
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{Points: "points", Centroids: "centroids", Tolerance: 1e-6}
}

// KMeans builds the iterative clustering program: assign every point to
// its nearest centroid, recompute centroids as per-cluster means, and
// repeat until the centroid relation stops changing. The final
// assignment (id, x, y, cid) is bound under ResultName.
func KMeans(cfg KMeansConfig) *plan.Program {
	dist := plan.EuclideanDistance(plan.C("x"), plan.C("y"), plan.C("cx"), plan.C("cy"))

	body := []plan.Statement{
		&plan.Assign{Name: "prev_centroids", Op: &plan.Named{Name: "centroids"}},

		// Cross product of points and centroids, one distance per pair.
		&plan.Assign{Name: "distances", Op: plan.Emit(
			&plan.Join{
				Left:  crossTag(&plan.Named{Name: "points"}, "id", "x", "y"),
				Right: crossTag(&plan.Named{Name: "centroids"}, "cid", "cx", "cy"),
				On:    []plan.JoinKey{{Left: "k", Right: "k"}},
			},
			plan.Out("id", plan.C("id")),
			plan.Out("x", plan.C("x")),
			plan.Out("y", plan.C("y")),
			plan.Out("cid", plan.C("cid")),
			plan.Out("dist", dist),
		)},

		&plan.Assign{Name: "closest", Op: &plan.GroupBy{
			Keys:  []string{"id"},
			Aggs:  []plan.Aggregate{plan.Min(plan.C("dist"), "mindist")},
			Input: &plan.Named{Name: "distances"},
		}},

		// Keep each point's minimum-distance centroid; near-ties within
		// the tolerance go to the smallest centroid id. Probing from
		// closest makes all of a point's candidate rows matches of one
		// probe tuple, which is where the pick-min tie-break applies.
		&plan.Assign{Name: ResultName, Op: plan.Emit(
			&plan.Join{
				Left:       &plan.Named{Name: "closest"},
				Right:      &plan.Named{Name: "distances"},
				On:         []plan.JoinKey{{Left: "id", Right: "id"}},
				Guard:      plan.Le(plan.C("dist"), plan.Add(plan.C("mindist"), plan.L(cfg.Tolerance))),
				PickMinCol: "cid",
			},
			plan.Keep("id", "x", "y", "cid")...,
		)},

		&plan.Assign{Name: "centroids", Op: &plan.GroupBy{
			Keys: []string{"cid"},
			Aggs: []plan.Aggregate{
				plan.Avg(plan.C("x"), "cx"),
				plan.Avg(plan.C("y"), "cy"),
			},
			Input: &plan.Named{Name: ResultName},
		}},
	}

	return &plan.Program{
		Name: "kmeans",
		Statements: []plan.Statement{
			&plan.Assign{Name: "points", Op: &plan.Scan{Source: cfg.Points, Schema: PointSchema}},
			&plan.Assign{Name: "centroids", Op: &plan.Scan{Source: cfg.Centroids, Schema: CentroidSchema}},
			&plan.DoWhile{
				Body: body,
				Test: plan.NonEmpty(&plan.Diff{
					Left:      &plan.Named{Name: "centroids"},
					Right:     &plan.Named{Name: "prev_centroids"},
					Symmetric: true,
				}),
			},
		},
	}
}
