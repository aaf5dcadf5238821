package programs

import (
	"github.com/ominux/raco/dataflow/plan"
)

// SpatialConfig parameterizes the proximity search program.
type SpatialConfig struct {
	Points string // scan source for PointSchema

	// CellSize is the grid partition width; Epsilon is the maximum pair
	// distance. CellSize must be at least Epsilon or boundary ghosts
	// cannot cover all cross-cell pairs.
	CellSize float64
	Epsilon  float64
}

// DefaultSpatialConfig uses source "points" with half-unit cells.
func DefaultSpatialConfig() SpatialConfig {
	return SpatialConfig{Points: "points", CellSize: 0.5, Epsilon: 0.0000106}
}

// SpatialProximity builds the proximity search program: all unordered
// point pairs within Epsilon of each other, found by the replication
// join instead of a full cross product. Bound under ResultName as
// (id, id1, dist).
func SpatialProximity(cfg SpatialConfig) *plan.Program {
	return &plan.Program{
		Name: "spatial",
		Statements: []plan.Statement{
			&plan.Assign{Name: ResultName, Op: &plan.SpatialJoin{
				Input:    &plan.Scan{Source: cfg.Points, Schema: PointSchema},
				ID:       "id",
				X:        "x",
				Y:        "y",
				CellSize: cfg.CellSize,
				Epsilon:  cfg.Epsilon,
			}},
		},
	}
}
