// Package programs builds the canonical plans the engine was designed to
// run: k-means clustering, spatial proximity search, iterative sigma
// clipping and argmax classification. Each constructor returns a plan
// over declared scan sources; callers run them with an engine
// interpreter over any catalog.
package programs

import (
	"fmt"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// ResultName is the binding every program leaves its final relation
// under.
const ResultName = "result"

// PointSchema is the (id, x, y) input schema shared by the k-means and
// spatial programs.
var PointSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "x", Type: dataflow.TypeFloat},
	{Name: "y", Type: dataflow.TypeFloat},
}

// Builder constructs a program over a named scan source.
type Builder func(source string) *plan.Program

// ByName resolves a program name to its builder with default parameters.
func ByName(name string) (Builder, error) {
	switch name {
	case "kmeans":
		return func(source string) *plan.Program {
			cfg := DefaultKMeansConfig()
			cfg.Points = source
			return KMeans(cfg)
		}, nil
	case "spatial":
		return func(source string) *plan.Program {
			cfg := DefaultSpatialConfig()
			cfg.Points = source
			return SpatialProximity(cfg)
		}, nil
	case "sigmaclip":
		return func(source string) *plan.Program {
			cfg := DefaultSigmaClipConfig()
			cfg.Values = source
			return SigmaClip(cfg)
		}, nil
	case "classify":
		return func(source string) *plan.Program {
			return Classify(ClassifyConfig{Scores: source})
		}, nil
	default:
		return nil, fmt.Errorf("unknown program %q (have kmeans, spatial, sigmaclip, classify)", name)
	}
}

// Schemas returns the scan sources a named program reads and their
// declared schemas. The primary source is the one ByName's builder
// rebinds; k-means additionally reads the fixed "centroids" source.
func Schemas(name string) (map[string]plan.Schema, error) {
	switch name {
	case "kmeans":
		return map[string]plan.Schema{
			"points":    PointSchema,
			"centroids": CentroidSchema,
		}, nil
	case "spatial":
		return map[string]plan.Schema{"points": PointSchema}, nil
	case "sigmaclip":
		return map[string]plan.Schema{"values": ValueSchema}, nil
	case "classify":
		return map[string]plan.Schema{"scores": ScoreSchema}, nil
	default:
		return nil, fmt.Errorf("unknown program %q", name)
	}
}

// DefaultSource returns the primary scan source name of a program.
func DefaultSource(name string) string {
	switch name {
	case "sigmaclip":
		return "values"
	case "classify":
		return "scores"
	default:
		return "points"
	}
}

// crossTag appends a constant join key so two relations can be joined as
// a full cross product through the equi-join.
func crossTag(input plan.Operator, keep ...string) plan.Operator {
	cols := plan.Keep(keep...)
	cols = append(cols, plan.Out("k", plan.L(int64(1))))
	return &plan.Project{Cols: cols, Input: input}
}
