package programs

import (
	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// ValueSchema is the (id, v) input schema of the sigma-clipping program.
var ValueSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "v", Type: dataflow.TypeFloat},
}

// SigmaClipConfig parameterizes the outlier rejection program.
type SigmaClipConfig struct {
	Values string // scan source for ValueSchema

	// NSigma is the rejection threshold in standard deviations.
	NSigma float64
}

// DefaultSigmaClipConfig uses source "values" and a 2-sigma threshold.
func DefaultSigmaClipConfig() SigmaClipConfig {
	return SigmaClipConfig{Values: "values", NSigma: 2}
}

// SigmaClip builds the iterative outlier rejection program: compute the
// mean and variance of the surviving values, discard every value more
// than NSigma standard deviations from the mean, and repeat until no
// value is discarded. The comparison squares both sides, so the variance
// never passes through sqrt and rounding can never push it negative.
// The surviving values are bound under ResultName.
func SigmaClip(cfg SigmaClipConfig) *plan.Program {
	dev := plan.Sub(plan.C("v"), plan.C("mean"))
	nsq := cfg.NSigma * cfg.NSigma

	body := []plan.Statement{
		&plan.Assign{Name: "stats", Op: plan.Emit(
			&plan.GroupBy{
				Aggs: []plan.Aggregate{
					plan.Avg(plan.C("v"), "mean"),
					plan.Avg(plan.Mul(plan.C("v"), plan.C("v")), "meansq"),
				},
				Input: &plan.Named{Name: ResultName},
			},
			plan.Out("mean", plan.C("mean")),
			plan.Out("variance", plan.Sub(plan.C("meansq"), plan.Mul(plan.C("mean"), plan.C("mean")))),
			plan.Out("k", plan.L(int64(1))),
		)},

		&plan.Assign{Name: "rejected", Op: plan.Emit(
			&plan.Filter{
				Pred: plan.Gt(plan.Mul(dev, dev), plan.Mul(plan.L(nsq), plan.C("variance"))),
				Input: &plan.Join{
					Left:  crossTag(&plan.Named{Name: ResultName}, "id", "v"),
					Right: &plan.Named{Name: "stats"},
					On:    []plan.JoinKey{{Left: "k", Right: "k"}},
				},
			},
			plan.Keep("id", "v")...,
		)},

		&plan.Assign{Name: ResultName, Op: &plan.Diff{
			Left:  &plan.Named{Name: ResultName},
			Right: &plan.Named{Name: "rejected"},
		}},
	}

	return &plan.Program{
		Name: "sigmaclip",
		Statements: []plan.Statement{
			&plan.Assign{Name: ResultName, Op: &plan.Scan{Source: cfg.Values, Schema: ValueSchema}},
			&plan.DoWhile{
				Body: body,
				Test: plan.NonEmpty(&plan.Named{Name: "rejected"}),
			},
		},
	}
}
