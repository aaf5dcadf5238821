package programs

import (
	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// ScoreSchema is the (id, outcome, lprob) input schema of the
// classification program: one candidate outcome per row with its
// log-probability.
var ScoreSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "outcome", Type: dataflow.TypeString},
	{Name: "lprob", Type: dataflow.TypeFloat},
}

// ClassifyConfig parameterizes the classification program.
type ClassifyConfig struct {
	Scores string // scan source for ScoreSchema
}

// Classify builds the argmax classification program: per id, pick the
// outcome with the greatest log-probability. Equal scores resolve to the
// greater outcome under the total value order, so the result does not
// depend on row order. Bound under ResultName as (id, outcome).
func Classify(cfg ClassifyConfig) *plan.Program {
	return &plan.Program{
		Name: "classify",
		Statements: []plan.Statement{
			&plan.Assign{Name: ResultName, Op: &plan.GroupBy{
				Keys: []string{"id"},
				Aggs: []plan.Aggregate{
					plan.User(plan.ArgMax("lprob", "outcome"), "outcome", dataflow.TypeString),
				},
				Input: &plan.Scan{Source: cfg.Scores, Schema: ScoreSchema},
			}},
		},
	}
}
