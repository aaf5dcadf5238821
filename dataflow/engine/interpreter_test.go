package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// stubCatalog is a map-backed catalog for interpreter tests; the real
// backends live in the catalog package.
type stubCatalog struct {
	relations map[string]*Relation
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{relations: make(map[string]*Relation)}
}

func (c *stubCatalog) Scan(identifier string) (*Relation, error) {
	rel, ok := c.relations[identifier]
	if !ok {
		return nil, &SourceNotFoundError{Source: identifier}
	}
	return rel, nil
}

func (c *stubCatalog) Store(identifier string, rel *Relation) error {
	c.relations[identifier] = rel
	return nil
}

func TestInterpreterRunsStatementSequence(t *testing.T) {
	cat := newStubCatalog()
	cat.relations["points"] = mustRel(t, pointSchema,
		plan.Tuple{int64(1), 1.0},
		plan.Tuple{int64(2), 5.0},
	)

	prog := &plan.Program{
		Name: "select-store",
		Statements: []plan.Statement{
			&plan.Assign{Name: "points", Op: &plan.Scan{Source: "points", Schema: pointSchema}},
			&plan.Assign{Name: "big", Op: &plan.Filter{
				Pred:  plan.Gt(plan.C("x"), plan.L(2.0)),
				Input: &plan.Named{Name: "points"},
			}},
			&plan.Store{Name: "big", Key: "big_out"},
		},
	}

	interp := New(cat, DefaultOptions())
	result, err := interp.Run(prog)
	require.NoError(t, err)

	bound, err := result.Env.MustLookup("big")
	require.NoError(t, err)
	assert.Equal(t, 1, bound.Size())

	stored, ok := cat.relations["big_out"]
	require.True(t, ok, "store must persist through the catalog")
	assert.True(t, bound.EqualMultiset(stored))
}

func TestStoreOfUnboundRelationFails(t *testing.T) {
	prog := &plan.Program{
		Statements: []plan.Statement{
			&plan.Store{Name: "missing", Key: "out"},
		},
	}

	interp := New(newStubCatalog(), DefaultOptions())
	_, err := interp.Run(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRunWithEnvSeedsBindings(t *testing.T) {
	env := NewEnv()
	env.Bind("seed", mustRel(t, pointSchema, plan.Tuple{int64(7), 7.0}))

	prog := &plan.Program{
		Statements: []plan.Statement{
			&plan.Assign{Name: "copy", Op: &plan.Named{Name: "seed"}},
		},
	}

	interp := New(newStubCatalog(), DefaultOptions())
	result, err := interp.RunWithEnv(prog, env)
	require.NoError(t, err)

	rel, err := result.Env.MustLookup("copy")
	require.NoError(t, err)
	assert.Equal(t, 1, rel.Size())
}

func TestContinuationTestMustBeSingleBoolean(t *testing.T) {
	prog := &plan.Program{
		Statements: []plan.Statement{
			&plan.Assign{Name: "acc", Op: &plan.Values{
				Schema: plan.Schema{{Name: "n", Type: dataflow.TypeInt}},
				Rows:   []plan.Tuple{{int64(1)}},
			}},
			&plan.DoWhile{
				Body: []plan.Statement{
					&plan.Assign{Name: "acc", Op: &plan.Named{Name: "acc"}},
				},
				// Not a boolean relation: the loop must reject it.
				Test: &plan.Named{Name: "acc"},
			},
		},
	}

	interp := New(newStubCatalog(), DefaultOptions())
	_, err := interp.Run(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "continuation test")
}
