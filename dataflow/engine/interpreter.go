package engine

import (
	"fmt"

	"github.com/ominux/raco/dataflow/plan"
)

// Interpreter executes programs: ordered sequences of relation bindings,
// stores, and fixpoint loops, against a catalog of external sources and
// sinks.
type Interpreter struct {
	catalog Catalog
	opts    Options
	pool    *WorkerPool
}

// New creates an interpreter over a catalog with the given options.
// A zero MaxIterations means the default cap, so a zero-value Options
// does not render every loop cap-exceeded.
func New(catalog Catalog, opts Options) *Interpreter {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	var pool *WorkerPool
	if opts.Workers > 1 {
		pool = NewWorkerPool(opts.Workers)
	}
	return &Interpreter{catalog: catalog, opts: opts, pool: pool}
}

// Result is the final binding environment of a completed program, plus
// the outcome of any fixpoint loops it ran.
type Result struct {
	Env   *Env
	Loops []LoopResult
}

// Run executes the program from an empty environment.
func (in *Interpreter) Run(p *plan.Program) (*Result, error) {
	return in.RunWithEnv(p, NewEnv())
}

// RunWithEnv executes the program against pre-seeded bindings. An
// IterationCapError aborts the program but still returns the result so
// the caller can decide whether a capped loop is success-with-caveat.
func (in *Interpreter) RunWithEnv(p *plan.Program, env *Env) (*Result, error) {
	result := &Result{Env: env}
	err := in.runProgram(p, env, result)
	return result, err
}

func (in *Interpreter) runProgram(p *plan.Program, env *Env, result *Result) error {
	for _, stmt := range p.Statements {
		if err := in.runStatement(stmt, env, 0, 0, result); err != nil {
			return err
		}
	}
	return nil
}

// runStatements executes a statement list inside a loop body: bindings
// accumulate sequentially within the iteration.
func (in *Interpreter) runStatements(stmts []plan.Statement, env *Env, iteration, depth int) error {
	for _, stmt := range stmts {
		if err := in.runStatement(stmt, env, iteration, depth, nil); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) runStatement(stmt plan.Statement, env *Env, iteration, depth int, result *Result) error {
	switch s := stmt.(type) {
	case *plan.Assign:
		ev := in.newEvaluator(env)
		ev.binding = s.Name
		ev.iteration = iteration
		rel, err := ev.eval(s.Op)
		if err != nil {
			return err
		}
		env.Bind(s.Name, rel)
		return nil

	case *plan.Store:
		rel, err := env.MustLookup(s.Name)
		if err != nil {
			return &OpError{Op: "store", Relation: s.Name, Iteration: iteration, Err: err}
		}
		// rel is fully materialized and immutable by construction.
		if err := in.catalog.Store(s.Key, rel); err != nil {
			return &OpError{Op: "store", Relation: s.Name, Iteration: iteration, Err: err}
		}
		return nil

	case *plan.DoWhile:
		label := fmt.Sprintf("loop-%d", depth+1)
		lc := &loopController{interp: in, node: s, label: label}
		loopResult, err := lc.run(env, depth+1)
		if result != nil {
			result.Loops = append(result.Loops, loopResult)
		}
		return err

	default:
		return fmt.Errorf("unknown statement %T", stmt)
	}
}

func (in *Interpreter) newEvaluator(env *Env) *evaluator {
	return &evaluator{
		catalog: in.catalog,
		opts:    in.opts,
		pool:    in.pool,
		env:     env,
	}
}
