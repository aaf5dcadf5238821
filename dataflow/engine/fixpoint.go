package engine

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/ominux/raco/dataflow/plan"
)

// LoopState names the fixpoint controller's states.
type LoopState int

const (
	LoopInitializing LoopState = iota
	LoopRunningIteration
	LoopTestingContinuation
	LoopConverged
	LoopIterationCapExceeded
)

func (s LoopState) String() string {
	switch s {
	case LoopInitializing:
		return "Initializing"
	case LoopRunningIteration:
		return "Running-Iteration"
	case LoopTestingContinuation:
		return "Testing-Continuation"
	case LoopConverged:
		return "Converged"
	case LoopIterationCapExceeded:
		return "IterationCapExceeded"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// LoopResult reports how a fixpoint loop ended.
type LoopResult struct {
	State      LoopState
	Iterations int
}

// loopController executes one DoWhile block to a fixpoint. Each
// iteration runs the body against a cloned binding snapshot and swaps
// the snapshot in atomically once the full iteration (body plus
// continuation test) has resolved; no operator ever observes a
// partially rebound environment. The continuation test is re-evaluated
// fresh every pass from the then-current bindings, never cached.
type loopController struct {
	interp *Interpreter
	node   *plan.DoWhile
	label  string

	state LoopState
}

func (lc *loopController) run(env *Env, depth int) (LoopResult, error) {
	lc.state = LoopInitializing
	maxIter := lc.interp.opts.MaxIterations

	for iteration := 1; ; iteration++ {
		if iteration > maxIter {
			lc.state = LoopIterationCapExceeded
			return LoopResult{State: lc.state, Iterations: iteration - 1},
				&IterationCapError{Loop: lc.label, Cap: maxIter}
		}

		lc.state = LoopRunningIteration
		next := env.Clone()
		if err := lc.interp.runStatements(lc.node.Body, next, iteration, depth); err != nil {
			return LoopResult{State: lc.state, Iterations: iteration}, err
		}

		lc.state = LoopTestingContinuation
		ev := lc.interp.newEvaluator(next)
		ev.iteration = iteration
		testRel, err := ev.eval(lc.node.Test)
		if err != nil {
			return LoopResult{State: lc.state, Iterations: iteration}, err
		}
		cont, err := truthValue(testRel)
		if err != nil {
			return LoopResult{State: lc.state, Iterations: iteration},
				&OpError{Op: "dowhile", Relation: lc.label, Iteration: iteration, Err: err}
		}

		// The iteration is complete; swap its bindings in atomically.
		env.Replace(next)

		if lc.interp.opts.EnableDebugLogging {
			fmt.Printf("[%s] iteration %d %s continue=%v\n",
				color.MagentaString(lc.label), iteration, lc.state, cont)
		}

		if !cont {
			lc.state = LoopConverged
			return LoopResult{State: lc.state, Iterations: iteration}, nil
		}
	}
}
