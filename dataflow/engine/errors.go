// Package engine evaluates dataflow plans: it implements the relation
// model, the relational operator library, the aggregate framework, the
// fixpoint loop controller and the spatial replication join over the
// plan package's operator trees.
package engine

import (
	"errors"
	"fmt"

	"github.com/ominux/raco/dataflow/plan"
)

// SchemaMismatchError reports a tuple or relation violating a schema's
// arity or types. Always fatal to the operator that detected it.
type SchemaMismatchError struct {
	Relation string
	Detail   string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in relation %q: %s", e.Relation, e.Detail)
}

// EmptyGroupError reports an aggregate requiring non-empty input applied
// to an empty group. count and sum have identities and never raise this.
type EmptyGroupError struct {
	Aggregate string
}

func (e *EmptyGroupError) Error() string {
	return fmt.Sprintf("aggregate %s applied to empty group", e.Aggregate)
}

// SourceNotFoundError reports a scan identifier the catalog cannot
// resolve. Surfaced verbatim; the engine never retries.
type SourceNotFoundError struct {
	Source string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("scan source %q not found", e.Source)
}

// SinkFailureError reports a store sink failure.
type SinkFailureError struct {
	Sink string
	Err  error
}

func (e *SinkFailureError) Error() string {
	return fmt.Sprintf("store to sink %q failed: %v", e.Sink, e.Err)
}

func (e *SinkFailureError) Unwrap() error { return e.Err }

// IterationCapError is the distinguished outcome of a fixpoint loop that
// hit its iteration cap without converging. It is not silently treated
// as convergence; the caller decides how to interpret it.
type IterationCapError struct {
	Loop string
	Cap  int
}

func (e *IterationCapError) Error() string {
	return fmt.Sprintf("loop %q exceeded iteration cap %d without converging", e.Loop, e.Cap)
}

// OpError attaches reproduction context to an operator failure: the
// operator kind, the relation name being bound (if any), and the loop
// iteration number (0 outside loops).
type OpError struct {
	Op        string
	Relation  string
	Iteration int
	Err       error
}

func (e *OpError) Error() string {
	if e.Iteration > 0 {
		return fmt.Sprintf("%s (binding %q, iteration %d): %v", e.Op, e.Relation, e.Iteration, e.Err)
	}
	if e.Relation != "" {
		return fmt.Sprintf("%s (binding %q): %v", e.Op, e.Relation, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// IsDomainError reports whether err wraps an illegal scalar operation.
func IsDomainError(err error) bool {
	var de *plan.DomainError
	return errors.As(err, &de)
}
