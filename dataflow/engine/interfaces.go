package engine

import "errors"

// Catalog resolves scan identifiers to relations and persists store
// output. Storage backends live outside the engine; failures surface as
// SourceNotFoundError, SchemaMismatchError or SinkFailureError and are
// never retried here.
type Catalog interface {
	// Scan resolves an identifier to its schema and tuples. The engine
	// re-checks the declared schema against the returned relation.
	Scan(identifier string) (*Relation, error)

	// Store persists a fully materialized relation under an identifier.
	Store(identifier string, rel *Relation) error
}

// ErrReadOnlyCatalog is returned by catalogs that do not support Store.
var ErrReadOnlyCatalog = errors.New("catalog is read-only")

// ScanFunc adapts a function to a read-only Catalog.
type ScanFunc func(identifier string) (*Relation, error)

func (f ScanFunc) Scan(identifier string) (*Relation, error) { return f(identifier) }

func (f ScanFunc) Store(identifier string, rel *Relation) error {
	return &SinkFailureError{Sink: identifier, Err: ErrReadOnlyCatalog}
}
