// Package catalog provides storage backends for the engine's scan
// sources and store sinks: an in-memory catalog for tests and embedded
// use, a BadgerDB-backed catalog for persistence, and CSV loading for
// the command line.
package catalog

import (
	"sync"

	"github.com/ominux/raco/dataflow/engine"
)

// MemoryCatalog holds relations in a map. Safe for concurrent use.
type MemoryCatalog struct {
	mu        sync.RWMutex
	relations map[string]*engine.Relation
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{relations: make(map[string]*engine.Relation)}
}

// Scan resolves an identifier, or fails with SourceNotFoundError.
func (c *MemoryCatalog) Scan(identifier string) (*engine.Relation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rel, ok := c.relations[identifier]
	if !ok {
		return nil, &engine.SourceNotFoundError{Source: identifier}
	}
	return rel, nil
}

// Store binds a relation under an identifier, replacing any previous
// relation stored there.
func (c *MemoryCatalog) Store(identifier string, rel *engine.Relation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relations[identifier] = rel.WithName(identifier)
	return nil
}

// Names returns the stored identifiers.
func (c *MemoryCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.relations))
	for name := range c.relations {
		names = append(names, name)
	}
	return names
}
