package catalog

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/ominux/raco/dataflow/engine"
)

const relationKeyPrefix = "relation/"

// BadgerCatalog persists relations in a BadgerDB database, one blob per
// relation under the key "relation/<identifier>".
type BadgerCatalog struct {
	db *badger.DB
}

// OpenBadgerCatalog opens (or creates) a catalog database at path.
func OpenBadgerCatalog(path string) (*BadgerCatalog, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logs drown program output

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerCatalog{db: db}, nil
}

// Close closes the underlying database.
func (c *BadgerCatalog) Close() error {
	return c.db.Close()
}

func relationKey(identifier string) []byte {
	return []byte(relationKeyPrefix + identifier)
}

// Scan reads and decodes the relation stored under an identifier.
func (c *BadgerCatalog) Scan(identifier string) (*engine.Relation, error) {
	var blob []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(relationKey(identifier))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &engine.SourceNotFoundError{Source: identifier}
	}
	if err != nil {
		return nil, fmt.Errorf("reading relation %q: %w", identifier, err)
	}
	return DecodeRelation(identifier, blob)
}

// Store encodes and writes a relation under an identifier, replacing any
// previous version.
func (c *BadgerCatalog) Store(identifier string, rel *engine.Relation) error {
	blob, err := EncodeRelation(rel)
	if err != nil {
		return &engine.SinkFailureError{Sink: identifier, Err: err}
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(relationKey(identifier), blob)
	})
	if err != nil {
		return &engine.SinkFailureError{Sink: identifier, Err: err}
	}
	return nil
}

// Names lists the stored relation identifiers.
func (c *BadgerCatalog) Names() ([]string, error) {
	var names []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(relationKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
