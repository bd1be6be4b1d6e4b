// Package store provides the SQLite persistence layer for the clone
// registry. Every query is scoped to an owning user: a caller can never see
// or mutate another owner's clones.
package store

import (
	"database/sql"

	"github.com/hazyhaar/miroir/dbopen"
)

// Store is the clone registry database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the registry database at path, applies the
// production pragmas and the registry schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
