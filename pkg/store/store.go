// Package store persists the notes corpus the co-occurrence matrix is built
// from.
//
// A [Store] holds notes, thinkers and critical terms. [Memory] keeps them in
// process; the mongo subpackage keeps them in MongoDB. Corpus files (JSON or
// YAML) are read with [LoadCorpusFile] and written into any store with
// [Import].
package store

import (
	"context"
	"fmt"

	"github.com/matzehuels/constellation/pkg/matrix"
)

// Store is a goroutine-safe corpus store.
type Store interface {
	// Corpus returns the notes matching f.FolderID with every thinker and
	// term. The term filter is applied by the matrix builder.
	Corpus(ctx context.Context, f matrix.Filter) (matrix.Corpus, error)

	// PutNotes, PutThinkers and PutTerms insert or replace by ID.
	PutNotes(ctx context.Context, notes ...matrix.Note) error
	PutThinkers(ctx context.Context, thinkers ...matrix.Thinker) error
	PutTerms(ctx context.Context, terms ...matrix.CriticalTerm) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close(ctx context.Context) error
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	Notes    int
	Thinkers int
	Terms    int
}

// Import writes every record of c into s. Records without an ID get a
// fresh one first.
func Import(ctx context.Context, s Store, c matrix.Corpus) (ImportStats, error) {
	c = AssignIDs(c)
	if err := s.PutThinkers(ctx, c.Thinkers...); err != nil {
		return ImportStats{}, fmt.Errorf("import thinkers: %w", err)
	}
	if err := s.PutTerms(ctx, c.Terms...); err != nil {
		return ImportStats{}, fmt.Errorf("import terms: %w", err)
	}
	if err := s.PutNotes(ctx, c.Notes...); err != nil {
		return ImportStats{}, fmt.Errorf("import notes: %w", err)
	}
	return ImportStats{Notes: len(c.Notes), Thinkers: len(c.Thinkers), Terms: len(c.Terms)}, nil
}

// BuildMatrix loads the corpus for f from s and computes its matrix.
func BuildMatrix(ctx context.Context, s Store, f matrix.Filter) (*matrix.Matrix, error) {
	c, err := s.Corpus(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return matrix.Build(c, f)
}
