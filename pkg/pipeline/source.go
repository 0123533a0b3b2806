package pipeline

import (
	"context"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/query"
	"github.com/matzehuels/constellation/pkg/store"
)

// Source produces co-occurrence matrices.
type Source interface {
	// Matrix returns the matrix for f.
	Matrix(ctx context.Context, f matrix.Filter) (*matrix.Matrix, error)

	// Name identifies the source in cache keys ("store:memory",
	// "http://localhost:8080", a file path).
	Name() string
}

// StoreSource builds matrices from a corpus store.
type StoreSource struct {
	Store store.Store
	ID    string
}

// NewStoreSource returns a source reading s. id names the store in cache keys.
func NewStoreSource(s store.Store, id string) *StoreSource {
	return &StoreSource{Store: s, ID: id}
}

func (s *StoreSource) Matrix(ctx context.Context, f matrix.Filter) (*matrix.Matrix, error) {
	return store.BuildMatrix(ctx, s.Store, f)
}

func (s *StoreSource) Name() string { return "store:" + s.ID }

// FileSource serves one precomputed matrix file. Filters are applied to the
// loaded bubbles; the folder filter cannot be honored and is ignored.
type FileSource struct {
	Path string
}

func (s *FileSource) Matrix(_ context.Context, f matrix.Filter) (*matrix.Matrix, error) {
	m, err := matrix.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if f.TermID == "" {
		return m, nil
	}
	var kept []matrix.Bubble
	for _, b := range m.Bubbles {
		if b.TermID == f.TermID {
			kept = append(kept, b)
		}
	}
	return matrix.New(kept), nil
}

func (s *FileSource) Name() string { return "file:" + s.Path }

// StaticSource always returns the same matrix. It is used by tests and by
// commands that already hold a matrix.
type StaticSource struct {
	M *matrix.Matrix
}

func (s StaticSource) Matrix(context.Context, matrix.Filter) (*matrix.Matrix, error) {
	if s.M == nil {
		return matrix.New(nil), nil
	}
	return s.M, nil
}

func (s StaticSource) Name() string { return "static" }

// QuerySource wraps a source with a [query.Client] so that concurrent
// requests for the same filter share one fetch. Every call mounts the key,
// which always refetches, and unmounts it once the result is in.
type QuerySource struct {
	inner  Source
	client *query.Client[*matrix.Matrix]
}

// NewQuerySource wraps inner.
func NewQuerySource(inner Source, opts ...query.Option) *QuerySource {
	s := &QuerySource{inner: inner}
	s.client = query.New(func(ctx context.Context, key string) (*matrix.Matrix, error) {
		folderID, termID := query.SplitKey(key)
		return inner.Matrix(ctx, matrix.Filter{FolderID: folderID, TermID: termID})
	}, opts...)
	return s
}

func (s *QuerySource) Matrix(ctx context.Context, f matrix.Filter) (*matrix.Matrix, error) {
	key := query.Key(f.FolderID, f.TermID)
	defer s.client.Unmount(key)
	m, err := s.client.Mount(ctx, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New(errors.ErrCodeInternal, "source %s returned no matrix", s.inner.Name())
	}
	return m, nil
}

func (s *QuerySource) Name() string { return s.inner.Name() }

// Client exposes the underlying query client.
func (s *QuerySource) Client() *query.Client[*matrix.Matrix] { return s.client }
