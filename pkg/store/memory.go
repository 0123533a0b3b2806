package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/constellation/pkg/matrix"
)

// Memory is an in-process Store. Records keep their first insertion order;
// replacing a record keeps its position.
type Memory struct {
	mu       sync.RWMutex
	notes    ordered[matrix.Note]
	thinkers ordered[matrix.Thinker]
	terms    ordered[matrix.CriticalTerm]
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFrom returns a store preloaded with c. Records without an ID get
// a fresh one.
func NewMemoryFrom(c matrix.Corpus) *Memory {
	m := NewMemory()
	c = AssignIDs(c)
	for _, n := range c.Notes {
		m.notes.put(n.ID, n)
	}
	for _, th := range c.Thinkers {
		m.thinkers.put(th.ID, th)
	}
	for _, t := range c.Terms {
		m.terms.put(t.ID, t)
	}
	return m
}

func (m *Memory) Corpus(ctx context.Context, f matrix.Filter) (matrix.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return matrix.Corpus{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := matrix.Corpus{
		Thinkers: slices.Clone(m.thinkers.items),
		Terms:    slices.Clone(m.terms.items),
	}
	for _, n := range m.notes.items {
		if f.FolderID == "" || n.FolderID == f.FolderID {
			c.Notes = append(c.Notes, n)
		}
	}
	return c, nil
}

func (m *Memory) PutNotes(ctx context.Context, notes ...matrix.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range notes {
		m.notes.put(n.ID, n)
	}
	return nil
}

func (m *Memory) PutThinkers(ctx context.Context, thinkers ...matrix.Thinker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, th := range thinkers {
		m.thinkers.put(th.ID, th)
	}
	return nil
}

func (m *Memory) PutTerms(ctx context.Context, terms ...matrix.CriticalTerm) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range terms {
		m.terms.put(t.ID, t)
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close(context.Context) error { return nil }

type ordered[T any] struct {
	items []T
	index map[string]int
}

func (o *ordered[T]) put(id string, v T) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[id]; ok {
		o.items[i] = v
		return
	}
	o.index[id] = len(o.items)
	o.items = append(o.items, v)
}
