// Package query caches remote query results for front ends that mount and
// unmount views of them.
//
// A [Client] follows a refetch-on-mount policy: every [Client.Mount] fetches
// fresh data, concurrent fetches of the same key share one call, and
// [Client.Get] on a mounted key serves the last result without touching
// the network. Unmounting keeps the last result around so that the next
// mount can show it while its own fetch runs.
//
// The constellation view keys queries by folder and term:
//
//	c := query.New(func(ctx context.Context, key string) (*matrix.Matrix, error) {
//	    folder, term := query.SplitKey(key)
//	    return apiClient.Matrix(ctx, matrix.Filter{FolderID: folder, TermID: term})
//	})
//	m, err := c.Mount(ctx, query.Key(folderID, termID))
//	defer c.Unmount(query.Key(folderID, termID))
package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds one shared fetch.
const DefaultTimeout = 30 * time.Second

// FetchFunc loads the value of key.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// Entry is the state of one key.
type Entry[V any] struct {
	Value     V
	Err       error
	FetchedAt time.Time
	Observers int
	// Fetches counts completed fetches of the key.
	Fetches int
}

// Client is a goroutine-safe cached-query client.
type Client[V any] struct {
	fetch   FetchFunc[V]
	timeout time.Duration

	mu      sync.RWMutex
	entries map[string]*Entry[V]
	flight  singleflight.Group
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout sets the timeout of a shared fetch.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// New creates a client around fetch.
func New[V any](fetch FetchFunc[V], opts ...Option) *Client[V] {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client[V]{
		fetch:   fetch,
		timeout: o.timeout,
		entries: make(map[string]*Entry[V]),
	}
}

// Key joins a folder and term filter into a query key.
func Key(folderID, termID string) string {
	return folderID + "|" + termID
}

// SplitKey is the inverse of Key.
func SplitKey(key string) (folderID, termID string) {
	folderID, termID, _ = strings.Cut(key, "|")
	return folderID, termID
}

// Mount registers an observer of key and fetches it. Concurrent mounts of
// the same key wait for a single fetch. The fetch outlives the caller's
// cancellation so other waiters still get the result; a canceled caller
// returns ctx.Err().
func (c *Client[V]) Mount(ctx context.Context, key string) (V, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.Observers++
	c.mu.Unlock()

	return c.refetch(ctx, key)
}

// Refetch fetches key again without changing its observers.
func (c *Client[V]) Refetch(ctx context.Context, key string) (V, error) {
	return c.refetch(ctx, key)
}

func (c *Client[V]) refetch(ctx context.Context, key string) (V, error) {
	ch := c.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		v, err := c.fetch(fctx, key)

		c.mu.Lock()
		e := c.entryLocked(key)
		e.Fetches++
		e.Err = err
		if err == nil {
			e.Value = v
			e.FetchedAt = time.Now()
		}
		c.mu.Unlock()
		return v, err
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Get returns the cached value of a mounted key. ok is false when the key is
// not mounted, has never been fetched successfully or its last fetch failed.
func (c *Client[V]) Get(key string) (v V, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.entries[key]
	if !found || e.Observers == 0 || e.FetchedAt.IsZero() || e.Err != nil {
		return v, false
	}
	return e.Value, true
}

// Unmount releases one observer of key. The cached value is kept.
func (c *Client[V]) Unmount(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.Observers > 0 {
		e.Observers--
	}
}

// Invalidate drops the cached value of key. Observers stay registered.
func (c *Client[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		*e = Entry[V]{Observers: e.Observers, Fetches: e.Fetches}
	}
}

// State returns a snapshot of key's entry.
func (c *Client[V]) State(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return *e, true
}

func (c *Client[V]) entryLocked(key string) *Entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &Entry[V]{}
		c.entries[key] = e
	}
	return e
}
