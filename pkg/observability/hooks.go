// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation stays optional: libraries call the registered hooks and
// main decides what backs them. The defaults are no-ops; the prom
// subpackage provides a Prometheus implementation that serve registers.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetPipelineHooks(h)
//	    observability.SetCacheHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnFetchStart(ctx, folderID, termID)
//	// ... load the matrix ...
//	observability.Pipeline().OnFetchComplete(ctx, folderID, termID, bubbles, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the constellation pipeline.
type PipelineHooks interface {
	// Matrix fetch events
	OnFetchStart(ctx context.Context, folderID, termID string)
	OnFetchComplete(ctx context.Context, folderID, termID string, bubbles int, duration time.Duration, err error)

	// Layout events. exhausted counts placements that hit the spiral ceiling.
	OnLayoutStart(ctx context.Context, bubbles int)
	OnLayoutComplete(ctx context.Context, bubbles, exhausted int, duration time.Duration)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives pipeline cache lookups. keyType is "matrix",
// "layout" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives requests made by the matrix API client. OnError is
// called instead of OnResponse when no response arrived.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// ServerHooks receives events from the HTTP server.
type ServerHooks interface {
	// OnServe records a handled request. route is the matched route pattern.
	OnServe(ctx context.Context, method, route string, statusCode int, duration time.Duration)

	// OnClick records a bubble click forwarded by the API.
	OnClick(ctx context.Context, termID, thinkerID string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnFetchStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnFetchComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, int, time.Duration)        {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnServe(context.Context, string, string, int, time.Duration) {}
func (NoopServerHooks) OnClick(context.Context, string, string)                     {}

// =============================================================================
// Registry
// =============================================================================

// slot holds the registered implementation of one hook interface.
type slot[H any] struct {
	mu   sync.RWMutex
	noop H
	h    H
}

func newSlot[H any](noop H) *slot[H] {
	return &slot[H]{noop: noop, h: noop}
}

func (s *slot[H]) load() H {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

// store ignores nil so a missing backend never replaces the no-op.
func (s *slot[H]) store(h H) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *slot[H]) reset() {
	s.mu.Lock()
	s.h = s.noop
	s.mu.Unlock()
}

var (
	pipelineSlot = newSlot[PipelineHooks](NoopPipelineHooks{})
	cacheSlot    = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot     = newSlot[HTTPHooks](NoopHTTPHooks{})
	serverSlot   = newSlot[ServerHooks](NoopServerHooks{})
)

// SetPipelineHooks registers pipeline hooks. Call it before the first
// runner executes.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.store(h) }

// SetCacheHooks registers cache hooks.
func SetCacheHooks(h CacheHooks) { cacheSlot.store(h) }

// SetHTTPHooks registers hooks for the matrix API client.
func SetHTTPHooks(h HTTPHooks) { httpSlot.store(h) }

// SetServerHooks registers hooks for the API server.
func SetServerHooks(h ServerHooks) { serverSlot.store(h) }

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.load() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.load() }

// HTTP returns the registered API client hooks.
func HTTP() HTTPHooks { return httpSlot.load() }

// Server returns the registered API server hooks.
func Server() ServerHooks { return serverSlot.load() }

// Reset restores every hook to its no-op default. Tests use it in cleanup.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
	serverSlot.reset()
}
