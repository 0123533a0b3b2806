package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/constellation/pkg/cache"
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/observability"
	"github.com/matzehuels/constellation/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching behaves the same everywhere.
//
// The Runner holds no per-run state: multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Source Source
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Cache lifetimes of fetched matrices and computed layouts.
	MatrixTTL time.Duration
	LayoutTTL time.Duration
}

// NewRunner creates a runner reading from src.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(src Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Source: src,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,

		MatrixTTL: cache.TTLMatrix,
		LayoutTTL: cache.TTLLayout,
	}
}

// Execute runs the complete fetch → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Fetch
	fetchStart := time.Now()
	m, hash, hit, err := r.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	result.Matrix = m
	result.MatrixHash = hash
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.Bubbles = len(m.Bubbles)
	result.CacheInfo.MatrixHit = hit

	r.Logger.Info("fetched matrix",
		"bubbles", len(m.Bubbles),
		"max_frequency", m.MaxFrequency,
		"cached", hit,
		"duration", result.Stats.FetchTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	l, layoutHit, err := r.LayoutWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Exhausted = l.Exhausted
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"bubbles", len(l.Bubbles),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, m, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// FetchWithCacheInfo loads the matrix for opts and returns its content hash
// and whether it came from the cache. Refresh skips the cache read.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, opts Options) (*matrix.Matrix, string, bool, error) {
	if r.Source == nil {
		return nil, "", false, errors.New(errors.ErrCodeInternal, "pipeline has no matrix source")
	}
	if err := errors.ValidateOptionalID("folder", opts.FolderID); err != nil {
		return nil, "", false, err
	}
	if err := errors.ValidateOptionalID("term", opts.TermID); err != nil {
		return nil, "", false, err
	}

	cacheKey := r.Keyer.MatrixKey(r.Source.Name(), cache.MatrixKeyOpts{
		FolderID: opts.FolderID,
		TermID:   opts.TermID,
	})

	if !opts.Refresh {
		if data, ok := r.cacheGet(ctx, cacheKey, "matrix"); ok {
			if m, err := matrix.Unmarshal(data); err == nil {
				return m, cache.Hash(data), true, nil
			}
		}
	}

	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, opts.FolderID, opts.TermID)
	start := time.Now()
	m, err := r.Source.Matrix(ctx, opts.Filter())
	bubbles := 0
	if m != nil {
		bubbles = len(m.Bubbles)
	}
	hooks.OnFetchComplete(ctx, opts.FolderID, opts.TermID, bubbles, time.Since(start), err)
	if err != nil {
		return nil, "", false, err
	}

	data, err := matrix.Marshal(m)
	if err != nil {
		return nil, "", false, fmt.Errorf("serialize matrix: %w", err)
	}
	r.cacheSet(ctx, cacheKey, "matrix", data, r.MatrixTTL)
	return m, cache.Hash(data), false, nil
}

// Fetch is a convenience wrapper that calls FetchWithCacheInfo and discards
// the hash and cache hit info.
func (r *Runner) Fetch(ctx context.Context, opts Options) (*matrix.Matrix, error) {
	m, _, _, err := r.FetchWithCacheInfo(ctx, opts)
	return m, err
}

// LayoutWithCacheInfo packs m with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, m *matrix.Matrix, opts Options) (constellation.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return constellation.Layout{}, false, err
	}
	if m == nil {
		m = matrix.New(nil)
	}

	matrixData, err := matrix.Marshal(m)
	if err != nil {
		return constellation.Layout{}, false, fmt.Errorf("serialize matrix for cache key: %w", err)
	}
	cacheKey := r.Keyer.LayoutKey(cache.Hash(matrixData), opts.LayoutKeyOpts())

	if data, ok := r.cacheGet(ctx, cacheKey, "layout"); ok {
		if l, err := constellation.UnmarshalLayout(data); err == nil {
			return l, true, nil
		}
		// Undecodable entries are recomputed.
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(m.Bubbles))
	start := time.Now()
	l := constellation.Compute(m, opts.Layout, opts.ColorMode, opts.Palette)
	hooks.OnLayoutComplete(ctx, len(l.Bubbles), l.Exhausted, time.Since(start))

	if l.Exhausted > 0 {
		opts.Logger.Debug("spiral search exhausted",
			"placements", l.Exhausted,
			"max_iterations", opts.Layout.MaxIterations)
	}

	if data, err := constellation.MarshalLayout(l); err == nil {
		r.cacheSet(ctx, cacheKey, "layout", data, r.LayoutTTL)
	}
	return l, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, m *matrix.Matrix, opts Options) (constellation.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, m, opts)
	return l, err
}

// RenderWithCacheInfo renders every requested format with caching. The hit
// flag is true only when all formats came from the cache. m is needed for the
// network view only and may be nil otherwise.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l constellation.Layout, m *matrix.Matrix, opts Options) (map[render.Format][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutData, err := constellation.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	artifacts := make(map[render.Format][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		data, ok := r.cacheGet(ctx, key, "artifact")
		if !ok {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	names := formatNames(opts.Formats)
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, names)
	start := time.Now()
	rendered, err := Render(ctx, l, m, opts)
	hooks.OnRenderComplete(ctx, names, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		r.cacheSet(ctx, key, "artifact", data, cache.TTLArtifact)
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cacheGet(ctx context.Context, key, keyType string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key", key, "err", err)
		hit = false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, hit
}

func (r *Runner) cacheSet(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func formatNames(formats []render.Format) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}
