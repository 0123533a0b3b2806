// Package cache provides the byte cache shared by the pipeline, the matrix
// client and the HTTP server.
//
// # Backends
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one JSON envelope per key under a directory (CLI)
//   - [RedisCache]: shared cache for multi-instance servers
//
// # Keys
//
// Keys are produced by a [Keyer] so that every component derives the same key
// for the same input. Matrix keys hash the query filter, layout keys hash the
// matrix content together with the layout options, artifact keys hash the
// layout content together with the output format.
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.LayoutKey(matrixHash, cache.LayoutKeyOpts{ColorMode: "thinker"})
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Default time-to-live per cached stage.
const (
	// TTLMatrix bounds how long a fetched co-occurrence matrix is reused.
	// Notes change often, so this stays short.
	TTLMatrix = 5 * time.Minute

	// TTLLayout is the lifetime of a computed placement. Layouts are a pure
	// function of their key, so they only expire to bound storage.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is the lifetime of rendered SVG/PNG/PDF/DOT output.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache stores opaque byte values under string keys.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// MatrixKeyOpts identifies a matrix query.
type MatrixKeyOpts struct {
	FolderID string `json:"folder_id,omitempty"`
	TermID   string `json:"term_id,omitempty"`
}

// LayoutKeyOpts contains everything besides the matrix that changes a layout.
type LayoutKeyOpts struct {
	Width         float64  `json:"width"`
	Height        float64  `json:"height"`
	MinRadius     float64  `json:"min_radius"`
	MaxRadius     float64  `json:"max_radius"`
	Padding       float64  `json:"padding"`
	Margin        float64  `json:"margin"`
	AngleStep     float64  `json:"angle_step"`
	DistanceStep  float64  `json:"distance_step"`
	MaxIterations int      `json:"max_iterations"`
	ColorMode     string   `json:"color_mode"`
	Palette       []string `json:"palette,omitempty"`
}

// ArtifactKeyOpts contains everything besides the layout that changes a
// rendered artifact.
type ArtifactKeyOpts struct {
	Kind   string  `json:"kind,omitempty"`
	Format string  `json:"format"`
	Wheel  string  `json:"wheel,omitempty"`
	Zoom   float64 `json:"zoom"`
	Legend bool    `json:"legend"`
	Scale  float64 `json:"scale,omitempty"`
	Title  string  `json:"title,omitempty"`

	// Network view options.
	Detailed     bool `json:"detailed,omitempty"`
	MinFrequency int  `json:"min_frequency,omitempty"`
}

// Keyer derives cache keys for each pipeline stage.
type Keyer interface {
	MatrixKey(source string, opts MatrixKeyOpts) string
	LayoutKey(matrixHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "stage:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// MatrixKey keys a matrix by its source (server URL or store name) and filter.
func (DefaultKeyer) MatrixKey(source string, opts MatrixKeyOpts) string {
	return hashKey("matrix", source, opts)
}

// LayoutKey keys a layout by the hash of the matrix it was computed from.
func (DefaultKeyer) LayoutKey(matrixHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", matrixHash, opts)
}

// ArtifactKey keys a rendered artifact by the hash of its layout.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
