// Package pipeline provides the matrix → layout → render pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: load the co-occurrence matrix from a [Source]
//  2. Layout: pack the bubbles with the spiral packer and assign colors
//  3. Render: write the requested formats (SVG, PNG, PDF, JSON, DOT)
//
// Each stage is cached independently through a [cache.Cache]. Matrix keys
// hash the query, layout keys hash the matrix content and layout options,
// artifact keys hash the layout content and render options, so a changed
// note invalidates exactly the layouts that depend on it.
//
// # Usage
//
//	runner := pipeline.NewRunner(src, c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    FolderID: "critique",
//	    Formats:  []render.Format{render.FormatSVG},
//	})
//	svg := result.Artifacts[render.FormatSVG]
//
// Stages can also be run on their own:
//
//	m, _, _, err := runner.FetchWithCacheInfo(ctx, opts)
//	l, _, err := runner.LayoutWithCacheInfo(ctx, m, opts)
//	artifacts, _, err := runner.RenderWithCacheInfo(ctx, l, m, opts)
package pipeline

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/constellation/pkg/cache"
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/render"
	"github.com/matzehuels/constellation/pkg/render/network"
	"github.com/matzehuels/constellation/pkg/view"
)

// Kind selects the visualization.
type Kind string

const (
	// KindConstellation is the packed bubble view.
	KindConstellation Kind = "constellation"
	// KindNetwork is the bipartite term–thinker graph.
	KindNetwork Kind = "network"
)

// DefaultKind is the visualization rendered when none is requested.
const DefaultKind = KindConstellation

// DefaultScale is the PNG scale factor.
const DefaultScale = 2.0

// ParseKind parses a visualization name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return DefaultKind, nil
	case KindConstellation, KindNetwork:
		return Kind(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown visualization %q (want constellation or network)", s)
}

// Options contains all configuration for one pipeline run.
type Options struct {
	// Fetch options
	FolderID string `json:"folder_id,omitempty"`
	TermID   string `json:"term_id,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`

	// Layout options
	Layout    constellation.Options `json:"layout"`
	ColorMode palette.Mode          `json:"color_mode,omitempty"`
	Palette   []string              `json:"palette,omitempty"`

	// Render options
	Kind     Kind             `json:"kind,omitempty"`
	Formats  []render.Format  `json:"formats,omitempty"`
	Zoom     float64          `json:"zoom,omitempty"`
	Wheel    view.WheelPolicy `json:"wheel,omitempty"`
	NoLegend bool             `json:"no_legend,omitempty"`
	Scale    float64          `json:"scale,omitempty"`
	Title    string           `json:"title,omitempty"`
	Network  network.Options  `json:"network"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Matrix is the fetched co-occurrence matrix.
	Matrix *matrix.Matrix

	// MatrixHash is the content hash of the matrix.
	MatrixHash string

	// Layout is the packed constellation.
	Layout constellation.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[render.Format][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Bubbles    int
	Exhausted  int
	FetchTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	MatrixHit bool
	LayoutHit bool
	RenderHit bool // all artifacts came from cache
}

// Filter returns the matrix query of o.
func (o *Options) Filter() matrix.Filter {
	return matrix.Filter{FolderID: o.FolderID, TermID: o.TermID}
}

// ValidateAndSetDefaults checks the options and fills defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout checks the layout options and fills their defaults.
func (o *Options) ValidateForLayout() error {
	if err := errors.ValidateOptionalID("folder", o.FolderID); err != nil {
		return err
	}
	if err := errors.ValidateOptionalID("term", o.TermID); err != nil {
		return err
	}
	if o.ColorMode == "" {
		o.ColorMode = palette.DefaultMode
	}
	if _, err := palette.ParseMode(string(o.ColorMode)); err != nil {
		return err
	}
	o.Layout = o.Layout.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForRender checks the render options and fills their defaults.
func (o *Options) ValidateForRender() error {
	if o.Kind == "" {
		o.Kind = DefaultKind
	}
	if _, err := ParseKind(string(o.Kind)); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []render.Format{render.FormatSVG}
	}
	for _, f := range o.Formats {
		if _, err := render.ParseFormat(string(f)); err != nil {
			return err
		}
	}
	if o.Kind == KindNetwork {
		for _, f := range o.Formats {
			if f == render.FormatJSON {
				return errors.New(errors.ErrCodeInvalidFormat, "the network view has no json output")
			}
		}
	}
	if o.Zoom == 0 {
		o.Zoom = view.DefaultZoom
	}
	o.Zoom = view.NewZoom().Set(o.Zoom)
	if !(o.Scale > 0) || math.IsInf(o.Scale, 1) {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	l := o.Layout.WithDefaults()
	return cache.LayoutKeyOpts{
		Width:         l.Width,
		Height:        l.Height,
		MinRadius:     l.MinRadius,
		MaxRadius:     l.MaxRadius,
		Padding:       *l.Padding,
		Margin:        *l.Margin,
		AngleStep:     l.AngleStep,
		DistanceStep:  l.DistanceStep,
		MaxIterations: l.MaxIterations,
		ColorMode:     string(o.ColorMode),
		Palette:       o.Palette,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format render.Format) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Kind:   string(o.Kind),
		Format: string(format),
		Zoom:   o.Zoom,
		Wheel:  o.Wheel.String(),
		Legend: !o.NoLegend,
		Title:  o.Title,
	}
	if o.Kind == KindNetwork {
		k.Detailed = o.Network.Detailed
		k.MinFrequency = o.Network.MinFrequency
	}
	if format == render.FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

func (o *Options) String() string {
	return fmt.Sprintf("%s folder=%q term=%q color=%s", o.Kind, o.FolderID, o.TermID, o.ColorMode)
}
