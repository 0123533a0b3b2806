package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/render"
	"github.com/matzehuels/constellation/pkg/render/network"
	"github.com/matzehuels/constellation/pkg/render/sink"
)

// Render generates output artifacts in the requested formats without
// caching. opts must have passed ValidateForRender.
func Render(ctx context.Context, l constellation.Layout, m *matrix.Matrix, opts Options) (map[render.Format][]byte, error) {
	if opts.Kind == KindNetwork {
		return renderNetwork(ctx, l, m, opts)
	}
	return renderConstellation(ctx, l, opts)
}

func renderConstellation(ctx context.Context, l constellation.Layout, opts Options) (map[render.Format][]byte, error) {
	svgOpts := buildSVGOptions(opts)
	artifacts := make(map[render.Format][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case render.FormatSVG:
			data = sink.RenderSVG(l, svgOpts...)
		case render.FormatPNG:
			data, err = sink.RenderPNG(ctx, l, sink.WithSVGOptions(svgOpts...), sink.WithScale(opts.Scale))
		case render.FormatPDF:
			data, err = sink.RenderPDF(ctx, l, sink.WithSVGOptions(svgOpts...))
		case render.FormatJSON:
			data, err = sink.RenderJSON(l)
		case render.FormatDOT:
			data = []byte(network.ToDOT(layoutMatrix(l), layoutColors(l), opts.Network))
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderNetwork(ctx context.Context, l constellation.Layout, m *matrix.Matrix, opts Options) (map[render.Format][]byte, error) {
	if m == nil {
		m = layoutMatrix(l)
	}
	dot := network.ToDOT(m, palette.Assign(m, opts.ColorMode, opts.Palette), opts.Network)

	artifacts := make(map[render.Format][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case render.FormatDOT:
			data = []byte(dot)
		case render.FormatSVG:
			data, err = network.RenderSVG(ctx, dot)
		case render.FormatPNG:
			data, err = network.RenderPNG(ctx, dot, opts.Scale)
		case render.FormatPDF:
			data, err = network.RenderPDF(ctx, dot)
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported network format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render network %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func buildSVGOptions(opts Options) []sink.SVGOption {
	svgOpts := []sink.SVGOption{
		sink.WithZoom(opts.Zoom),
		sink.WithWheelPolicy(opts.Wheel),
	}
	if opts.NoLegend {
		svgOpts = append(svgOpts, sink.WithoutLegend())
	}
	if opts.Title != "" {
		svgOpts = append(svgOpts, sink.WithTitle(opts.Title))
	}
	return svgOpts
}

// layoutMatrix rebuilds a matrix from the bubbles of a cached layout.
func layoutMatrix(l constellation.Layout) *matrix.Matrix {
	bubbles := make([]matrix.Bubble, len(l.Bubbles))
	for i, pb := range l.Bubbles {
		bubbles[i] = pb.Bubble
	}
	return matrix.New(bubbles)
}

// layoutColors restores the color map a layout was computed with.
func layoutColors(l constellation.Layout) *palette.Map {
	keys := make([]string, len(l.Legend))
	colors := make([]string, len(l.Legend))
	for i, e := range l.Legend {
		keys[i] = e.Key
		colors[i] = e.Color
	}
	return palette.AssignKeys(l.ColorMode, keys, colors)
}
