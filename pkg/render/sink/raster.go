package sink

import (
	"context"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/render"
)

// RasterOption configures PNG and PDF rendering.
type RasterOption func(*rasterRenderer)

type rasterRenderer struct {
	svgOpts []SVGOption
	scale   float64
}

// WithSVGOptions passes options through to the underlying SVG renderer.
func WithSVGOptions(opts ...SVGOption) RasterOption {
	return func(r *rasterRenderer) { r.svgOpts = opts }
}

// WithScale sets the PNG scale factor (default 2.0).
func WithScale(s float64) RasterOption {
	return func(r *rasterRenderer) { r.scale = s }
}

func newRasterRenderer(opts ...RasterOption) rasterRenderer {
	r := rasterRenderer{scale: 2.0}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderPNG renders the layout as PNG via a static SVG.
func RenderPNG(ctx context.Context, l constellation.Layout, opts ...RasterOption) ([]byte, error) {
	r := newRasterRenderer(opts...)
	svg := RenderSVG(l, append(r.svgOpts, Static())...)
	return render.ToPNG(ctx, svg, r.scale)
}

// RenderPDF renders the layout as PDF via a static SVG.
func RenderPDF(ctx context.Context, l constellation.Layout, opts ...RasterOption) ([]byte, error) {
	r := newRasterRenderer(opts...)
	svg := RenderSVG(l, append(r.svgOpts, Static())...)
	return render.ToPDF(ctx, svg)
}
