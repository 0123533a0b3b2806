// Package render turns constellation layouts into artifacts.
//
// # Overview
//
// The subpackages do the drawing:
//
//   - [sink] paints a [constellation.Layout] as interactive SVG or JSON
//   - [network] draws the term–thinker network through Graphviz
//
// This package holds what they share: the output [Format] names and the
// SVG to PDF/PNG conversion.
//
//	svg := sink.RenderSVG(layout)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// Conversion shells out to rsvg-convert from librsvg. When it is missing the
// functions return an UNSUPPORTED error telling the user how to install it.
//
// [sink]: github.com/matzehuels/constellation/pkg/render/sink
// [network]: github.com/matzehuels/constellation/pkg/render/network
// [constellation.Layout]: github.com/matzehuels/constellation/pkg/constellation.Layout
package render
