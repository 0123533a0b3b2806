// Package sink paints a [constellation.Layout].
//
// [RenderSVG] produces a self-contained interactive document: bubbles
// colored by the layout's mode, a legend, zoom buttons, wheel zoom and a
// hover tooltip that flips away from the right and bottom edges. Clicking a
// bubble dispatches a "bubbleclick" event carrying the term id, thinker id
// and thinker name, and posts the same payload to the parent window when the
// SVG is embedded in a frame. Empty and failed loads render as centered
// state messages through [RenderEmptySVG] and [RenderErrorSVG].
//
// [RenderJSON] writes the layout itself.
//
// [constellation.Layout]: github.com/matzehuels/constellation/pkg/constellation.Layout
package sink
