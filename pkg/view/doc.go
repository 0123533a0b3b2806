// Package view holds the interaction state of a constellation: the zoom
// level, the hovered bubble with its tooltip position, and click dispatch.
//
// The model is headless. The SVG sink mirrors it in embedded script, the
// terminal explorer drives it from key presses and the HTTP API forwards
// clicks to it. None of the types are safe for concurrent mutation; each
// front end owns its own [Controller].
//
// # Zoom
//
// The scene scales uniformly about the canvas center:
//
//	translate(cx cy) scale(z) translate(-cx -cy)
//
// z is clamped to [MinZoom, MaxZoom] and moves in steps of ZoomStep. There is
// no independent pan.
package view
