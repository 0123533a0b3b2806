// Package network renders the term–thinker network as a node-link diagram.
//
// # Overview
//
// The constellation shows each co-occurrence as a bubble. The network view
// shows the same matrix as a bipartite graph: critical terms on one side,
// thinkers on the other, one edge per bubble with its width scaled by
// frequency.
//
// # Usage
//
//	dot := network.ToDOT(m, colors, network.Options{})
//	svg, err := network.RenderSVG(ctx, dot)
//
// Thinker nodes are filled with their palette color when the map was built
// by thinker; term nodes get the term colors when built by term.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz] in process. PDF and PNG
// conversion of the result goes through the render package and requires
// librsvg (rsvg-convert).
package network
