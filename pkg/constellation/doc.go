// Package constellation computes the bubble layout of a co-occurrence matrix.
//
// # Overview
//
// Every (term, thinker) bubble becomes a circle whose radius grows linearly
// with its frequency. Circles are placed greedily, largest first: the first
// one sits at the canvas center and each later one walks an Archimedean
// spiral outward from the center until it finds a spot that overlaps no
// placed circle and stays inside the canvas margin.
//
//	p := constellation.NewPacker(constellation.Options{})
//	res := p.Place(m.Bubbles, m.MaxFrequency)
//	for _, pb := range res.Placed {
//	    fmt.Println(pb.Bubble.TermName, pb.X, pb.Y, pb.Radius)
//	}
//
// # Bounded search
//
// The spiral walk stops after [Options.MaxIterations] steps. A bubble that
// found no free spot by then is still emitted, at the last spiral position,
// and flagged [PlacedBubble.Exhausted]. Placement never fails and never
// drops a bubble; overlap is accepted in that degenerate case.
//
// # Determinism
//
// [Packer.Place] is a pure function of its input slice (order included) and
// options. There is no random seed, so a layout can be cached by the hash of
// its inputs and recomputed byte-identically.
package constellation
