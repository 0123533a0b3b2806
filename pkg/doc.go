// Package pkg provides the core libraries for Constellation, a co-occurrence
// view of critical terms and the thinkers mentioned alongside them.
//
// # Overview
//
// A notes corpus is reduced to a matrix of (term, thinker) bubbles, packed
// into a bubble chart and rendered. The pkg directory is organized as:
//
//  1. [matrix], [store] - Domain types, corpus storage and the matrix builder
//  2. [constellation], [palette], [view] - Layout, coloring and interaction
//  3. [render] - SVG, PNG, PDF, JSON and Graphviz output
//  4. [pipeline] - Orchestration (fetch → layout → render) with caching
//  5. [api], [query] - HTTP server, client and the cached query layer
//  6. [cache], [config], [errors], [observability] - Infrastructure
//
// # Architecture
//
//	Notes corpus (file, MongoDB or remote server)
//	         ↓
//	    [matrix] (term/thinker co-occurrences)
//	         ↓
//	    [constellation] (spiral packing + colors)
//	         ↓
//	    [render/sink], [render/network]
//	         ↓
//	    SVG/PNG/PDF/JSON/DOT output
//
// # Quick Start
//
//	src := pipeline.NewStoreSource(store.NewMemoryFrom(corpus), "notes")
//	runner := pipeline.NewRunner(src, cache.NewNullCache(), nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    FolderID: "critique",
//	    Formats:  []render.Format{render.FormatSVG},
//	})
//	svg := result.Artifacts[render.FormatSVG]
package pkg
