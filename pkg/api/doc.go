// Package api serves the constellation over HTTP and fetches matrices from
// such a server.
//
// # Server
//
// [Server] is a chi router around a [pipeline.Runner]:
//
//	GET  /api/critical-terms/cooccurrence-matrix?folder_id=&term_id=
//	GET  /api/constellation/layout?folder_id=&term_id=&color_by=
//	GET  /api/constellation/render.{svg,png,pdf,json,dot}
//	POST /api/constellation/click
//	GET  /health, /ready, /metrics
//
// Errors are JSON bodies {"error": ..., "code": ...} with the status of
// [errors.HTTPStatus]. A failed matrix fetch answers 502 with the fixed
// "Failed to load constellation data" message (or the error SVG for
// render.svg).
//
// # Client
//
// [Client] reads the matrix endpoint of a remote server and implements
// [pipeline.Source], so the CLI can render constellations of a running
// service:
//
//	c := api.NewClient("http://localhost:8080")
//	runner := pipeline.NewRunner(c, cache, nil, logger)
package api
