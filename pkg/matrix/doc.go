// Package matrix provides the term–thinker co-occurrence matrix that feeds
// the constellation view.
//
// # Overview
//
// A [Matrix] is a flat list of [Bubble] values, one per (critical term,
// thinker) pair that appears together in the notes corpus, plus the unique
// term and thinker names and aggregate stats. It is the wire format of
//
//	GET /api/critical-terms/cooccurrence-matrix?folder_id=...&term_id=...
//
// # Building
//
// [Build] derives a matrix from a [Corpus]. Note bodies are rich text; their
// visible text is extracted from HTML, normalized (NFKC) and lower-cased
// rune by rune so snippet offsets stay aligned with the original text.
// A term and a thinker co-occur when both are mentioned, as whole words, in
// the same note. The pair's frequency is the number of term mentions in
// notes that also mention the thinker, and up to [MaxSnippets] context
// windows around those mentions are kept as samples.
//
//	m, err := matrix.Build(corpus, matrix.Filter{FolderID: "f1"})
//
// # Serialization
//
// [Marshal], [Unmarshal], [ReadFile] and [WriteFile] handle the JSON form.
package matrix
