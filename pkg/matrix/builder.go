package matrix

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/matzehuels/constellation/pkg/errors"
)

const (
	// MaxSnippets caps the sample snippets kept per bubble.
	MaxSnippets = 3

	// SnippetRadius is the number of runes kept on each side of a mention.
	SnippetRadius = 60
)

// Build computes the co-occurrence matrix of corpus restricted by f.
//
// Bubbles are emitted in corpus term order, then corpus thinker order, and
// only for pairs with a positive frequency. Terms or thinkers with empty
// names never match.
func Build(c Corpus, f Filter) (*Matrix, error) {
	if err := errors.ValidateOptionalID("folder", f.FolderID); err != nil {
		return nil, err
	}
	if err := errors.ValidateOptionalID("term", f.TermID); err != nil {
		return nil, err
	}

	terms := c.Terms
	if f.TermID != "" {
		terms = nil
		for _, t := range c.Terms {
			if t.ID == f.TermID {
				terms = append(terms, t)
			}
		}
		if len(terms) == 0 {
			return nil, errors.New(errors.ErrCodeNotFound, "critical term %s not found", f.TermID)
		}
	}

	var docs []document
	for _, n := range c.Notes {
		if f.FolderID != "" && n.FolderID != f.FolderID {
			continue
		}
		docs = append(docs, newDocument(n))
	}

	// mentions[j] lists the documents naming thinker j.
	mentions := make([][]int, len(c.Thinkers))
	for j, th := range c.Thinkers {
		patterns := thinkerPatterns(th)
		for i := range docs {
			if docs[i].mentionsAny(patterns) {
				mentions[j] = append(mentions[j], i)
			}
		}
	}

	var bubbles []Bubble
	hits := make([][]int, len(docs))
	for _, term := range terms {
		termPattern := foldRunes(term.Name)
		if len(termPattern) == 0 {
			continue
		}
		for i := range docs {
			hits[i] = docs[i].find(termPattern)
		}
		for j, th := range c.Thinkers {
			if len(mentions[j]) == 0 {
				continue
			}
			b := Bubble{
				TermID:           term.ID,
				TermName:         term.Name,
				ThinkerID:        th.ID,
				ThinkerName:      th.Name,
				ThinkerBirthYear: th.BirthYear,
				ThinkerDeathYear: th.DeathYear,
				SampleSnippets:   []string{},
			}
			for _, i := range mentions[j] {
				for _, at := range hits[i] {
					b.Frequency++
					if len(b.SampleSnippets) < MaxSnippets {
						b.SampleSnippets = append(b.SampleSnippets, docs[i].snippet(at, len(termPattern)))
					}
				}
			}
			if b.Frequency > 0 {
				bubbles = append(bubbles, b)
			}
		}
	}
	return New(bubbles), nil
}

func thinkerPatterns(th Thinker) [][]rune {
	var out [][]rune
	for _, name := range append([]string{th.Name}, th.Aliases...) {
		if p := foldRunes(name); len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// document holds a note's visible text twice: original runes for snippets
// and lower-cased runes of identical length for matching.
type document struct {
	text   []rune
	folded []rune
}

func newDocument(n Note) document {
	text := []rune(norm.NFKC.String(extractText(n.Content)))
	folded := make([]rune, len(text))
	for i, r := range text {
		folded[i] = unicode.ToLower(r)
	}
	return document{text: text, folded: folded}
}

func (d *document) mentionsAny(patterns [][]rune) bool {
	for _, p := range patterns {
		if len(d.find(p)) > 0 {
			return true
		}
	}
	return false
}

// find returns the start offsets of whole-word matches of pattern.
func (d *document) find(pattern []rune) []int {
	var hits []int
	n, m := len(d.folded), len(pattern)
	for i := 0; i+m <= n; i++ {
		if !equalRunes(d.folded[i:i+m], pattern) {
			continue
		}
		if i > 0 && isWordRune(d.folded[i-1]) {
			continue
		}
		if i+m < n && isWordRune(d.folded[i+m]) {
			continue
		}
		hits = append(hits, i)
		i += m - 1
	}
	return hits
}

// snippet returns the context window around a mention, with ellipses where
// the window was cut.
func (d *document) snippet(at, length int) string {
	start := max(at-SnippetRadius, 0)
	end := min(at+length+SnippetRadius, len(d.text))
	s := strings.TrimSpace(string(d.text[start:end]))
	if start > 0 {
		s = "…" + s
	}
	if end < len(d.text) {
		s += "…"
	}
	return s
}

func foldRunes(s string) []rune {
	rs := []rune(norm.NFKC.String(strings.TrimSpace(s)))
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "td": true, "th": true,
}

// extractText returns the visible text of an HTML fragment with block
// elements separated by spaces. Plain text passes through unchanged.
func extractText(content string) string {
	if !strings.ContainsRune(content, '<') {
		return collapseSpace(content)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case blockTags[tag]:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				if skip > 0 {
					skip--
				}
			case blockTags[tag]:
				b.WriteByte(' ')
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
