package matrix

import (
	"cmp"
	"slices"
)

// Bubble is one (critical term, thinker) co-occurrence observed across notes.
// Bubbles are immutable once fetched; Key identifies one.
type Bubble struct {
	TermID           string   `json:"term_id" bson:"term_id"`
	TermName         string   `json:"term_name" bson:"term_name"`
	ThinkerID        string   `json:"thinker_id" bson:"thinker_id"`
	ThinkerName      string   `json:"thinker_name" bson:"thinker_name"`
	ThinkerBirthYear *int     `json:"thinker_birth_year,omitempty" bson:"thinker_birth_year,omitempty"`
	ThinkerDeathYear *int     `json:"thinker_death_year,omitempty" bson:"thinker_death_year,omitempty"`
	Frequency        int      `json:"frequency" bson:"frequency"`
	SampleSnippets   []string `json:"sample_snippets" bson:"sample_snippets"`
}

// Key returns the composite identity of the bubble.
func (b Bubble) Key() string {
	return b.TermID + "\x00" + b.ThinkerID
}

// Lifespan formats the thinker's years as "(1724–1804)", "(b. 1929)" or "".
func (b Bubble) Lifespan() string {
	switch {
	case b.ThinkerBirthYear != nil && b.ThinkerDeathYear != nil:
		return "(" + formatYear(*b.ThinkerBirthYear) + "–" + formatYear(*b.ThinkerDeathYear) + ")"
	case b.ThinkerBirthYear != nil:
		return "(b. " + formatYear(*b.ThinkerBirthYear) + ")"
	case b.ThinkerDeathYear != nil:
		return "(d. " + formatYear(*b.ThinkerDeathYear) + ")"
	default:
		return ""
	}
}

// Matrix is the result of one co-occurrence query.
type Matrix struct {
	Bubbles      []Bubble `json:"bubbles" bson:"bubbles"`
	Terms        []string `json:"terms" bson:"terms"`
	Thinkers     []string `json:"thinkers" bson:"thinkers"`
	TotalBubbles int      `json:"total_bubbles" bson:"total_bubbles"`
	MaxFrequency int      `json:"max_frequency" bson:"max_frequency"`
}

// New assembles a Matrix from bubbles, deriving the unique term and thinker
// names (in first-encounter order) and the aggregate stats.
func New(bubbles []Bubble) *Matrix {
	m := &Matrix{
		Bubbles:  bubbles,
		Terms:    []string{},
		Thinkers: []string{},
	}
	if m.Bubbles == nil {
		m.Bubbles = []Bubble{}
	}

	seenTerms := make(map[string]bool)
	seenThinkers := make(map[string]bool)
	for _, b := range m.Bubbles {
		if !seenTerms[b.TermName] {
			seenTerms[b.TermName] = true
			m.Terms = append(m.Terms, b.TermName)
		}
		if !seenThinkers[b.ThinkerName] {
			seenThinkers[b.ThinkerName] = true
			m.Thinkers = append(m.Thinkers, b.ThinkerName)
		}
		m.MaxFrequency = max(m.MaxFrequency, b.Frequency)
	}
	m.TotalBubbles = len(m.Bubbles)
	return m
}

// IsEmpty reports whether the matrix has no bubbles.
func (m *Matrix) IsEmpty() bool {
	return m == nil || len(m.Bubbles) == 0
}

// Bubble looks up a bubble by its composite key.
func (m *Matrix) Bubble(termID, thinkerID string) (Bubble, bool) {
	for _, b := range m.Bubbles {
		if b.TermID == termID && b.ThinkerID == thinkerID {
			return b, true
		}
	}
	return Bubble{}, false
}

// Stats summarizes a matrix for display.
type Stats struct {
	TotalBubbles  int
	Terms         int
	Thinkers      int
	MaxFrequency  int
	TotalMentions int
	TopPairs      []Bubble
}

// Summarize returns aggregate statistics and the n most frequent pairs
// (ties keep matrix order).
func (m *Matrix) Summarize(n int) Stats {
	s := Stats{
		TotalBubbles: m.TotalBubbles,
		Terms:        len(m.Terms),
		Thinkers:     len(m.Thinkers),
		MaxFrequency: m.MaxFrequency,
	}
	for _, b := range m.Bubbles {
		s.TotalMentions += b.Frequency
	}

	top := slices.Clone(m.Bubbles)
	slices.SortStableFunc(top, func(a, b Bubble) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	s.TopPairs = top
	return s
}
