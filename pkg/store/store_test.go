package store

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
)

func TestLoadCorpusFile(t *testing.T) {
	c, err := LoadCorpusFile("testdata/corpus.yaml")
	if err != nil {
		t.Fatalf("LoadCorpusFile: %v", err)
	}
	if len(c.Thinkers) != 2 || len(c.Terms) != 2 || len(c.Notes) != 3 {
		t.Fatalf("loaded %d thinkers, %d terms, %d notes", len(c.Thinkers), len(c.Terms), len(c.Notes))
	}
	if *c.Thinkers[0].BirthYear != 1724 || c.Thinkers[1].Aliases[0] != "Hegel" {
		t.Errorf("thinkers = %+v", c.Thinkers)
	}
}

func TestLoadCorpusFileMissing(t *testing.T) {
	_, err := LoadCorpusFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestCorpusRoundTrip(t *testing.T) {
	c, err := LoadCorpusFile("testdata/corpus.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, format := range []CorpusFormat{CorpusJSON, CorpusYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteCorpus(&buf, c, format); err != nil {
				t.Fatal(err)
			}
			got, err := ReadCorpus(&buf, format)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Notes) != 3 || got.Notes[2].Content != c.Notes[2].Content {
				t.Errorf("notes = %+v", got.Notes)
			}
		})
	}
}

func TestReadCorpusErrors(t *testing.T) {
	tests := []struct {
		name   string
		format CorpusFormat
		data   string
		code   errors.Code
	}{
		{"bad json", CorpusJSON, `{"notes": [`, errors.ErrCodeInvalidFormat},
		{"unknown field", CorpusJSON, `{"people": []}`, errors.ErrCodeInvalidFormat},
		{"bad yaml", CorpusYAML, "thinkers: [", errors.ErrCodeInvalidFormat},
		{"unnamed thinker", CorpusJSON, `{"thinkers": [{"id": "x"}]}`, errors.ErrCodeInvalidCorpus},
		{"unnamed term", CorpusYAML, "terms:\n  - id: t\n", errors.ErrCodeInvalidCorpus},
		{"duplicate id", CorpusJSON, `{"terms": [{"id": "t", "name": "A"}, {"id": "t", "name": "B"}]}`, errors.ErrCodeInvalidCorpus},
		{"death before birth", CorpusJSON, `{"thinkers": [{"name": "X", "birth_year": 10, "death_year": 5}]}`, errors.ErrCodeInvalidCorpus},
		{"bad folder", CorpusJSON, `{"notes": [{"id": "n", "folder_id": "a/b", "content": ""}]}`, errors.ErrCodeInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCorpus(strings.NewReader(tt.data), tt.format)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q (%v), want %q", got, err, tt.code)
			}
		})
	}
}

func TestFormatForPath(t *testing.T) {
	for path, want := range map[string]CorpusFormat{
		"c.yaml": CorpusYAML, "c.YML": CorpusYAML, "c.json": CorpusJSON, "c": CorpusJSON,
	} {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q", path, got)
		}
	}
}

func TestAssignIDs(t *testing.T) {
	in := matrix.Corpus{
		Notes:    []matrix.Note{{Content: "x"}, {ID: "keep"}},
		Thinkers: []matrix.Thinker{{Name: "Kant"}},
		Terms:    []matrix.CriticalTerm{{Name: "Reason"}},
	}
	out := AssignIDs(in)
	if in.Notes[0].ID != "" {
		t.Error("AssignIDs must not modify its input")
	}
	if out.Notes[1].ID != "keep" {
		t.Error("existing IDs must be kept")
	}
	for _, id := range []string{out.Notes[0].ID, out.Thinkers[0].ID, out.Terms[0].ID} {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("generated id %q is not a UUID", id)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	c, err := LoadCorpusFile("testdata/corpus.yaml")
	if err != nil {
		t.Fatal(err)
	}
	s := NewMemory()
	stats, err := Import(ctx, s, c)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (ImportStats{Notes: 3, Thinkers: 2, Terms: 2}) {
		t.Errorf("stats = %+v", stats)
	}

	got, err := s.Corpus(ctx, matrix.Filter{FolderID: "critique"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Notes) != 2 || len(got.Thinkers) != 2 {
		t.Errorf("filtered corpus = %d notes, %d thinkers", len(got.Notes), len(got.Thinkers))
	}

	// Replacing keeps position.
	if err := s.PutTerms(ctx, matrix.CriticalTerm{ID: "reason", Name: "Vernunft"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Corpus(ctx, matrix.Filter{})
	if got.Terms[0].Name != "Vernunft" || len(got.Terms) != 2 {
		t.Errorf("terms = %+v", got.Terms)
	}
	if err := s.Ping(ctx); err != nil {
		t.Error(err)
	}
}

func TestMemoryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().Corpus(ctx, matrix.Filter{}); err == nil {
		t.Error("expected context error")
	}
}

func TestMemoryConcurrent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.PutNotes(ctx, matrix.Note{ID: uuid.NewString(), Content: strings.Repeat("x", i)})
		}()
		go func() {
			defer wg.Done()
			s.Corpus(ctx, matrix.Filter{})
		}()
	}
	wg.Wait()
	c, _ := s.Corpus(ctx, matrix.Filter{})
	if len(c.Notes) != 16 {
		t.Errorf("notes = %d, want 16", len(c.Notes))
	}
}

func TestBuildMatrix(t *testing.T) {
	c, err := LoadCorpusFile("testdata/corpus.yaml")
	if err != nil {
		t.Fatal(err)
	}
	s := NewMemoryFrom(c)
	ctx := context.Background()

	m, err := BuildMatrix(ctx, s, matrix.Filter{FolderID: "critique"})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := m.Bubble("reason", "kant")
	if !ok || b.Frequency != 3 {
		t.Errorf("Reason/Kant = %+v, %v; want frequency 3", b, ok)
	}
	if _, ok := m.Bubble("reason", "hegel"); ok {
		t.Error("hegel is not mentioned in the critique folder")
	}

	all, err := BuildMatrix(ctx, s, matrix.Filter{TermID: "dialectic"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Bubbles) != 1 || all.Bubbles[0].ThinkerID != "hegel" || all.Bubbles[0].Frequency != 2 {
		t.Errorf("dialectic bubbles = %+v", all.Bubbles)
	}

	if _, err := BuildMatrix(ctx, s, matrix.Filter{TermID: "missing"}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown term err = %v", err)
	}
}
