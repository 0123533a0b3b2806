package store

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
)

// CorpusFormat is the encoding of a corpus file.
type CorpusFormat string

const (
	CorpusJSON CorpusFormat = "json"
	CorpusYAML CorpusFormat = "yaml"
)

// FormatForPath picks the corpus format from a file extension. Anything that
// is not .yaml or .yml is read as JSON.
func FormatForPath(path string) CorpusFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return CorpusYAML
	}
	return CorpusJSON
}

// LoadCorpusFile reads and validates a corpus file.
func LoadCorpusFile(path string) (matrix.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return matrix.Corpus{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "corpus file %s not found", path)
		}
		return matrix.Corpus{}, err
	}
	defer f.Close()
	return ReadCorpus(f, FormatForPath(path))
}

// ReadCorpus decodes and validates a corpus.
func ReadCorpus(r io.Reader, format CorpusFormat) (matrix.Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return matrix.Corpus{}, err
	}

	var c matrix.Corpus
	switch format {
	case CorpusYAML:
		err = yaml.Unmarshal(data, &c)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&c)
	}
	if err != nil {
		return matrix.Corpus{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s corpus", format)
	}
	if err := ValidateCorpus(c); err != nil {
		return matrix.Corpus{}, err
	}
	return c, nil
}

// WriteCorpus encodes c.
func WriteCorpus(w io.Writer, c matrix.Corpus, format CorpusFormat) error {
	if format == CorpusYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// ValidateCorpus checks that thinkers and terms are named, that given IDs
// are well-formed and that no ID repeats within a record kind.
func ValidateCorpus(c matrix.Corpus) error {
	seen := map[string]bool{}
	check := func(kind, id string) error {
		if id == "" {
			return nil
		}
		if err := errors.ValidateID(kind, id); err != nil {
			return err
		}
		if seen[kind+"\x00"+id] {
			return errors.New(errors.ErrCodeInvalidCorpus, "duplicate %s id %q", kind, id)
		}
		seen[kind+"\x00"+id] = true
		return nil
	}

	for i, th := range c.Thinkers {
		if strings.TrimSpace(th.Name) == "" {
			return errors.New(errors.ErrCodeInvalidCorpus, "thinker #%d has no name", i+1)
		}
		if th.BirthYear != nil && th.DeathYear != nil && *th.DeathYear < *th.BirthYear {
			return errors.New(errors.ErrCodeInvalidCorpus, "thinker %q dies before birth", th.Name)
		}
		if err := check("thinker", th.ID); err != nil {
			return err
		}
	}
	for i, t := range c.Terms {
		if strings.TrimSpace(t.Name) == "" {
			return errors.New(errors.ErrCodeInvalidCorpus, "critical term #%d has no name", i+1)
		}
		if err := check("term", t.ID); err != nil {
			return err
		}
	}
	for _, n := range c.Notes {
		if err := check("note", n.ID); err != nil {
			return err
		}
		if err := errors.ValidateOptionalID("folder", n.FolderID); err != nil {
			return err
		}
	}
	return nil
}

// AssignIDs returns a copy of c where every record without an ID has a
// random UUID.
func AssignIDs(c matrix.Corpus) matrix.Corpus {
	out := matrix.Corpus{
		Notes:    slices.Clone(c.Notes),
		Thinkers: slices.Clone(c.Thinkers),
		Terms:    slices.Clone(c.Terms),
	}
	for i := range out.Notes {
		if out.Notes[i].ID == "" {
			out.Notes[i].ID = uuid.NewString()
		}
	}
	for i := range out.Thinkers {
		if out.Thinkers[i].ID == "" {
			out.Thinkers[i].ID = uuid.NewString()
		}
	}
	for i := range out.Terms {
		if out.Terms[i].ID == "" {
			out.Terms[i].ID = uuid.NewString()
		}
	}
	return out
}
