package matrix

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/constellation/pkg/errors"
)

// Marshal serializes a matrix to pretty-printed JSON.
func Marshal(m *Matrix) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Unmarshal decodes a matrix. Missing aggregate fields are recomputed from
// the bubbles, so hand-written fixtures only need the bubble list.
func Unmarshal(data []byte) (*Matrix, error) {
	var m Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode matrix")
	}
	return normalize(&m), nil
}

// Read decodes a matrix from r. Read does not close r.
func Read(r io.Reader) (*Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}
	return Unmarshal(data)
}

// Write encodes m to w.
func Write(m *Matrix, w io.Writer) error {
	data, err := Marshal(m)
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadFile reads a matrix from a JSON file.
func ReadFile(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "matrix file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// WriteFile writes a matrix to a JSON file.
func WriteFile(m *Matrix, path string) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// normalize fills derived fields when a payload omits them.
func normalize(m *Matrix) *Matrix {
	derived := New(m.Bubbles)
	if len(m.Terms) == 0 {
		m.Terms = derived.Terms
	}
	if len(m.Thinkers) == 0 {
		m.Thinkers = derived.Thinkers
	}
	if m.TotalBubbles == 0 {
		m.TotalBubbles = derived.TotalBubbles
	}
	if m.MaxFrequency == 0 {
		m.MaxFrequency = derived.MaxFrequency
	}
	if m.Bubbles == nil {
		m.Bubbles = []Bubble{}
	}
	return m
}

func formatYear(y int) string {
	if y < 0 {
		return strconv.Itoa(-y) + " BCE"
	}
	return strconv.Itoa(y)
}
