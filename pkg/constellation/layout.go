package constellation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/palette"
)

// User-facing state messages shared by every front end.
const (
	LoadFailedMessage = "Failed to load constellation data"
	EmptyMessage      = "No term–thinker co-occurrences found"
)

// Layout is the serialized placement of a matrix: the circles, the colors
// of the active mode and the legend. It is what the JSON sink writes, what
// the pipeline caches and what the HTTP API returns.
type Layout struct {
	Width        float64           `json:"width" bson:"width"`
	Height       float64           `json:"height" bson:"height"`
	MaxFrequency int               `json:"max_frequency" bson:"max_frequency"`
	ColorMode    palette.Mode      `json:"color_mode" bson:"color_mode"`
	Bubbles      []PlacedBubble    `json:"bubbles" bson:"bubbles"`
	Colors       map[string]string `json:"colors" bson:"colors"`
	Legend       []palette.Entry   `json:"legend" bson:"legend"`
	Fallback     string            `json:"fallback,omitempty" bson:"fallback,omitempty"`
	Exhausted    int               `json:"exhausted,omitempty" bson:"exhausted,omitempty"`
}

// Compute places the bubbles of m and colors them under mode.
func Compute(m *matrix.Matrix, opts Options, mode palette.Mode, colors []string) Layout {
	p := NewPacker(opts)
	o := p.Options()
	if m == nil {
		m = matrix.New(nil)
	}
	res := p.Place(m.Bubbles, m.MaxFrequency)
	cm := palette.Assign(m, mode, colors)

	return Layout{
		Width:        o.Width,
		Height:       o.Height,
		MaxFrequency: m.MaxFrequency,
		ColorMode:    mode,
		Bubbles:      res.Placed,
		Colors:       cm.Colors(),
		Legend:       cm.Legend(),
		Fallback:     cm.Fallback(),
		Exhausted:    res.Exhausted,
	}
}

// IsEmpty reports whether the layout has no bubbles.
func (l Layout) IsEmpty() bool { return len(l.Bubbles) == 0 }

// Color returns the fill of a placed bubble. Unknown keys get the first
// color of the palette the layout was computed with; layouts decoded
// without one fall back to the first legend color, then to Default.
func (l Layout) Color(b matrix.Bubble) string {
	key := b.ThinkerName
	if l.ColorMode == palette.ByTerm {
		key = b.TermName
	}
	if c, ok := l.Colors[key]; ok {
		return c
	}
	if l.Fallback != "" {
		return l.Fallback
	}
	if len(l.Legend) > 0 {
		return l.Legend[0].Color
	}
	return palette.Default[0]
}

// HitTest returns the bubble drawn at scene point (x, y). Bubbles are drawn
// in placement order, so the last containing bubble is the topmost one.
func (l Layout) HitTest(x, y float64) (PlacedBubble, bool) {
	for i := len(l.Bubbles) - 1; i >= 0; i-- {
		if l.Bubbles[i].Contains(x, y) {
			return l.Bubbles[i], true
		}
	}
	return PlacedBubble{}, false
}

// MarshalLayout serializes a layout to pretty-printed JSON.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout decodes a layout and checks its frame.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layout")
	}
	if l.Width <= 0 || l.Height <= 0 {
		return Layout{}, errors.New(errors.ErrCodeInvalidFormat, "layout must have a positive width and height")
	}
	if l.ColorMode == "" {
		l.ColorMode = palette.DefaultMode
	}
	if l.Bubbles == nil {
		l.Bubbles = []PlacedBubble{}
	}
	return l, nil
}

// WriteLayoutFile writes a layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadLayoutFile reads a layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
