// Package palette assigns colors to constellation bubbles.
//
// In [ByThinker] mode every thinker gets its own color, in [ByTerm] mode
// every critical term does. Keys are colored in the order they appear in
// Matrix.Thinkers or Matrix.Terms, cycling through the palette when there
// are more keys than colors:
//
//	colors := palette.Assign(m, palette.ByThinker, nil)
//	fill := colors.ForBubble(b)
//
// The default palette order is fixed so fixtures can assert which color the
// nth distinct key receives.
package palette

import (
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
)

// Mode selects what the bubble color encodes.
type Mode string

const (
	ByThinker Mode = "thinker"
	ByTerm    Mode = "term"
)

// DefaultMode is used when no mode is requested.
const DefaultMode = ByThinker

// ParseMode validates a mode string. The empty string selects DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return DefaultMode, nil
	case ByThinker, ByTerm:
		return Mode(s), nil
	default:
		return "", errors.New(errors.ErrCodeInvalidColorMode, "invalid color mode: %q (must be 'thinker' or 'term')", s)
	}
}

// Default is the built-in palette.
var Default = []string{
	"#3b82f6", // blue
	"#ef4444", // red
	"#10b981", // emerald
	"#f59e0b", // amber
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#06b6d4", // cyan
	"#84cc16", // lime
	"#f97316", // orange
	"#6366f1", // indigo
}

// Entry is one legend row.
type Entry struct {
	Key   string `json:"key"`
	Color string `json:"color"`
}

// Map is a precomputed key → color assignment.
type Map struct {
	mode    Mode
	colors  map[string]string
	legend  []Entry
	palette []string
}

// Assign colors the thinkers or terms of m. A nil or empty palette selects
// Default.
func Assign(m *matrix.Matrix, mode Mode, colors []string) *Map {
	var keys []string
	if m != nil {
		if mode == ByTerm {
			keys = m.Terms
		} else {
			keys = m.Thinkers
		}
	}
	return AssignKeys(mode, keys, colors)
}

// AssignKeys colors keys in order, cycling through colors. Duplicate keys
// keep their first color.
func AssignKeys(mode Mode, keys []string, colors []string) *Map {
	if len(colors) == 0 {
		colors = Default
	}
	cm := &Map{
		mode:    mode,
		colors:  make(map[string]string, len(keys)),
		legend:  make([]Entry, 0, len(keys)),
		palette: colors,
	}
	for _, k := range keys {
		if _, ok := cm.colors[k]; ok {
			continue
		}
		c := colors[len(cm.legend)%len(colors)]
		cm.colors[k] = c
		cm.legend = append(cm.legend, Entry{Key: k, Color: c})
	}
	return cm
}

// Mode returns the mode the map was built for.
func (cm *Map) Mode() Mode { return cm.mode }

// Color returns the color of key, or the first palette color when the key
// is unknown.
func (cm *Map) Color(key string) string {
	if c, ok := cm.colors[key]; ok {
		return c
	}
	return cm.Fallback()
}

// Fallback returns the color given to unknown keys.
func (cm *Map) Fallback() string { return cm.palette[0] }

// ForBubble returns the color of b under the map's mode.
func (cm *Map) ForBubble(b matrix.Bubble) string {
	if cm.mode == ByTerm {
		return cm.Color(b.TermName)
	}
	return cm.Color(b.ThinkerName)
}

// Legend returns the (key, color) pairs in assignment order.
func (cm *Map) Legend() []Entry {
	return cm.legend
}

// Colors returns a copy of the key → color assignment.
func (cm *Map) Colors() map[string]string {
	out := make(map[string]string, len(cm.colors))
	for k, v := range cm.colors {
		out[k] = v
	}
	return out
}
