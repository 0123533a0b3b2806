package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/view"
)

const (
	glyphBubble   = "●"
	glyphSelected = "◆"
	glyphEmpty    = " "
)

// drawCanvas rasterizes the layout into a cols-wide grid of terminal cells
// as seen through zoom. Terminal cells are about twice as tall as wide, so
// rows are halved to keep circles round. The bubble whose key is selected
// is drawn with a distinct glyph.
func drawCanvas(l constellation.Layout, zoom *view.Zoom, cols int, selected string) string {
	if cols <= 0 || l.Width <= 0 || l.Height <= 0 {
		return ""
	}
	rows := max(int(float64(cols)*l.Height/l.Width/2), 1)
	cx, cy := l.Width/2, l.Height/2

	styles := make(map[string]lipgloss.Style)
	styleFor := func(color string) lipgloss.Style {
		s, ok := styles[color]
		if !ok {
			s = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
			styles[color] = s
		}
		return s
	}

	var b strings.Builder
	for r := range rows {
		for c := range cols {
			sx := (float64(c) + 0.5) / float64(cols) * l.Width
			sy := (float64(r) + 0.5) / float64(rows) * l.Height
			x, y := zoom.ToScene(sx, sy, cx, cy)
			pb, ok := l.HitTest(x, y)
			switch {
			case !ok:
				b.WriteString(glyphEmpty)
			case pb.Bubble.Key() == selected:
				b.WriteString(listSelectedStyle.Render(glyphSelected))
			default:
				b.WriteString(styleFor(l.Color(pb.Bubble)).Render(glyphBubble))
			}
		}
		if r < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
