package view

import (
	"fmt"
	"strings"

	"github.com/matzehuels/constellation/pkg/matrix"
)

// Tooltip geometry in screen pixels.
const (
	TooltipOffset = 12.0
	TooltipWidth  = 240.0
	TooltipHeight = 96.0
)

// Point is a screen or scene position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a viewport or tooltip extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Hover tracks the bubble under the pointer.
type Hover struct {
	// Tip is the tooltip extent used for edge flipping. Zero takes
	// TooltipWidth x TooltipHeight.
	Tip Size

	bubble  matrix.Bubble
	pointer Point
	active  bool
}

// Enter records b as hovered at the pointer position.
func (h *Hover) Enter(b matrix.Bubble, pointerX, pointerY float64) {
	h.bubble = b
	h.pointer = Point{X: pointerX, Y: pointerY}
	h.active = true
}

// Move updates the pointer of the current hover. It is a no-op when nothing
// is hovered.
func (h *Hover) Move(pointerX, pointerY float64) {
	if h.active {
		h.pointer = Point{X: pointerX, Y: pointerY}
	}
}

// Leave clears the hover.
func (h *Hover) Leave() {
	*h = Hover{Tip: h.Tip}
}

// Hovered returns the hovered bubble.
func (h *Hover) Hovered() (matrix.Bubble, bool) {
	return h.bubble, h.active
}

// Tooltip returns the top-left corner of the tooltip inside viewport. The
// tooltip sits below and to the right of the pointer and flips to the other
// side of the pointer on an axis where it would overflow the right or bottom
// edge. ok is false while nothing is hovered.
func (h *Hover) Tooltip(viewport Size) (p Point, ok bool) {
	if !h.active {
		return Point{}, false
	}
	tip := h.Tip
	if tip.Width <= 0 {
		tip.Width = TooltipWidth
	}
	if tip.Height <= 0 {
		tip.Height = TooltipHeight
	}

	p.X = h.pointer.X + TooltipOffset
	if p.X+tip.Width > viewport.Width {
		p.X = max(h.pointer.X-TooltipOffset-tip.Width, 0)
	}
	p.Y = h.pointer.Y + TooltipOffset
	if p.Y+tip.Height > viewport.Height {
		p.Y = max(h.pointer.Y-TooltipOffset-tip.Height, 0)
	}
	return p, true
}

// TooltipLines is the tooltip text of a bubble: the thinker with lifespan,
// the term, the frequency and the sample snippets.
func TooltipLines(b matrix.Bubble) []string {
	title := b.ThinkerName
	if ls := b.Lifespan(); ls != "" {
		title += " " + ls
	}
	lines := []string{
		title,
		"Term: " + b.TermName,
		fmt.Sprintf("Co-occurrences: %d", b.Frequency),
	}
	for _, s := range b.SampleSnippets {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, "“"+s+"”")
		}
	}
	return lines
}
