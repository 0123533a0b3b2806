package view

import (
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/matrix"
)

// ClickFunc receives the identity of a clicked bubble.
type ClickFunc func(termID, thinkerID, thinkerName string)

// Controller combines zoom, hover and click handling for one layout.
type Controller struct {
	Zoom  *Zoom
	Hover Hover

	// OnBubbleClick is called by Click. Nil disables clicks.
	OnBubbleClick ClickFunc
}

// NewController returns a controller at the default zoom.
func NewController(onClick ClickFunc) *Controller {
	return &Controller{Zoom: NewZoom(), OnBubbleClick: onClick}
}

// Click dispatches b to OnBubbleClick. Hover and zoom are left untouched.
func (c *Controller) Click(b matrix.Bubble) {
	if c.OnBubbleClick != nil {
		c.OnBubbleClick(b.TermID, b.ThinkerID, b.ThinkerName)
	}
}

// BubbleAt returns the bubble under the screen point (sx, sy) at the
// current zoom.
func (c *Controller) BubbleAt(l constellation.Layout, sx, sy float64) (constellation.PlacedBubble, bool) {
	cx, cy := l.Width/2, l.Height/2
	x, y := c.Zoom.ToScene(sx, sy, cx, cy)
	return l.HitTest(x, y)
}

// PointerMove updates hover from a pointer position: entering the bubble
// under it, following it within the same bubble or leaving when the pointer
// is over empty canvas.
func (c *Controller) PointerMove(l constellation.Layout, sx, sy float64) {
	pb, ok := c.BubbleAt(l, sx, sy)
	if !ok {
		c.Hover.Leave()
		return
	}
	if cur, hovered := c.Hover.Hovered(); hovered && cur.Key() == pb.Bubble.Key() {
		c.Hover.Move(sx, sy)
		return
	}
	c.Hover.Enter(pb.Bubble, sx, sy)
}

// PointerClick clicks the bubble under the screen point, if any.
func (c *Controller) PointerClick(l constellation.Layout, sx, sy float64) bool {
	pb, ok := c.BubbleAt(l, sx, sy)
	if ok {
		c.Click(pb.Bubble)
	}
	return ok
}
