package sink

import (
	"github.com/matzehuels/constellation/pkg/constellation"
)

// RenderJSON serializes the layout with indentation.
func RenderJSON(l constellation.Layout) ([]byte, error) {
	if l.Bubbles == nil {
		l.Bubbles = []constellation.PlacedBubble{}
	}
	return constellation.MarshalLayout(l)
}
