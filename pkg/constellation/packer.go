package constellation

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/constellation/pkg/matrix"
)

// PlacedBubble is a bubble with its circle on the canvas.
type PlacedBubble struct {
	Bubble matrix.Bubble `json:"bubble"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Radius float64       `json:"radius"`
	// Exhausted marks a bubble placed at the last spiral position because
	// no free spot was found within the iteration ceiling.
	Exhausted bool `json:"exhausted,omitempty"`
}

// Overlaps reports whether two circles are closer than their radii plus padding.
func (p PlacedBubble) Overlaps(q PlacedBubble, padding float64) bool {
	return math.Hypot(p.X-q.X, p.Y-q.Y) < p.Radius+q.Radius+padding
}

// Contains reports whether the point (x, y) lies inside the circle.
func (p PlacedBubble) Contains(x, y float64) bool {
	return math.Hypot(p.X-x, p.Y-y) <= p.Radius
}

// Result is the output of [Packer.Place].
type Result struct {
	// Placed is in placement order: frequency descending, ties in input order.
	Placed []PlacedBubble
	// Exhausted counts placements that hit the iteration ceiling.
	Exhausted int
}

// Packer places bubbles with a bounded spiral search.
type Packer struct {
	opts Options
}

// NewPacker creates a packer; zero option fields take their defaults.
func NewPacker(opts Options) *Packer {
	return &Packer{opts: opts.WithDefaults()}
}

// Options returns the effective options.
func (p *Packer) Options() Options { return p.opts }

// Place computes the layout of bubbles. The input slice is not modified.
func (p *Packer) Place(bubbles []matrix.Bubble, maxFrequency int) Result {
	if len(bubbles) == 0 {
		return Result{Placed: []PlacedBubble{}}
	}

	sorted := slices.Clone(bubbles)
	slices.SortStableFunc(sorted, func(a, b matrix.Bubble) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})

	cx, cy := p.opts.Center()
	res := Result{Placed: make([]PlacedBubble, 0, len(sorted))}

	for i, b := range sorted {
		pb := PlacedBubble{Bubble: b, Radius: p.opts.Radius(b.Frequency, maxFrequency)}
		if i == 0 {
			pb.X, pb.Y = cx, cy
		} else {
			pb.X, pb.Y, pb.Exhausted = p.spiral(pb.Radius, res.Placed)
			if pb.Exhausted {
				res.Exhausted++
			}
		}
		res.Placed = append(res.Placed, pb)
	}
	return res
}

// spiral walks outward from the center and returns the first free position.
// When none is found it returns the last position computed and exhausted=true.
func (p *Packer) spiral(radius float64, placed []PlacedBubble) (x, y float64, exhausted bool) {
	cx, cy := p.opts.Center()
	angle, dist := 0.0, 0.0
	x, y = cx, cy

	for range p.opts.MaxIterations {
		angle += p.opts.AngleStep
		dist += p.opts.DistanceStep
		x = cx + dist*math.Cos(angle)
		y = cy + dist*math.Sin(angle)

		candidate := PlacedBubble{X: x, Y: y, Radius: radius}
		if p.inBounds(candidate) && !p.collides(candidate, placed) {
			return x, y, false
		}
	}
	return x, y, true
}

func (p *Packer) inBounds(c PlacedBubble) bool {
	m := *p.opts.Margin
	return c.X-c.Radius >= m && c.X+c.Radius <= p.opts.Width-m &&
		c.Y-c.Radius >= m && c.Y+c.Radius <= p.opts.Height-m
}

func (p *Packer) collides(c PlacedBubble, placed []PlacedBubble) bool {
	for _, q := range placed {
		if c.Overlaps(q, *p.opts.Padding) {
			return true
		}
	}
	return false
}

// Place lays out bubbles with the default options.
func Place(bubbles []matrix.Bubble, maxFrequency int) []PlacedBubble {
	return NewPacker(Options{}).Place(bubbles, maxFrequency).Placed
}
