package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Zoom bounds and step.
const (
	MinZoom     = 0.5
	MaxZoom     = 3.0
	ZoomStep    = 0.2
	DefaultZoom = 1.0
)

// WheelPolicy decides which wheel direction zooms in.
type WheelPolicy int

const (
	// WheelUpZoomsIn zooms in on negative deltaY (scrolling up).
	WheelUpZoomsIn WheelPolicy = iota
	// WheelDownZoomsIn zooms in on positive deltaY.
	WheelDownZoomsIn
)

// DefaultWheelPolicy is the wheel policy of a new [Zoom].
const DefaultWheelPolicy = WheelUpZoomsIn

// String returns the config name of the policy.
func (p WheelPolicy) String() string {
	if p == WheelDownZoomsIn {
		return "inverted"
	}
	return "natural"
}

// ParseWheelPolicy parses "natural" (or "") and "inverted".
func ParseWheelPolicy(s string) (WheelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "natural":
		return WheelUpZoomsIn, nil
	case "inverted":
		return WheelDownZoomsIn, nil
	}
	return 0, fmt.Errorf("unknown wheel policy %q (want natural or inverted)", s)
}

// Zoom is a clamped, stepped scale factor. The zero value is not ready to
// use; call [NewZoom].
type Zoom struct {
	level  float64
	Policy WheelPolicy
}

// NewZoom returns a zoom at DefaultZoom with the default wheel policy.
func NewZoom() *Zoom {
	return &Zoom{level: DefaultZoom, Policy: DefaultWheelPolicy}
}

// Level returns the current scale factor.
func (z *Zoom) Level() float64 { return z.level }

// Set moves to level, clamped to [MinZoom, MaxZoom], and returns the result.
// NaN leaves the level unchanged.
func (z *Zoom) Set(level float64) float64 {
	if math.IsNaN(level) {
		return z.level
	}
	// Snap to hundredths so repeated steps don't drift.
	level = math.Round(level*100) / 100
	z.level = min(max(level, MinZoom), MaxZoom)
	return z.level
}

// ZoomIn increases the level by one step.
func (z *Zoom) ZoomIn() float64 { return z.Set(z.level + ZoomStep) }

// ZoomOut decreases the level by one step.
func (z *Zoom) ZoomOut() float64 { return z.Set(z.level - ZoomStep) }

// Reset returns to DefaultZoom.
func (z *Zoom) Reset() float64 { return z.Set(DefaultZoom) }

// Wheel applies one wheel event. A zero delta leaves the level unchanged.
func (z *Zoom) Wheel(deltaY float64) float64 {
	if deltaY == 0 {
		return z.level
	}
	in := deltaY < 0
	if z.Policy == WheelDownZoomsIn {
		in = !in
	}
	if in {
		return z.ZoomIn()
	}
	return z.ZoomOut()
}

// Transform returns the SVG transform scaling the scene about (cx, cy).
func (z *Zoom) Transform(cx, cy float64) string {
	return fmt.Sprintf("translate(%s %s) scale(%s) translate(%s %s)",
		num(cx), num(cy), num(z.level), num(-cx), num(-cy))
}

// ToScreen maps a scene point through the transform.
func (z *Zoom) ToScreen(x, y, cx, cy float64) (sx, sy float64) {
	return cx + (x-cx)*z.level, cy + (y-cy)*z.level
}

// ToScene is the inverse of ToScreen.
func (z *Zoom) ToScene(sx, sy, cx, cy float64) (x, y float64) {
	return cx + (sx-cx)/z.level, cy + (sy-cy)/z.level
}

func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
