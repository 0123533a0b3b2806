package view

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/matrix"
)

func TestZoomSteps(t *testing.T) {
	z := NewZoom()
	if z.Level() != DefaultZoom {
		t.Fatalf("initial level = %v", z.Level())
	}
	if got := z.ZoomIn(); got != 1.2 {
		t.Errorf("ZoomIn = %v, want 1.2", got)
	}
	z.ZoomOut()
	if got := z.ZoomOut(); got != 0.8 {
		t.Errorf("ZoomOut twice = %v, want 0.8", got)
	}
	if got := z.Reset(); got != 1.0 {
		t.Errorf("Reset = %v, want 1", got)
	}
}

func TestZoomClamps(t *testing.T) {
	z := NewZoom()
	for range 50 {
		z.ZoomIn()
	}
	if z.Level() != MaxZoom {
		t.Errorf("level after many ZoomIn = %v, want %v", z.Level(), MaxZoom)
	}
	for range 50 {
		z.ZoomOut()
	}
	if z.Level() != MinZoom {
		t.Errorf("level after many ZoomOut = %v, want %v", z.Level(), MinZoom)
	}
	if got := z.Set(10); got != MaxZoom {
		t.Errorf("Set(10) = %v", got)
	}
	if got := z.Set(-1); got != MinZoom {
		t.Errorf("Set(-1) = %v", got)
	}
	if got := z.Set(math.Inf(1)); got != MaxZoom {
		t.Errorf("Set(+Inf) = %v", got)
	}
	if got := z.Set(math.Inf(-1)); got != MinZoom {
		t.Errorf("Set(-Inf) = %v", got)
	}
	if got := z.Set(math.NaN()); got != MinZoom {
		t.Errorf("Set(NaN) = %v, want level kept at %v", got, MinZoom)
	}
	if got := z.ZoomIn(); got != 0.7 {
		t.Errorf("ZoomIn after Set(NaN) = %v, want 0.7", got)
	}
}

func TestZoomWheel(t *testing.T) {
	tests := []struct {
		name   string
		policy WheelPolicy
		delta  float64
		want   float64
	}{
		{"natural up", WheelUpZoomsIn, -100, 1.2},
		{"natural down", WheelUpZoomsIn, 100, 0.8},
		{"inverted up", WheelDownZoomsIn, -3, 0.8},
		{"inverted down", WheelDownZoomsIn, 3, 1.2},
		{"zero delta", WheelUpZoomsIn, 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewZoom()
			z.Policy = tt.policy
			if got := z.Wheel(tt.delta); got != tt.want {
				t.Errorf("Wheel(%v) = %v, want %v", tt.delta, got, tt.want)
			}
		})
	}
}

func TestParseWheelPolicy(t *testing.T) {
	for in, want := range map[string]WheelPolicy{"": WheelUpZoomsIn, "natural": WheelUpZoomsIn, "Inverted": WheelDownZoomsIn} {
		got, err := ParseWheelPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseWheelPolicy(%q) = %v, %v", in, got, err)
		}
		if in != "" && got.String() != "natural" && got.String() != "inverted" {
			t.Errorf("String() = %q", got.String())
		}
	}
	if _, err := ParseWheelPolicy("sideways"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestZoomTransform(t *testing.T) {
	z := NewZoom()
	z.Set(1.5)
	want := "translate(400 300) scale(1.5) translate(-400 -300)"
	if got := z.Transform(400, 300); got != want {
		t.Errorf("Transform = %q, want %q", got, want)
	}
}

func TestZoomScreenSceneInverse(t *testing.T) {
	z := NewZoom()
	z.Set(2)
	sx, sy := z.ToScreen(450, 300, 400, 300)
	if sx != 500 || sy != 300 {
		t.Errorf("ToScreen = (%v, %v), want (500, 300)", sx, sy)
	}
	x, y := z.ToScene(sx, sy, 400, 300)
	if math.Abs(x-450) > 1e-9 || math.Abs(y-300) > 1e-9 {
		t.Errorf("ToScene = (%v, %v), want (450, 300)", x, y)
	}
}

func TestTooltipPlacement(t *testing.T) {
	vp := Size{Width: 800, Height: 600}
	tests := []struct {
		name   string
		px, py float64
		want   Point
	}{
		{"default", 100, 100, Point{112, 112}},
		{"flip right edge", 700, 100, Point{700 - TooltipOffset - TooltipWidth, 112}},
		{"flip bottom edge", 100, 550, Point{112, 550 - TooltipOffset - TooltipHeight}},
		{"flip both", 790, 590, Point{790 - TooltipOffset - TooltipWidth, 590 - TooltipOffset - TooltipHeight}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h Hover
			h.Enter(matrix.Bubble{ThinkerName: "Kant"}, tt.px, tt.py)
			got, ok := h.Tooltip(vp)
			if !ok || got != tt.want {
				t.Errorf("Tooltip = %v, %v, want %v", got, ok, tt.want)
			}
		})
	}
}

func TestTooltipHiddenWithoutHover(t *testing.T) {
	var h Hover
	if _, ok := h.Tooltip(Size{800, 600}); ok {
		t.Error("tooltip should be hidden before Enter")
	}
	h.Enter(matrix.Bubble{}, 1, 1)
	h.Leave()
	if _, ok := h.Tooltip(Size{800, 600}); ok {
		t.Error("tooltip should be hidden after Leave")
	}
	h.Move(5, 5)
	if _, ok := h.Hovered(); ok {
		t.Error("Move must not start a hover")
	}
}

func TestTooltipLines(t *testing.T) {
	birth, death := 1724, 1804
	lines := TooltipLines(matrix.Bubble{
		TermName: "Reason", ThinkerName: "Kant",
		ThinkerBirthYear: &birth, ThinkerDeathYear: &death,
		Frequency: 3, SampleSnippets: []string{"pure reason", "  "},
	})
	want := []string{"Kant (1724–1804)", "Term: Reason", "Co-occurrences: 3", "“pure reason”"}
	if fmt.Sprint(lines) != fmt.Sprint(want) {
		t.Errorf("TooltipLines = %q, want %q", lines, want)
	}
}

func testLayout() constellation.Layout {
	return constellation.Layout{
		Width: 800, Height: 600,
		Bubbles: []constellation.PlacedBubble{
			{Bubble: matrix.Bubble{TermID: "t1", ThinkerID: "k", ThinkerName: "Kant"}, X: 400, Y: 300, Radius: 60},
			{Bubble: matrix.Bubble{TermID: "t1", ThinkerID: "h", ThinkerName: "Hegel"}, X: 500, Y: 300, Radius: 20},
		},
	}
}

func TestControllerClick(t *testing.T) {
	var got []string
	c := NewController(func(termID, thinkerID, thinkerName string) {
		got = append(got, termID, thinkerID, thinkerName)
	})
	c.Zoom.ZoomIn()
	c.Hover.Enter(matrix.Bubble{ThinkerName: "Hegel"}, 10, 10)

	c.Click(matrix.Bubble{TermID: "t1", ThinkerID: "k", ThinkerName: "Kant"})

	if fmt.Sprint(got) != "[t1 k Kant]" {
		t.Errorf("callback args = %v", got)
	}
	if c.Zoom.Level() != 1.2 {
		t.Error("click must not change zoom")
	}
	if b, ok := c.Hover.Hovered(); !ok || b.ThinkerName != "Hegel" {
		t.Error("click must not change hover")
	}

	// nil callback is a no-op
	(&Controller{Zoom: NewZoom()}).Click(matrix.Bubble{})
}

func TestControllerPointer(t *testing.T) {
	l := testLayout()
	c := NewController(nil)

	c.PointerMove(l, 410, 300)
	if b, ok := c.Hover.Hovered(); !ok || b.ThinkerName != "Kant" {
		t.Fatalf("hover = %v, %v", b.ThinkerName, ok)
	}

	// At 2x, screen x=600 maps to scene x=500 (Hegel).
	c.Zoom.Set(2)
	c.PointerMove(l, 600, 300)
	if b, _ := c.Hover.Hovered(); b.ThinkerName != "Hegel" {
		t.Errorf("zoomed hover = %v, want Hegel", b.ThinkerName)
	}

	c.PointerMove(l, 5, 5)
	if _, ok := c.Hover.Hovered(); ok {
		t.Error("pointer over empty canvas should leave")
	}

	var clicked string
	c.OnBubbleClick = func(_, _, name string) { clicked = name }
	if !c.PointerClick(l, 600, 300) || clicked != "Hegel" {
		t.Errorf("PointerClick clicked %q", clicked)
	}
	if c.PointerClick(l, 5, 5) {
		t.Error("click on empty canvas should report false")
	}
}

func ExampleZoom_Transform() {
	z := NewZoom()
	z.ZoomIn()
	fmt.Println(z.Transform(400, 300))
	// Output: translate(400 300) scale(1.2) translate(-400 -300)
}
