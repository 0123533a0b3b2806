package sink

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/palette"
)

func sampleLayout() constellation.Layout {
	m := matrix.New([]matrix.Bubble{
		{TermID: "t1", TermName: "Reason", ThinkerID: "k", ThinkerName: "Kant", Frequency: 3, SampleSnippets: []string{"pure reason"}},
		{TermID: "t1", TermName: "Reason", ThinkerID: "h", ThinkerName: "Hegel & <co>", Frequency: 1},
	})
	return constellation.Compute(m, constellation.Options{}, palette.ByThinker, nil)
}

// wellFormed decodes every token and returns the element names seen.
func wellFormed(t *testing.T, data []byte) map[string]int {
	t.Helper()
	seen := map[string]int{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return seen
		}
		if err != nil {
			t.Fatalf("invalid XML: %v\n%s", err, data)
		}
		if se, ok := tok.(xml.StartElement); ok {
			seen[se.Name.Local]++
		}
	}
}

func TestRenderSVG(t *testing.T) {
	svg := RenderSVG(sampleLayout())
	seen := wellFormed(t, svg)
	s := string(svg)

	if seen["circle"] != 2 {
		t.Errorf("circles = %d, want 2", seen["circle"])
	}
	if seen["script"] != 1 {
		t.Error("interactive SVG should embed the script")
	}
	for _, want := range []string{
		`data-term-id="t1"`,
		`data-thinker-id="k"`,
		`data-thinker-name="Kant"`,
		`Hegel &amp; &lt;co&gt;`,
		`data-snippets="pure reason"`,
		`translate(400 300) scale(1) translate(-400 -300)`,
		`class="legend"`,
		`data-action="in"`,
		`id="tooltip"`,
		palette.Default[0],
		palette.Default[1],
	} {
		if !strings.Contains(s, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(s, constellation.EmptyMessage) {
		t.Error("non-empty layout rendered the empty state")
	}
}

func TestRenderSVGOptions(t *testing.T) {
	svg := string(RenderSVG(sampleLayout(), WithZoom(9), WithoutLegend(), Static(), WithTitle("Reason")))
	wellFormed(t, []byte(svg))

	if !strings.Contains(svg, "scale(3)") {
		t.Error("zoom should clamp to 3")
	}
	for _, absent := range []string{"<script", `class="legend"`, "zoom-controls", `id="tooltip"`, "data-min-zoom"} {
		if strings.Contains(svg, absent) {
			t.Errorf("static SVG should not contain %q", absent)
		}
	}
	if !strings.Contains(svg, "<title>Reason</title>") {
		t.Error("missing document title")
	}
}

func TestRenderSVGStates(t *testing.T) {
	empty := string(RenderSVG(constellation.Layout{Width: 400, Height: 200}))
	wellFormed(t, []byte(empty))
	if !strings.Contains(empty, escapeXML(constellation.EmptyMessage)) {
		t.Errorf("empty state missing message:\n%s", empty)
	}
	if strings.Contains(empty, "<circle") {
		t.Error("empty state should draw no bubbles")
	}

	failed := string(RenderErrorSVG(0, 0))
	wellFormed(t, []byte(failed))
	if !strings.Contains(failed, constellation.LoadFailedMessage) {
		t.Error("error state missing message")
	}
	if !strings.Contains(failed, `width="800"`) {
		t.Error("error state should fall back to the default canvas")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(sampleLayout())
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Width   float64 `json:"width"`
		Bubbles []struct {
			Bubble struct {
				ThinkerName string `json:"thinker_name"`
			} `json:"bubble"`
			Radius float64 `json:"radius"`
		} `json:"bubbles"`
		Legend []palette.Entry `json:"legend"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Width != 800 || len(got.Bubbles) != 2 || got.Bubbles[0].Bubble.ThinkerName != "Kant" {
		t.Errorf("unexpected JSON: %s", data)
	}
	if got.Bubbles[0].Radius != constellation.DefaultMaxRadius {
		t.Errorf("radius = %v", got.Bubbles[0].Radius)
	}

	empty, err := RenderJSON(constellation.Layout{Width: 1, Height: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(empty), `"bubbles": []`) {
		t.Errorf("empty layout should encode an empty array: %s", empty)
	}
}

func TestLabelFontSize(t *testing.T) {
	if got := labelFontSize(60, "Kant"); got != fontSizeMax {
		t.Errorf("large bubble font = %v, want %v", got, fontSizeMax)
	}
	if got := labelFontSize(15, "Schleiermacher"); got != fontSizeMin {
		t.Errorf("small bubble font = %v, want %v", got, fontSizeMin)
	}
	if got := truncate("Schleiermacher", 15, fontSizeMin); !strings.HasSuffix(got, "…") {
		t.Errorf("truncate = %q", got)
	}
}
