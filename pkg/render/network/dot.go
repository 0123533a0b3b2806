package network

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/render"
)

// Edge width bounds in points.
const (
	MinPenWidth = 1.0
	MaxPenWidth = 6.0
)

// Options configures network diagram generation.
type Options struct {
	// Detailed labels edges with their frequency and thinker nodes with
	// their lifespan.
	Detailed bool
	// MinFrequency drops edges below this frequency.
	MinFrequency int
}

// ToDOT converts a matrix to Graphviz DOT. colors may be nil.
func ToDOT(m *matrix.Matrix, colors *palette.Map, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph constellation {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"Helvetica\", fontsize=14, style=filled, fillcolor=white];\n")
	buf.WriteString("  edge [color=\"#9ca3af\"];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.25;\n")
	if m == nil || m.IsEmpty() {
		buf.WriteString("}\n")
		return buf.String()
	}

	var edges []matrix.Bubble
	terms := map[string]matrix.Bubble{}
	thinkers := map[string]matrix.Bubble{}
	var termOrder, thinkerOrder []string
	for _, b := range m.Bubbles {
		if b.Frequency < opts.MinFrequency {
			continue
		}
		edges = append(edges, b)
		if _, ok := terms[b.TermID]; !ok {
			terms[b.TermID] = b
			termOrder = append(termOrder, b.TermID)
		}
		if _, ok := thinkers[b.ThinkerID]; !ok {
			thinkers[b.ThinkerID] = b
			thinkerOrder = append(thinkerOrder, b.ThinkerID)
		}
	}

	buf.WriteString("\n  subgraph terms {\n    rank=same;\n")
	for _, id := range termOrder {
		b := terms[id]
		attrs := []string{fmt.Sprintf("label=%q", b.TermName), "shape=ellipse"}
		if colors != nil && colors.Mode() == palette.ByTerm {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", colors.Color(b.TermName)))
		}
		fmt.Fprintf(&buf, "    %q [%s];\n", termNode(id), strings.Join(attrs, ", "))
	}
	buf.WriteString("  }\n")

	buf.WriteString("\n  subgraph thinkers {\n    rank=same;\n")
	for _, id := range thinkerOrder {
		b := thinkers[id]
		label := b.ThinkerName
		if opts.Detailed {
			if ls := b.Lifespan(); ls != "" {
				label += "\n" + ls
			}
		}
		attrs := []string{fmt.Sprintf("label=%q", label), "shape=box", "style=\"rounded,filled\""}
		if colors != nil && colors.Mode() != palette.ByTerm {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", colors.Color(b.ThinkerName)))
		}
		fmt.Fprintf(&buf, "    %q [%s];\n", thinkerNode(id), strings.Join(attrs, ", "))
	}
	buf.WriteString("  }\n\n")

	for _, b := range edges {
		attrs := []string{"penwidth=" + strconv.FormatFloat(penWidth(b.Frequency, m.MaxFrequency), 'f', 2, 64)}
		if opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=\"%d\"", b.Frequency))
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", termNode(b.TermID), thinkerNode(b.ThinkerID), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func termNode(id string) string    { return "term:" + id }
func thinkerNode(id string) string { return "thinker:" + id }

func penWidth(freq, maxFreq int) float64 {
	if maxFreq <= 1 {
		return MinPenWidth
	}
	ratio := min(max(float64(freq)/float64(maxFreq), 0), 1)
	return MinPenWidth + (MaxPenWidth-MinPenWidth)*ratio
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel-sized one so the SVG scales like the constellation.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders DOT source as PDF.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders DOT source as PNG at the given scale.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
