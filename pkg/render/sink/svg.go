package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/view"
)

const fontFamily = `system-ui, -apple-system, "Segoe UI", Helvetica, Arial, sans-serif`

const (
	labelMinRadius = 14.0 // smaller bubbles carry no label
	termMinRadius  = 32.0 // bubbles from this radius also show the term
	fontSizeMin    = 8.0
	fontSizeMax    = 16.0
	legendRow      = 18.0
	legendSwatch   = 10.0
)

const interactionCSS = `
    .bubble circle { fill-opacity: 0.72; stroke: #ffffff; stroke-width: 1.5; transition: fill-opacity 0.15s ease, stroke-width 0.15s ease; }
    .bubble:hover circle, .bubble.hover circle { fill-opacity: 0.95; stroke: #111827; stroke-width: 2; }
    .bubble { cursor: pointer; }
    .bubble-label { pointer-events: none; fill: #111827; font-weight: 600; }
    .bubble-term { pointer-events: none; fill: #374151; }
    .zoom-btn { cursor: pointer; }
    .zoom-btn rect { fill: #ffffff; stroke: #d1d5db; }
    .zoom-btn:hover rect { fill: #f3f4f6; }
    #tooltip { pointer-events: none; }
    #tooltip rect { fill: #111827; fill-opacity: 0.92; }
    #tooltip text { fill: #f9fafb; }`

// interactionJS mirrors the view package: clamped stepped zoom about the
// canvas center and a tooltip offset from the pointer that flips at the
// right and bottom edges.
const interactionJS = `
    const svg = (document.currentScript && document.currentScript.closest('svg')) || document.querySelector('svg');
    const scene = svg.getElementById('scene');
    const tip = svg.getElementById('tooltip');
    const tipBg = tip.querySelector('rect');
    const tipText = tip.querySelector('text');
    const zoomLabel = svg.getElementById('zoom-level');
    const cfg = svg.dataset;
    const minZoom = +cfg.minZoom, maxZoom = +cfg.maxZoom, step = +cfg.zoomStep, wheelSign = +cfg.wheelSign;
    const cx = +cfg.width / 2, cy = +cfg.height / 2;
    let zoom = +cfg.zoom;

    function setZoom(z) {
      zoom = Math.min(maxZoom, Math.max(minZoom, Math.round(z * 100) / 100));
      scene.setAttribute('transform', 'translate(' + cx + ' ' + cy + ') scale(' + zoom + ') translate(' + (-cx) + ' ' + (-cy) + ')');
      if (zoomLabel) zoomLabel.textContent = Math.round(zoom * 100) + '%';
    }
    function pointer(evt) {
      const pt = svg.createSVGPoint();
      pt.x = evt.clientX; pt.y = evt.clientY;
      return pt.matrixTransform(svg.getScreenCTM().inverse());
    }
    function showTip(el, evt) {
      while (tipText.firstChild) tipText.removeChild(tipText.firstChild);
      const lines = [el.dataset.title, 'Term: ' + el.dataset.term, 'Co-occurrences: ' + el.dataset.frequency]
        .concat((el.dataset.snippets || '').split('\n').filter(s => s.trim()).map(s => '“' + s + '”'));
      lines.forEach((line, i) => {
        const t = document.createElementNS('http://www.w3.org/2000/svg', 'tspan');
        t.setAttribute('x', 8); t.setAttribute('dy', i === 0 ? 16 : 15);
        if (i === 0) t.setAttribute('font-weight', '600');
        t.textContent = line.length > 60 ? line.slice(0, 59) + '…' : line;
        tipText.appendChild(t);
      });
      tip.setAttribute('visibility', 'visible');
      const box = tipText.getBBox();
      tipBg.setAttribute('width', box.width + 16);
      tipBg.setAttribute('height', box.height + 12);
      moveTip(evt);
    }
    function moveTip(evt) {
      if (tip.getAttribute('visibility') !== 'visible') return;
      const p = pointer(evt), off = +cfg.tipOffset;
      const w = +tipBg.getAttribute('width'), h = +tipBg.getAttribute('height');
      let x = p.x + off, y = p.y + off;
      if (x + w > +cfg.width) x = Math.max(p.x - off - w, 0);
      if (y + h > +cfg.height) y = Math.max(p.y - off - h, 0);
      tip.setAttribute('transform', 'translate(' + x.toFixed(1) + ',' + y.toFixed(1) + ')');
    }
    function hideTip() { tip.setAttribute('visibility', 'hidden'); }

    svg.querySelectorAll('.bubble').forEach(el => {
      el.addEventListener('mouseenter', evt => { el.classList.add('hover'); showTip(el, evt); });
      el.addEventListener('mousemove', moveTip);
      el.addEventListener('mouseleave', () => { el.classList.remove('hover'); hideTip(); });
      el.addEventListener('click', () => {
        const detail = { termId: el.dataset.termId, thinkerId: el.dataset.thinkerId, thinkerName: el.dataset.thinkerName };
        svg.dispatchEvent(new CustomEvent('bubbleclick', { detail: detail, bubbles: true }));
        if (window.parent && window.parent !== window) window.parent.postMessage({ type: 'bubbleclick', detail: detail }, '*');
      });
    });
    svg.querySelectorAll('.zoom-btn').forEach(el => {
      el.addEventListener('click', () => {
        const a = el.dataset.action;
        setZoom(a === 'in' ? zoom + step : a === 'out' ? zoom - step : 1);
      });
    });
    svg.addEventListener('wheel', evt => {
      if (evt.deltaY === 0) return;
      evt.preventDefault();
      setZoom(zoom + (evt.deltaY < 0 ? step : -step) * wheelSign);
    }, { passive: false });`

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	zoom        float64
	wheel       view.WheelPolicy
	legend      bool
	controls    bool
	interactive bool
	title       string
}

// WithZoom sets the initial zoom level. It is clamped like [view.Zoom].
func WithZoom(level float64) SVGOption { return func(r *svgRenderer) { r.zoom = level } }

// WithWheelPolicy sets the wheel direction that zooms in.
func WithWheelPolicy(p view.WheelPolicy) SVGOption { return func(r *svgRenderer) { r.wheel = p } }

// WithoutLegend omits the legend.
func WithoutLegend() SVGOption { return func(r *svgRenderer) { r.legend = false } }

// WithoutControls omits the zoom buttons.
func WithoutControls() SVGOption { return func(r *svgRenderer) { r.controls = false } }

// Static drops the embedded script, the zoom buttons and the tooltip. Use it
// for PNG and PDF conversion.
func Static() SVGOption {
	return func(r *svgRenderer) { r.interactive = false; r.controls = false }
}

// WithTitle sets the document title.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{zoom: view.DefaultZoom, legend: true, controls: true, interactive: true}
	for _, opt := range opts {
		opt(&r)
	}
	z := view.NewZoom()
	r.zoom = z.Set(r.zoom)
	return r
}

// RenderSVG renders l. An empty layout renders the empty state.
func RenderSVG(l constellation.Layout, opts ...SVGOption) []byte {
	if l.IsEmpty() {
		return RenderEmptySVG(l.Width, l.Height)
	}
	r := newSVGRenderer(opts...)

	var buf bytes.Buffer
	r.openSVG(&buf, l.Width, l.Height)
	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", interactionCSS)
	}

	z := view.NewZoom()
	z.Set(r.zoom)
	fmt.Fprintf(&buf, `  <g id="scene" transform="%s">`+"\n", z.Transform(l.Width/2, l.Height/2))
	for i, pb := range l.Bubbles {
		renderBubble(&buf, i, pb, l.Color(pb.Bubble), r.interactive)
	}
	buf.WriteString("  </g>\n")

	if r.legend && len(l.Legend) > 0 {
		renderLegend(&buf, l)
	}
	if r.controls {
		renderControls(&buf, l.Width, r.zoom)
	}
	if r.interactive {
		buf.WriteString(`  <g id="tooltip" visibility="hidden"><rect rx="6" width="0" height="0"/>`)
		fmt.Fprintf(&buf, `<text font-family='%s' font-size="12"/></g>`+"\n", fontFamily)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", interactionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// RenderEmptySVG renders the empty state.
func RenderEmptySVG(width, height float64) []byte {
	return renderMessage(width, height, constellation.EmptyMessage, "#6b7280")
}

// RenderErrorSVG renders the load failure state.
func RenderErrorSVG(width, height float64) []byte {
	return renderMessage(width, height, constellation.LoadFailedMessage, "#b91c1c")
}

func renderMessage(width, height float64, msg, color string) []byte {
	if width <= 0 {
		width = constellation.DefaultWidth
	}
	if height <= 0 {
		height = constellation.DefaultHeight
	}
	r := svgRenderer{}
	var buf bytes.Buffer
	r.openSVG(&buf, width, height)
	fmt.Fprintf(&buf, `  <text class="state" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-family='%s' font-size="16" fill="%s">%s</text>`+"\n",
		width/2, height/2, fontFamily, color, escapeXML(msg))
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r svgRenderer) openSVG(buf *bytes.Buffer, width, height float64) {
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f"`,
		width, height, width, height)
	if r.interactive {
		sign := 1
		if r.wheel == view.WheelDownZoomsIn {
			sign = -1
		}
		fmt.Fprintf(buf, ` data-width="%g" data-height="%g" data-zoom="%g" data-min-zoom="%g" data-max-zoom="%g" data-zoom-step="%g" data-wheel-sign="%d" data-tip-offset="%g"`,
			width, height, r.zoom, view.MinZoom, view.MaxZoom, view.ZoomStep, sign, view.TooltipOffset)
	}
	buf.WriteString(">\n")
	if r.title != "" {
		fmt.Fprintf(buf, "  <title>%s</title>\n", escapeXML(r.title))
	}
	fmt.Fprintf(buf, `  <rect width="%.1f" height="%.1f" fill="#ffffff"/>`+"\n", width, height)
}

func renderBubble(buf *bytes.Buffer, i int, pb constellation.PlacedBubble, color string, interactive bool) {
	b := pb.Bubble
	title := b.ThinkerName
	if ls := b.Lifespan(); ls != "" {
		title += " " + ls
	}

	fmt.Fprintf(buf, `    <g class="bubble" id="bubble-%d" data-term-id="%s" data-thinker-id="%s" data-thinker-name="%s" data-term="%s" data-title="%s" data-frequency="%d"`,
		i, escapeXML(b.TermID), escapeXML(b.ThinkerID), escapeXML(b.ThinkerName), escapeXML(b.TermName), escapeXML(title), b.Frequency)
	if len(b.SampleSnippets) > 0 {
		fmt.Fprintf(buf, ` data-snippets="%s"`, escapeXML(strings.Join(b.SampleSnippets, "\n")))
	}
	buf.WriteString(">\n")

	fmt.Fprintf(buf, `      <circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"`, pb.X, pb.Y, pb.Radius, escapeXML(color))
	if !interactive {
		buf.WriteString(` fill-opacity="0.72" stroke="#ffffff" stroke-width="1.5"`)
	}
	buf.WriteString("/>\n")

	if pb.Radius >= labelMinRadius {
		size := labelFontSize(pb.Radius, b.ThinkerName)
		y := pb.Y
		if pb.Radius >= termMinRadius {
			y -= size * 0.35
		}
		fmt.Fprintf(buf, `      <text class="bubble-label" x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="middle" font-family='%s' font-size="%.1f">%s</text>`+"\n",
			pb.X, y, fontFamily, size, escapeXML(truncate(b.ThinkerName, pb.Radius, size)))
		if pb.Radius >= termMinRadius {
			ts := max(fontSizeMin, size*0.8)
			fmt.Fprintf(buf, `      <text class="bubble-term" x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="middle" font-family='%s' font-size="%.1f">%s</text>`+"\n",
				pb.X, y+size*1.1, fontFamily, ts, escapeXML(truncate(b.TermName, pb.Radius, ts)))
		}
	}

	fmt.Fprintf(buf, "      <title>%s</title>\n", escapeXML(strings.Join(view.TooltipLines(b), "\n")))
	buf.WriteString("    </g>\n")
}

func renderLegend(buf *bytes.Buffer, l constellation.Layout) {
	heading := "Thinkers"
	if l.ColorMode == palette.ByTerm {
		heading = "Terms"
	}
	x, y := constellation.DefaultMargin, constellation.DefaultMargin
	fmt.Fprintf(buf, `  <g class="legend" font-family='%s' font-size="11">`+"\n", fontFamily)
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-weight="600" fill="#374151">%s</text>`+"\n", x, y+legendSwatch, heading)
	for i, e := range l.Legend {
		ry := y + float64(i+1)*legendRow
		fmt.Fprintf(buf, `    <rect x="%.1f" y="%.1f" width="%.0f" height="%.0f" rx="2" fill="%s"/>`+"\n",
			x, ry, legendSwatch, legendSwatch, escapeXML(e.Color))
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" fill="#374151">%s</text>`+"\n",
			x+legendSwatch+6, ry+legendSwatch-1, escapeXML(e.Key))
	}
	buf.WriteString("  </g>\n")
}

func renderControls(buf *bytes.Buffer, width, zoom float64) {
	const size = 26.0
	x := width - constellation.DefaultMargin - size
	y := constellation.DefaultMargin
	fmt.Fprintf(buf, `  <g class="zoom-controls" font-family='%s' font-size="14" text-anchor="middle">`+"\n", fontFamily)
	for i, btn := range []struct{ action, label string }{{"in", "+"}, {"out", "−"}, {"reset", "⟲"}} {
		by := y + float64(i)*(size+4)
		fmt.Fprintf(buf, `    <g class="zoom-btn" data-action="%s"><rect x="%.1f" y="%.1f" width="%.0f" height="%.0f" rx="4"/><text x="%.1f" y="%.1f" dominant-baseline="middle" fill="#111827">%s</text></g>`+"\n",
			btn.action, x, by, size, size, x+size/2, by+size/2, btn.label)
	}
	fmt.Fprintf(buf, `    <text id="zoom-level" x="%.1f" y="%.1f" font-size="10" fill="#6b7280">%d%%</text>`+"\n",
		x+size/2, y+3*(size+4)+10, int(math.Round(zoom*100)))
	buf.WriteString("  </g>\n")
}

func labelFontSize(radius float64, label string) float64 {
	n := max(1, len([]rune(label)))
	byWidth := radius * 1.7 / (float64(n) * 0.55)
	return max(fontSizeMin, min(fontSizeMax, radius/2.5, byWidth))
}

func truncate(label string, radius, fontSize float64) string {
	runes := []rune(label)
	maxChars := max(3, int(radius*1.8/(fontSize*0.55)))
	if len(runes) <= maxChars {
		return label
	}
	return string(runes[:maxChars-1]) + "…"
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
