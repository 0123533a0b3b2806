package render

import (
	"strings"

	"github.com/matzehuels/constellation/pkg/errors"
)

// Format is an output format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
	// FormatDOT is the Graphviz source of the network view.
	FormatDOT Format = "dot"
)

// Formats lists the supported formats.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatDOT}

// ParseFormat parses a format name or file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want svg, png, pdf, json or dot)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	case FormatDOT:
		return "text/vnd.graphviz"
	}
	return "application/octet-stream"
}

// IsBinary reports whether f needs rsvg-convert.
func (f Format) IsBinary() bool {
	return f == FormatPNG || f == FormatPDF
}
