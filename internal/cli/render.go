package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/pipeline"
	"github.com/matzehuels/constellation/pkg/render"
	"github.com/matzehuels/constellation/pkg/view"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	source   sourceFlags
	filter   filterFlags
	layout   layoutFlags
	output   string  // output file, or base path for several formats
	formats  string  // comma-separated: svg, png, pdf, json, dot
	kind     string  // constellation or network
	zoom     float64 // initial zoom of interactive SVGs
	wheel    string  // natural or inverted
	noLegend bool
	title    string
	scale    float64 // PNG pixel density
	detailed bool    // network: show lifespans and frequencies
	minFreq  int     // network: drop weaker pairs
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the constellation to SVG, PNG, PDF, JSON or DOT",
		Long: `Render the co-occurrence matrix as a packed bubble chart (the default) or,
with -t network, as a term/thinker network drawn by Graphviz.

SVG output is interactive: hovering a bubble shows its tooltip, the mouse
wheel and the +/- controls zoom, and clicking a bubble opens its definition.`,
		Example: `  constellation render --corpus notes.yaml -f svg,png -o kant
  constellation render --api http://localhost:8080 --folder critique -t network -f pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	addFilterFlags(cmd, &opts.filter)
	addLayoutFlags(cmd, &opts.layout)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base path (default: constellation.<format>)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "svg", "output formats: svg, png, pdf, json, dot (comma-separated)")
	cmd.Flags().StringVarP(&opts.kind, "type", "t", string(pipeline.DefaultKind), "visualization: constellation, network")
	cmd.Flags().Float64Var(&opts.zoom, "zoom", 0, "initial zoom level (0.5 to 3)")
	cmd.Flags().StringVar(&opts.wheel, "wheel", "", "mouse wheel direction: natural, inverted")
	cmd.Flags().BoolVar(&opts.noLegend, "no-legend", false, "omit the color legend")
	cmd.Flags().StringVar(&opts.title, "title", "", "document title")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG pixel density")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "network: label nodes with lifespans and frequencies")
	cmd.Flags().IntVar(&opts.minFreq, "min-frequency", 0, "network: drop pairs mentioned fewer times")

	return cmd
}

// renderPipelineOptions converts the flags into validated pipeline options.
func (c *CLI) renderPipelineOptions(opts renderOpts) (pipeline.Options, error) {
	p := c.baseOptions()
	p.FolderID, p.TermID = opts.filter.folder, opts.filter.term
	if err := opts.layout.apply(&p); err != nil {
		return p, err
	}

	formats, err := parseFormats(opts.formats)
	if err != nil {
		return p, err
	}
	p.Formats = formats

	kind, err := pipeline.ParseKind(opts.kind)
	if err != nil {
		return p, err
	}
	p.Kind = kind

	if opts.zoom > 0 {
		p.Zoom = opts.zoom
	}
	if opts.wheel != "" {
		w, err := view.ParseWheelPolicy(opts.wheel)
		if err != nil {
			return p, err
		}
		p.Wheel = w
	}
	if opts.noLegend {
		p.NoLegend = true
	}
	p.Title = opts.title
	p.Scale = opts.scale
	p.Network.Detailed = opts.detailed
	p.Network.MinFrequency = opts.minFreq

	return p, p.ValidateAndSetDefaults()
}

func (c *CLI) runRender(ctx context.Context, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	popts, err := c.renderPipelineOptions(opts)
	if err != nil {
		return err
	}

	runner, closeFn, err := c.openRunner(ctx, opts.source)
	if err != nil {
		return err
	}
	defer closeFn()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", popts.Kind))
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if result.Layout.IsEmpty() {
		printWarning("%s", constellation.EmptyMessage)
	}
	printSuccess("Rendered %s", popts.Kind)
	printStats(len(result.Matrix.Bubbles), len(result.Matrix.Terms), len(result.Matrix.Thinkers), result.CacheInfo.MatrixHit)
	if result.Stats.Exhausted > 0 {
		printWarning("%d bubbles could not be placed without overlap", result.Stats.Exhausted)
	}
	logger.Debug("render timings",
		"fetch", result.Stats.FetchTime,
		"layout", result.Stats.LayoutTime,
		"render", result.Stats.RenderTime,
		"render_cached", result.CacheInfo.RenderHit)

	paths := outputPaths(opts.output, popts.Formats)
	for _, f := range sortedFormats(paths) {
		if err := os.WriteFile(paths[f], result.Artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
		printFile(paths[f])
	}
	return nil
}

func sortedFormats(paths map[render.Format]string) []render.Format {
	formats := make([]render.Format, 0, len(paths))
	for f := range paths {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}
