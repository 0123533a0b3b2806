package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/pipeline"
)

// layoutFlags are the packing and coloring flags shared by layout, render
// and explore. Zero values keep the configured settings.
type layoutFlags struct {
	width     float64
	height    float64
	minRadius float64
	maxRadius float64
	colorBy   string
	refresh   bool
}

func addLayoutFlags(cmd *cobra.Command, f *layoutFlags) {
	cmd.Flags().Float64Var(&f.width, "width", 0, "canvas width (default from config, 800)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "canvas height (default from config, 600)")
	cmd.Flags().Float64Var(&f.minRadius, "min-radius", 0, "radius of the least frequent bubble")
	cmd.Flags().Float64Var(&f.maxRadius, "max-radius", 0, "radius of the most frequent bubble")
	cmd.Flags().StringVar(&f.colorBy, "color-by", "", "color bubbles by: thinker, term")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "refetch the matrix even when cached")
}

// apply merges the flags into opts.
func (f layoutFlags) apply(opts *pipeline.Options) error {
	if f.width > 0 {
		opts.Layout.Width = f.width
	}
	if f.height > 0 {
		opts.Layout.Height = f.height
	}
	if f.minRadius > 0 {
		opts.Layout.MinRadius = f.minRadius
	}
	if f.maxRadius > 0 {
		opts.Layout.MaxRadius = f.maxRadius
	}
	if f.colorBy != "" {
		mode, err := palette.ParseMode(f.colorBy)
		if err != nil {
			return err
		}
		opts.ColorMode = mode
	}
	opts.Refresh = f.refresh
	return nil
}

type layoutOpts struct {
	source sourceFlags
	filter filterFlags
	layout layoutFlags
	output string
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute the packed bubble layout",
		Long: `Compute the packed bubble layout of a co-occurrence matrix and write it
as JSON (the same document as 'render -f json' and the HTTP layout endpoint).

Matrices and layouts are cached locally for faster subsequent runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	addFilterFlags(cmd, &opts.filter)
	addLayoutFlags(cmd, &opts.layout)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, opts layoutOpts) error {
	logger := loggerFromContext(ctx)

	popts := c.baseOptions()
	popts.FolderID, popts.TermID = opts.filter.folder, opts.filter.term
	if err := opts.layout.apply(&popts); err != nil {
		return err
	}
	if err := popts.ValidateForLayout(); err != nil {
		return err
	}

	runner, closeFn, err := c.openRunner(ctx, opts.source)
	if err != nil {
		return err
	}
	defer closeFn()

	prog := newProgress(logger)
	m, _, fetchHit, err := runner.FetchWithCacheInfo(ctx, popts)
	if err != nil {
		return err
	}
	l, layoutHit, err := runner.LayoutWithCacheInfo(ctx, m, popts)
	if err != nil {
		return err
	}
	logger.Debug("layout ready", "matrix_cached", fetchHit, "layout_cached", layoutHit)

	if opts.output == "" {
		data, err := constellation.MarshalLayout(l)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}

	if err := constellation.WriteLayoutFile(l, opts.output); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Placed %d bubbles", len(l.Bubbles)))
	if l.IsEmpty() {
		printWarning("%s", constellation.EmptyMessage)
	}
	if l.Exhausted > 0 {
		printWarning("%d bubbles could not be placed without overlap", l.Exhausted)
	}
	printFile(opts.output)
	return nil
}
