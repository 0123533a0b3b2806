package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/pipeline"
)

const defaultTopPairs = 10

type matrixOpts struct {
	source sourceFlags
	filter filterFlags
	output string
	top    int
	json   bool
}

// matrixCommand creates the matrix command.
func (c *CLI) matrixCommand() *cobra.Command {
	opts := matrixOpts{top: defaultTopPairs}

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Fetch the term/thinker co-occurrence matrix",
		Long: `Fetch the co-occurrence matrix for a folder and term and print a summary
with the most frequent pairs. Use -o to save the matrix as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMatrix(cmd.Context(), opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	addFilterFlags(cmd, &opts.filter)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the matrix JSON to this file")
	cmd.Flags().IntVar(&opts.top, "top", opts.top, "number of top pairs to list")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the matrix JSON instead of a summary")

	return cmd
}

func (c *CLI) runMatrix(ctx context.Context, opts matrixOpts) error {
	runner, closeFn, err := c.openRunner(ctx, opts.source)
	if err != nil {
		return err
	}
	defer closeFn()

	popts := c.baseOptions()
	popts.FolderID, popts.TermID = opts.filter.folder, opts.filter.term

	m, _, hit, err := runner.FetchWithCacheInfo(ctx, popts)
	if err != nil {
		return err
	}

	if opts.json {
		data, err := matrix.Marshal(m)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}

	printMatrixSummary(m, opts.top, hit)
	if opts.output != "" {
		if err := matrix.WriteFile(m, opts.output); err != nil {
			return err
		}
		printFile(opts.output)
		printNewline()
		printNextStep("Render it", fmt.Sprintf("%s render --matrix %s", appName, opts.output))
	}
	return nil
}

func printMatrixSummary(m *matrix.Matrix, top int, cached bool) {
	if m.IsEmpty() {
		printWarning("No co-occurrences found")
		return
	}
	s := m.Summarize(top)
	printSuccess("Matrix ready")
	printStats(s.TotalBubbles, s.Terms, s.Thinkers, cached)
	printKeyValue("Mentions", StyleNumber.Render(fmt.Sprint(s.TotalMentions)))
	printKeyValue("Max freq", StyleNumber.Render(fmt.Sprint(s.MaxFrequency)))
	if len(s.TopPairs) > 0 {
		printNewline()
		fmt.Fprintln(stdout, pairTable(s.TopPairs))
	}
}

// openRunner resolves the source for flags and wraps it in a runner.
func (c *CLI) openRunner(ctx context.Context, f sourceFlags) (*pipeline.Runner, func(), error) {
	src, closeSrc, err := c.newSource(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	runner, err := c.newRunner(ctx, src)
	if err != nil {
		closeSrc()
		return nil, nil, err
	}
	return runner, func() {
		_ = runner.Close()
		closeSrc()
	}, nil
}
