package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/buildinfo"
)

// RootCommand builds the command tree. The caller adds --verbose and wraps
// PersistentPreRunE to set the log level.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Constellation maps critical terms against the thinkers who use them",
		Long: `Constellation builds a co-occurrence matrix of critical terms and thinkers
from a notes corpus and draws it as a packed bubble chart: one bubble per
(term, thinker) pair, sized by how often they appear together.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/constellation/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the matrix, layout and artifact cache")

	root.AddCommand(c.matrixCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// addSourceFlags registers the flags that override the configured source.
func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	cmd.Flags().StringVar(&f.corpus, "corpus", "", "corpus file (JSON or YAML) to build the matrix from")
	cmd.Flags().StringVar(&f.matrix, "matrix", "", "precomputed matrix JSON file")
	cmd.Flags().StringVar(&f.api, "api", "", "base URL of a constellation server")
	cmd.MarkFlagsMutuallyExclusive("corpus", "matrix", "api")
}

// filterFlags holds the folder and term scope of a query.
type filterFlags struct {
	folder string
	term   string
}

func addFilterFlags(cmd *cobra.Command, f *filterFlags) {
	cmd.Flags().StringVar(&f.folder, "folder", "", "restrict to notes in this folder ID")
	cmd.Flags().StringVar(&f.term, "term", "", "restrict to this critical term ID")
}
