package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/config"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/store"
)

type importOpts struct {
	mongoURI string
	database string
	output   string
	dryRun   bool
}

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import <corpus-file>",
		Short: "Load a corpus file into MongoDB",
		Long: `Validate a corpus file (notes, thinkers and critical terms as JSON or YAML)
and write it into MongoDB. Records without an ID are given one.

With --output the normalized corpus is written to a file instead; with
--dry-run nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB URI (default from config)")
	cmd.Flags().StringVar(&opts.database, "database", "", "MongoDB database (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the normalized corpus to this file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate only")
	cmd.MarkFlagsMutuallyExclusive("output", "dry-run")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, path string, opts importOpts) error {
	logger := loggerFromContext(ctx)

	corpus, err := store.LoadCorpusFile(path)
	if err != nil {
		return err
	}
	if err := store.ValidateCorpus(corpus); err != nil {
		return err
	}
	corpus = store.AssignIDs(corpus)
	printSuccess("Corpus is valid")
	printCorpusCounts(corpus)

	switch {
	case opts.dryRun:
		return nil
	case opts.output != "":
		return writeCorpusFile(corpus, opts.output)
	}

	if opts.mongoURI != "" {
		c.Config.Storage.MongoURI = opts.mongoURI
	}
	if opts.database != "" {
		c.Config.Storage.MongoDatabase = opts.database
	}
	if c.Config.Storage.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "no MongoDB URI: pass --mongo-uri or set storage.mongo_uri")
	}

	s, err := c.openMongo(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	prog := newProgress(logger)
	if err := s.EnsureIndexes(ctx); err != nil {
		return err
	}
	stats, err := store.Import(ctx, s, corpus)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Imported %d notes", stats.Notes))
	printSuccess("Imported into %s", StyleHighlight.Render(c.Config.Storage.MongoDatabase))

	if c.Config.Storage.Backend != config.StorageMongo {
		printNewline()
		printNextStep("Serve it", fmt.Sprintf("set storage.backend = %q and run %s serve", config.StorageMongo, appName))
	}
	return nil
}

func printCorpusCounts(c matrix.Corpus) {
	printKeyValue("Notes", StyleNumber.Render(fmt.Sprint(len(c.Notes))))
	printKeyValue("Thinkers", StyleNumber.Render(fmt.Sprint(len(c.Thinkers))))
	printKeyValue("Terms", StyleNumber.Render(fmt.Sprint(len(c.Terms))))
}

func writeCorpusFile(c matrix.Corpus, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "create %s", path)
	}
	defer f.Close()
	if err := store.WriteCorpus(f, c, store.FormatForPath(path)); err != nil {
		return err
	}
	printFile(path)
	return f.Close()
}
