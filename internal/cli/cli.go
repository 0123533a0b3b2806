package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/constellation/pkg/api"
	"github.com/matzehuels/constellation/pkg/buildinfo"
	"github.com/matzehuels/constellation/pkg/cache"
	"github.com/matzehuels/constellation/pkg/config"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/pipeline"
	"github.com/matzehuels/constellation/pkg/render"
	"github.com/matzehuels/constellation/pkg/store"
	"github.com/matzehuels/constellation/pkg/store/mongo"
)

// appName is the application name used for directories and display.
const appName = "constellation"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded by the root command before any subcommand runs.
	Config config.Config

	configPath string
	noCache    bool
}

// New creates a CLI with a default logger and the built-in configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads --config, or the default path when it exists.
func (c *CLI) loadConfig() error {
	path, optional := c.configPath, false
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil
		}
		path, optional = p, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", path, "storage", cfg.Storage.Backend, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// sourceFlags override the configured storage backend for one command.
type sourceFlags struct {
	corpus string // corpus file (memory backend)
	matrix string // precomputed matrix file
	api    string // remote server base URL
}

// newSource opens the matrix source. The returned close function releases
// the backing store.
func (c *CLI) newSource(ctx context.Context, f sourceFlags) (pipeline.Source, func(), error) {
	noop := func() {}
	switch {
	case f.matrix != "":
		return &pipeline.FileSource{Path: f.matrix}, noop, nil
	case f.api != "":
		return api.NewClient(f.api), noop, nil
	case f.corpus != "":
		s, err := memoryStore(f.corpus)
		if err != nil {
			return nil, nil, err
		}
		return pipeline.NewStoreSource(s, "file:"+f.corpus), noop, nil
	}

	st := c.Config.Storage
	switch st.Backend {
	case config.StorageAPI:
		return api.NewClient(st.APIURL), noop, nil
	case config.StorageMongo:
		s, err := c.openMongo(ctx)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = s.Close(context.WithoutCancel(ctx)) }
		return pipeline.NewStoreSource(s, "mongo:"+st.MongoDatabase), closeFn, nil
	default:
		if st.CorpusFile == "" {
			return nil, nil, errors.New(errors.ErrCodeInvalidConfig,
				"no matrix source: pass --corpus, --matrix or --api, or set storage.corpus_file")
		}
		s, err := memoryStore(st.CorpusFile)
		if err != nil {
			return nil, nil, err
		}
		return pipeline.NewStoreSource(s, "file:"+st.CorpusFile), noop, nil
	}
}

func (c *CLI) openMongo(ctx context.Context) (*mongo.Store, error) {
	st := c.Config.Storage
	c.Logger.Debug("connecting to mongo", "database", st.MongoDatabase)
	return mongo.Connect(ctx, mongo.Config{
		URI:      st.MongoURI,
		Database: st.MongoDatabase,
		Timeout:  st.MongoTimeout.Duration,
	})
}

func memoryStore(path string) (*store.Memory, error) {
	corpus, err := store.LoadCorpusFile(path)
	if err != nil {
		return nil, err
	}
	if err := store.ValidateCorpus(corpus); err != nil {
		return nil, err
	}
	return store.NewMemoryFrom(store.AssignIDs(corpus)), nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, src pipeline.Source) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx)
	if err != nil {
		return nil, err
	}
	// Cached layouts depend on the packer, so entries never outlive a release.
	keyer := cache.NewScopedKeyer(nil, buildinfo.Version+":")
	r := pipeline.NewRunner(src, ch, keyer, c.Logger)
	if ttl := c.Config.Cache.MatrixTTL.Duration; ttl > 0 {
		r.MatrixTTL = ttl
	}
	if ttl := c.Config.Cache.LayoutTTL.Duration; ttl > 0 {
		r.LayoutTTL = ttl
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, c.Config.Cache.Redis)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to redis cache")
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// baseOptions returns pipeline options seeded from the config file.
func (c *CLI) baseOptions() pipeline.Options {
	return pipeline.Options{
		Layout:    c.Config.Layout,
		ColorMode: c.Config.ColorMode(),
		Palette:   c.Config.Palette.Colors,
		Zoom:      c.Config.View.Zoom,
		Wheel:     c.Config.WheelPolicy(),
		NoLegend:  !c.Config.ShowLegend(),
		Logger:    c.Logger,
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/constellation/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format list. Empty means svg.
func parseFormats(s string) ([]render.Format, error) {
	if strings.TrimSpace(s) == "" {
		return []render.Format{render.FormatSVG}, nil
	}
	var formats []render.Format
	for _, part := range strings.Split(s, ",") {
		f, err := render.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// outputPaths maps each format to a file. A single format writes to output
// as given; several formats share output's base name.
func outputPaths(output string, formats []render.Format) map[render.Format]string {
	if output == "" {
		output = appName
	}
	paths := make(map[render.Format]string, len(formats))
	if len(formats) == 1 && filepath.Ext(output) != "" {
		paths[formats[0]] = output
		return paths
	}
	base := output
	if _, err := render.ParseFormat(filepath.Ext(output)); err == nil {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	for _, f := range formats {
		paths[f] = fmt.Sprintf("%s.%s", base, f)
	}
	return paths
}
