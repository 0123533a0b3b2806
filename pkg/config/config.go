// Package config loads the constellation configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/constellation/config.toml
// (~/.config/constellation/config.toml when XDG_CONFIG_HOME is unset):
//
//	[layout]
//	width = 800
//	height = 600
//	padding = 0       # omitted keys take the defaults; 0 is kept
//	max_iterations = 500
//
//	[view]
//	color_by = "thinker"
//	wheel = "natural"
//
//	[palette]
//	colors = ["#3b82f6", "#ef4444"]
//
//	[server]
//	addr = ":8080"
//	cors_origins = ["http://localhost:5173"]
//
//	[storage]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[cache]
//	backend = "redis"
//	redis = { addr = "localhost:6379" }
//
// Missing fields take the defaults of [Default]. Command-line flags override
// the file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/constellation/pkg/cache"
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/view"
)

const appName = "constellation"

// Storage backends.
const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
	// StorageAPI fetches matrices from a remote constellation server.
	StorageAPI = "api"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the whole configuration file.
type Config struct {
	Layout  constellation.Options `toml:"layout"`
	View    View                  `toml:"view"`
	Palette Palette               `toml:"palette"`
	Server  Server                `toml:"server"`
	Storage Storage               `toml:"storage"`
	Cache   Cache                 `toml:"cache"`
}

// View holds interaction defaults.
type View struct {
	ColorBy string  `toml:"color_by" validate:"omitempty,oneof=thinker term"`
	Wheel   string  `toml:"wheel" validate:"omitempty,oneof=natural inverted"`
	Zoom    float64 `toml:"zoom" validate:"omitempty,gte=0.5,lte=3"`
	Legend  *bool   `toml:"legend"`
}

// Palette overrides the bubble colors.
type Palette struct {
	Colors []string `toml:"colors" validate:"dive,hexcolor"`
}

// Server configures the HTTP API.
type Server struct {
	Addr         string   `toml:"addr" validate:"required"`
	CORSOrigins  []string `toml:"cors_origins"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Storage selects where matrices come from.
type Storage struct {
	Backend       string   `toml:"backend" validate:"oneof=memory mongo api"`
	CorpusFile    string   `toml:"corpus_file"`
	MongoURI      string   `toml:"mongo_uri" validate:"omitempty,uri"`
	MongoDatabase string   `toml:"mongo_database"`
	MongoTimeout  Duration `toml:"mongo_timeout"`
	APIURL        string   `toml:"api_url" validate:"omitempty,http_url"`
}

// Cache selects the layout and artifact cache.
type Cache struct {
	Backend   string            `toml:"backend" validate:"oneof=none file redis"`
	Dir       string            `toml:"dir"`
	Redis     cache.RedisConfig `toml:"redis"`
	MatrixTTL Duration          `toml:"matrix_ttl"`
	LayoutTTL Duration          `toml:"layout_ttl"`
}

// Duration is a time.Duration written as a string ("5m", "1h30m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	legend := true
	return Config{
		Layout: constellation.Options{}.WithDefaults(),
		View: View{
			ColorBy: string(palette.DefaultMode),
			Wheel:   view.DefaultWheelPolicy.String(),
			Zoom:    view.DefaultZoom,
			Legend:  &legend,
		},
		Palette: Palette{Colors: append([]string(nil), palette.Default...)},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
		},
		Storage: Storage{Backend: StorageMemory, MongoDatabase: "constellation"},
		Cache: Cache{
			Backend:   CacheFile,
			MatrixTTL: Duration{cache.TTLMatrix},
			LayoutTTL: Duration{cache.TTLLayout},
		},
	}
}

// DefaultPath returns the XDG location of the config file.
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads path on top of Default and validates the result. A missing
// file yields the defaults when optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s not found", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.Layout = cfg.Layout.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text on top of Default.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	cfg.Layout = cfg.Layout.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(cfg Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that the selected backends have
// what they need.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, formatValidationError(err), "invalid config")
	}
	switch {
	case c.Storage.Backend == StorageMongo && c.Storage.MongoURI == "":
		return errors.New(errors.ErrCodeInvalidConfig, "invalid config: storage.mongo_uri is required for the mongo backend")
	case c.Storage.Backend == StorageAPI && c.Storage.APIURL == "":
		return errors.New(errors.ErrCodeInvalidConfig, "invalid config: storage.api_url is required for the api backend")
	case c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "":
		return errors.New(errors.ErrCodeInvalidConfig, "invalid config: cache.redis.addr is required for the redis backend")
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
		switch e.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "hexcolor":
			msgs = append(msgs, fmt.Sprintf("%s must be a hex color", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, e.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// ColorMode returns the configured color mode.
func (c Config) ColorMode() palette.Mode {
	m, err := palette.ParseMode(c.View.ColorBy)
	if err != nil {
		return palette.DefaultMode
	}
	return m
}

// WheelPolicy returns the configured wheel policy.
func (c Config) WheelPolicy() view.WheelPolicy {
	p, err := view.ParseWheelPolicy(c.View.Wheel)
	if err != nil {
		return view.DefaultWheelPolicy
	}
	return p
}

// ShowLegend reports whether the legend is drawn.
func (c Config) ShowLegend() bool {
	return c.View.Legend == nil || *c.View.Legend
}
