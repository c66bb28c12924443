package config

import (
	"os"
	"strings"
	"time"

	"snakr/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// DefaultFile is looked up in the working directory when no -config flag
// is given.
const DefaultFile = "snakr.toml"

type Config struct {
	Roots         []string      `toml:"roots"`
	Workers       int           `toml:"workers"`
	Exclude       Exclude       `toml:"exclude"`
	Resolve       Resolve       `toml:"resolve"`
	Cache         Cache         `toml:"cache"`
	Output        Output        `toml:"output"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
	// Modules are dot-separated globs over qualified names. Imports of a
	// matching module, or of anything beneath it, are dropped.
	Modules   []string `toml:"modules"`
	Gitignore *bool    `toml:"gitignore"`
}

type Resolve struct {
	// ExternalDepth trims external targets to N segments. 0 keeps the
	// full dotted name.
	ExternalDepth  int   `toml:"external_depth"`
	ClassifyStdlib *bool `toml:"classify_stdlib"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	// Entries bounds the in-memory layer in front of the database.
	Entries int `toml:"entries"`
}

type Output struct {
	DOT     string `toml:"dot"`
	TSV     string `toml:"tsv"`
	JSON    string `toml:"json"`
	Mermaid string `toml:"mermaid"`
	// Diagnostics receives parse errors and unresolved imports as TSV.
	Diagnostics string `toml:"diagnostics"`
	Tree        *bool  `toml:"tree"`
	TopHotspots int    `toml:"top_hotspots"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

func (e Exclude) UseGitignore() bool { return enabled(e.Gitignore) }

func (r Resolve) ShouldClassifyStdlib() bool { return enabled(r.ClassifyStdlib) }

func (o Output) ShowTree() bool { return enabled(o.Tree) }

func enabled(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

// DefaultConfig is what a crawl of the current directory uses when no file
// is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, defaults and validates a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.AddContext(errors.Wrap(joinErrors(errs), errors.CodeValidationError, "invalid config"), errors.CtxPath, path)
	}
	return &cfg, nil
}

// FromEnv is the configuration used when no file is present: defaults plus
// SNAKR_* overrides, validated the same way as a loaded file.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Wrap(joinErrors(errs), errors.CodeValidationError, "invalid config from environment")
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Roots) == 0 {
		cfg.Roots = []string{"."}
	}
	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{"__pycache__", ".*", "venv", ".venv", "node_modules", "build", "dist"}
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = ".snakr/cache.db"
	}
	if cfg.Cache.Entries <= 0 {
		cfg.Cache.Entries = 4096
	}
	if cfg.Output.TopHotspots == 0 {
		cfg.Output.TopHotspots = 10
	}
	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
