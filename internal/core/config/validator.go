package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Validate returns every problem found rather than stopping at the first.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", cfg.Workers))
	}
	if cfg.Resolve.ExternalDepth < 0 {
		errs = append(errs, fmt.Errorf("resolve.external_depth must be >= 0, got %d", cfg.Resolve.ExternalDepth))
	}
	if cfg.Output.TopHotspots < 0 {
		errs = append(errs, fmt.Errorf("output.top_hotspots must be >= 0, got %d", cfg.Output.TopHotspots))
	}
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}

	errs = append(errs, validatePatterns("exclude.dirs", cfg.Exclude.Dirs, '/')...)
	errs = append(errs, validatePatterns("exclude.files", cfg.Exclude.Files, '/')...)
	errs = append(errs, validatePatterns("exclude.modules", cfg.Exclude.Modules, '.')...)

	if err := validateOutput(cfg); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		errs = append(errs, fmt.Errorf("cache.path is required when cache.enabled is true"))
	}

	errs = append(errs, validatePaths(cfg)...)
	return errs
}

func validatePatterns(field string, patterns []string, separator rune) []error {
	var errs []error
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%s[%d] must not be empty", field, i))
			continue
		}
		if _, err := glob.Compile(p, separator); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d] %q is not a valid pattern: %v", field, i, p, err))
		}
	}
	return errs
}

func validateOutput(cfg *Config) error {
	targets := []struct {
		field string
		path  string
	}{
		{"output.dot", cfg.Output.DOT},
		{"output.tsv", cfg.Output.TSV},
		{"output.json", cfg.Output.JSON},
		{"output.mermaid", cfg.Output.Mermaid},
		{"output.diagnostics", cfg.Output.Diagnostics},
	}
	seen := make(map[string]string, len(targets))
	for _, t := range targets {
		if t.path == "" || t.path == "-" {
			continue
		}
		clean := filepath.Clean(t.path)
		if other, ok := seen[clean]; ok {
			return fmt.Errorf("output conflict: %s and %s share the same path %q", other, t.field, t.path)
		}
		seen[clean] = t.field
	}
	return nil
}

func validatePaths(cfg *Config) []error {
	var errs []error
	for i, root := range cfg.Roots {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, fmt.Errorf("roots[%d] must not be empty", i))
			continue
		}
		stat, err := os.Stat(root)
		if os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("roots[%d] %q does not exist", i, root))
		} else if err == nil && !stat.IsDir() {
			errs = append(errs, fmt.Errorf("roots[%d] %q is not a directory", i, root))
		}
	}
	return errs
}

func joinErrors(errs []error) error {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
