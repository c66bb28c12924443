package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SNAKR_[SECTION]_[KEY] (e.g., SNAKR_CACHE_ENABLED).
func ApplyEnvOverrides(cfg *Config) {
	setEnvInt(&cfg.Workers, "SNAKR_WORKERS")

	// Exclude
	setEnvList(&cfg.Exclude.Modules, "SNAKR_EXCLUDE_MODULES")

	// Resolve
	setEnvInt(&cfg.Resolve.ExternalDepth, "SNAKR_RESOLVE_EXTERNAL_DEPTH")

	// Cache
	setEnvBool(&cfg.Cache.Enabled, "SNAKR_CACHE_ENABLED")
	setEnvString(&cfg.Cache.Path, "SNAKR_CACHE_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "SNAKR_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SNAKR_OBSERVABILITY_OTLP_ENDPOINT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "SNAKR_WATCH_DEBOUNCE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma-separated value, dropping empty items.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
