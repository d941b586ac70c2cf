// Package config loads the handful of process-wide tunables that must be
// known before any collection loads. Everything else — schemas, indexes,
// hooks, migrations — is supplied programmatically at inkwell.Open, the
// same split the teacher draws between its viper-backed config.yaml
// bootstrap keys and its per-repo SQLite-stored settings.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// EngineConfig holds the engine-wide settings loadable from an optional
// inkwell.yaml in the directory passed to Load.
type EngineConfig struct {
	// FlushDebounce is how long the persistence engine waits after a
	// mutation before it groups dirty collections and writes them out
	// (spec.md §4.3 "a configurable delay, default a few tens of
	// milliseconds").
	FlushDebounce time.Duration

	// DefaultIDGenerator names the id generator a collection gets when it
	// declares none explicitly.
	DefaultIDGenerator string

	// StrictMigrations is read from inkwell.yaml but not consulted by the
	// persistence engine: loading a versioned collection whose migration
	// registry is missing or invalid fails at load time whatever its value.
	StrictMigrations bool
}

// Default returns the engine's defaults when no inkwell.yaml is present.
func Default() EngineConfig {
	return EngineConfig{
		FlushDebounce:      25 * time.Millisecond,
		DefaultIDGenerator: "hash",
		StrictMigrations:   false,
	}
}

// Load reads inkwell.yaml from dir (searched the same way viper.AddConfigPath
// does: only that one directory, no upward walk — the engine is embedded in
// a host program, not a project-root-seeking CLI). A missing file is not an
// error: Load returns Default() with viper's own unmodified zero-reads.
func Load(dir string) (EngineConfig, error) {
	v := viper.New()
	v.SetConfigName("inkwell")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}

	cfg := Default()
	v.SetDefault("flush_debounce", cfg.FlushDebounce.String())
	v.SetDefault("default_id_generator", cfg.DefaultIDGenerator)
	v.SetDefault("strict_migrations", cfg.StrictMigrations)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return cfg, err
	}

	debounce, err := time.ParseDuration(v.GetString("flush_debounce"))
	if err != nil {
		return cfg, err
	}
	cfg.FlushDebounce = debounce
	cfg.DefaultIDGenerator = v.GetString("default_id_generator")
	cfg.StrictMigrations = v.GetBool("strict_migrations")
	return cfg, nil
}
