// Package config loads the server configuration: data directory, cache
// sizing, knowledge backend bounds, and tier limit overrides.
//
// Values come from an optional atelier.yaml and from ATELIER_* env
// vars; everything has a working default so a bare `atelier serve`
// runs without any file present.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/atelierhq/atelier/internal/cache"
	"github.com/atelierhq/atelier/internal/tier"
)

// Config is the resolved server configuration.
type Config struct {
	// DataDir holds the SQLite database. Created on first run.
	DataDir string

	Cache   CacheConfig
	Backend BackendConfig

	// TierOverrides adjusts or extends the built-in tier table. A value
	// of -1 for any dimension means unlimited.
	TierOverrides map[string]TierOverride
}

// CacheConfig bounds the two read caches.
type CacheConfig struct {
	EmbeddingMaxEntries int
	SearchTTL           time.Duration
}

// BackendConfig bounds calls to the knowledge backend.
type BackendConfig struct {
	Timeout       time.Duration
	MaxRetries    uint64
	RetryInterval time.Duration
}

// TierOverride carries per-tier limit overrides. Nil fields keep the
// built-in value; for new tiers every field must be set.
type TierOverride struct {
	MaxProjects                *int64 `mapstructure:"max_projects"`
	MaxCollaboratorsPerProject *int64 `mapstructure:"max_collaborators_per_project"`
	MaxActionsPerMonth         *int64 `mapstructure:"max_actions_per_month"`
	MaxStorageBytes            *int64 `mapstructure:"max_storage_bytes"`
}

// Load reads atelier.yaml from configDir (or the default locations when
// configDir is empty) and applies ATELIER_* env overrides. A missing
// config file is not an error.
func Load(configDir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("atelier")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "atelier"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ATELIER")
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("cache.embedding_max_entries", cache.DefaultMaxEntries)
	v.SetDefault("cache.search_ttl", cache.DefaultSearchTTL)
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.max_retries", 2)
	v.SetDefault("backend.retry_interval", 100*time.Millisecond)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read atelier.yaml: %w", err)
		}
	}

	cfg := Config{
		DataDir: v.GetString("data_dir"),
		Cache: CacheConfig{
			EmbeddingMaxEntries: v.GetInt("cache.embedding_max_entries"),
			SearchTTL:           v.GetDuration("cache.search_ttl"),
		},
		Backend: BackendConfig{
			Timeout:       v.GetDuration("backend.timeout"),
			MaxRetries:    v.GetUint64("backend.max_retries"),
			RetryInterval: v.GetDuration("backend.retry_interval"),
		},
	}
	if err := v.UnmarshalKey("tiers", &cfg.TierOverrides); err != nil {
		return Config{}, fmt.Errorf("config: parse tier overrides: %w", err)
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".atelier"
	}
	return filepath.Join(home, ".atelier")
}

// Catalog builds the tier catalog: the built-in table with this
// configuration's overrides applied on top. New tier ids in the
// overrides are added to the table.
func (c Config) Catalog() *tier.Catalog {
	table := tier.DefaultTable()
	for id, o := range c.TierOverrides {
		limits := table[id] // zero Limits for a new tier
		if o.MaxProjects != nil {
			limits.MaxProjects = tier.Limit(*o.MaxProjects)
		}
		if o.MaxCollaboratorsPerProject != nil {
			limits.MaxCollaboratorsPerProject = tier.Limit(*o.MaxCollaboratorsPerProject)
		}
		if o.MaxActionsPerMonth != nil {
			limits.MaxActionsPerMonth = tier.Limit(*o.MaxActionsPerMonth)
		}
		if o.MaxStorageBytes != nil {
			limits.MaxStorageBytes = tier.Limit(*o.MaxStorageBytes)
		}
		table[id] = limits
	}
	return tier.NewCatalog(table)
}
