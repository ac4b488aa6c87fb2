// Package config loads the project-level rulesync configuration. The sync
// engine only consumes the ordered sources list; everything else in the file
// belongs to other subsystems.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/viper"
)

// ConfigName is the project config file's base name. viper resolves the
// extension (rulesync.json, rulesync.yaml, ...).
const ConfigName = "rulesync"

// SourceEntry is one declared remote source.
type SourceEntry struct {
	// Source is a reference in the source parser's grammar, e.g.
	// "owner/repo@main:path" or a full GitHub URL.
	Source string `mapstructure:"source"`
	// Skills optionally restricts which skill names to fetch. Absent or
	// ["*"] means all.
	Skills []string `mapstructure:"skills"`
}

// WantsAll reports whether the entry requests every available skill.
func (e SourceEntry) WantsAll() bool {
	return len(e.Skills) == 0 || slices.Contains(e.Skills, "*")
}

// Wants reports whether the entry requests the named skill.
func (e SourceEntry) Wants(name string) bool {
	return e.WantsAll() || slices.Contains(e.Skills, name)
}

// Config is the subset of the project configuration the sync engine reads.
type Config struct {
	Sources []SourceEntry `mapstructure:"sources"`
}

// Load reads the project config from baseDir. A missing config file is not
// an error; it yields an empty config.
func Load(baseDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.AddConfigPath(baseDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read project config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	return &cfg, nil
}
