// Package config provides utilities for loading and managing application
// configuration from YAML files and environment variables.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
)

// EmbeddedConfig holds the raw bytes of an embedded configuration file.
type EmbeddedConfig []byte

// Config is the root of the application configuration.
type Config struct {
	Metastore MetastoreConfig `yaml:"metastore"`
}

// MetastoreConfig groups all metastore settings.
type MetastoreConfig struct {
	System     SystemConfig     `yaml:"system"`
	Repository RepositoryConfig `yaml:"repository"`
	Submission SubmissionConfig `yaml:"submission"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RepositoryConfig selects and configures the metadata repository backend.
type RepositoryConfig struct {
	// Backend selects the repository implementation: "sql" or "inmemory".
	Backend string `yaml:"backend"`
	// DatabaseRef names the entry in Databases used by the SQL backend.
	DatabaseRef string `yaml:"database_ref"`
	// Databases maps connection names to database settings. Entries are
	// decoded lazily so unused connections do not need to be valid.
	Databases map[string]interface{} `yaml:"databases"`
	// MigrateOnStartup runs pending schema migrations when the SQL backend
	// is opened.
	MigrateOnStartup bool `yaml:"migrate_on_startup"`
}

// SubmissionConfig holds submission bookkeeping settings.
type SubmissionConfig struct {
	// RetentionDays is how long finished submissions are kept before
	// PurgeSubmissions removes them.
	RetentionDays int `yaml:"retention_days"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Metastore: MetastoreConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "info"},
			},
			Repository: RepositoryConfig{
				Backend:          "inmemory",
				DatabaseRef:      "metadata",
				MigrateOnStartup: true,
			},
			Submission: SubmissionConfig{
				RetentionDays: 30,
			},
		},
	}
}

// DatabaseConfig decodes the named database entry into a typed
// dbconfig.DatabaseConfig.
func (c *RepositoryConfig) DatabaseConfig(name string) (dbconfig.DatabaseConfig, error) {
	var dbCfg dbconfig.DatabaseConfig
	raw, ok := c.Databases[name]
	if !ok {
		return dbCfg, fmt.Errorf("database configuration '%s' not found in repository.databases", name)
	}
	if err := mapstructure.Decode(raw, &dbCfg); err != nil {
		return dbCfg, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return dbCfg, nil
}
