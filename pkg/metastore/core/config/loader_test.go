package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
metastore:
  system:
    timezone: Asia/Tokyo
    logging:
      level: debug
  repository:
    backend: sql
    database_ref: primary
    databases:
      primary:
        type: postgres
        host: db.internal
        port: 5432
        database: metastore
        user: metastore
        password: secret
        sslmode: disable
        pool:
          max_open_conns: 20
          max_idle_conns: 5
          conn_max_lifetime_minutes: 10
  submission:
    retention_days: 7
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Metastore.System.Timezone)
	assert.Equal(t, "info", cfg.Metastore.System.Logging.Level)
	assert.Equal(t, "inmemory", cfg.Metastore.Repository.Backend)
	assert.Equal(t, "metadata", cfg.Metastore.Repository.DatabaseRef)
	assert.True(t, cfg.Metastore.Repository.MigrateOnStartup)
	assert.Equal(t, 30, cfg.Metastore.Submission.RetentionDays)
}

func TestLoadConfigMergesEmbeddedYAML(t *testing.T) {
	cfg, err := loadConfig("", EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", cfg.Metastore.System.Timezone)
	assert.Equal(t, "debug", cfg.Metastore.System.Logging.Level)
	assert.Equal(t, "sql", cfg.Metastore.Repository.Backend)
	assert.Equal(t, "primary", cfg.Metastore.Repository.DatabaseRef)
	assert.Equal(t, 7, cfg.Metastore.Submission.RetentionDays)
	require.Contains(t, cfg.Metastore.Repository.Databases, "primary")
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	t.Setenv("METASTORE_SYSTEM_LOGGING_LEVEL", "warn")
	t.Setenv("METASTORE_REPOSITORY_BACKEND", "inmemory")
	t.Setenv("METASTORE_REPOSITORY_MIGRATE_ON_STARTUP", "false")
	t.Setenv("METASTORE_SUBMISSION_RETENTION_DAYS", "90")

	cfg, err := loadConfig("", EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Metastore.System.Logging.Level)
	assert.Equal(t, "inmemory", cfg.Metastore.Repository.Backend)
	assert.False(t, cfg.Metastore.Repository.MigrateOnStartup)
	assert.Equal(t, 90, cfg.Metastore.Submission.RetentionDays)
	// Untouched values keep their YAML settings.
	assert.Equal(t, "Asia/Tokyo", cfg.Metastore.System.Timezone)
}

func TestLoadConfigRejectsMalformedEnvValue(t *testing.T) {
	t.Setenv("METASTORE_SUBMISSION_RETENTION_DAYS", "soon")

	_, err := loadConfig("", nil)
	assert.Error(t, err)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := loadConfig("", EmbeddedConfig("metastore: ["))
	assert.Error(t, err)
}

func TestDatabaseConfigDecode(t *testing.T) {
	cfg, err := loadConfig("", EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	dbCfg, err := cfg.Metastore.Repository.DatabaseConfig("primary")
	require.NoError(t, err)
	assert.Equal(t, "postgres", dbCfg.Type)
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, 5432, dbCfg.Port)
	assert.Equal(t, "metastore", dbCfg.Database)
	assert.Equal(t, "metastore", dbCfg.User)
	assert.Equal(t, "secret", dbCfg.Password)
	assert.Equal(t, "disable", dbCfg.Sslmode)
	assert.Equal(t, 20, dbCfg.Pool.MaxOpenConns)
	assert.Equal(t, 5, dbCfg.Pool.MaxIdleConns)
	assert.Equal(t, 10, dbCfg.Pool.ConnMaxLifetimeMinutes)
}

func TestDatabaseConfigUnknownRef(t *testing.T) {
	cfg, err := loadConfig("", EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	_, err = cfg.Metastore.Repository.DatabaseConfig("replica")
	assert.Error(t, err)
}
