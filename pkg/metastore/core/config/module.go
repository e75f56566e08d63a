package config

import (
	"go.uber.org/fx"

	"github.com/quayside/metastore/pkg/metastore/support/util/logger"
)

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also applies the configured log level to the global logger.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Metastore.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Metastore.System.Logging.Level)

	return cfg, nil
}

// Module provides the configuration loader for dependency injection.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
)
