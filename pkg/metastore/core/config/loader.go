package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
	"github.com/quayside/metastore/pkg/metastore/support/util/logger"
)

const moduleName = "config"

// loadConfig loads configuration from defaults, the embedded YAML file and
// environment variables, in that order of precedence (later wins).
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	if len(embeddedConfig) > 0 {
		var yamlConfig Config
		if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
			return nil, exception.NewStoreError(moduleName, "failed to unmarshal embedded config", err)
		}
		mergeConfig(cfg, &yamlConfig)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewStoreError(moduleName, "failed to load config from environment variables", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration from configuration files and environment
// variables. It is expected to be called once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// mergeConfig performs a deep merge from source into dest. Values in source
// overwrite corresponding values in dest when they are not zero values.
func mergeConfig(dest, source *Config) {
	mergeSystemConfig(&dest.Metastore.System, &source.Metastore.System)
	mergeRepositoryConfig(&dest.Metastore.Repository, &source.Metastore.Repository)
	if source.Metastore.Submission.RetentionDays != 0 {
		dest.Metastore.Submission.RetentionDays = source.Metastore.Submission.RetentionDays
	}
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
}

func mergeRepositoryConfig(dest, source *RepositoryConfig) {
	if source.Backend != "" {
		dest.Backend = source.Backend
	}
	if source.DatabaseRef != "" {
		dest.DatabaseRef = source.DatabaseRef
	}
	if source.Databases != nil {
		if dest.Databases == nil {
			dest.Databases = make(map[string]interface{})
		}
		for key, value := range source.Databases {
			dest.Databases[key] = value
		}
	}
	if source.MigrateOnStartup {
		dest.MigrateOnStartup = true
	}
}

// loadStructFromEnv recursively loads configuration values into a struct
// from environment variables, using the "yaml" tag to derive the variable
// name (e.g. METASTORE_SYSTEM_LOGGING_LEVEL).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlTag = strings.SplitN(yamlTag, ",", 2)[0]
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}
		if field.Kind() == reflect.Map {
			// Database entries come from YAML only.
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
