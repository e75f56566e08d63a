package gorm

import (
	"go.uber.org/fx"

	"github.com/quayside/metastore/pkg/metastore/adapter/database"
	config "github.com/quayside/metastore/pkg/metastore/core/config"
)

// NewConnection opens the database connection referenced by the repository
// configuration. The dialector for the configured database type must have
// been registered by importing the matching driver package.
func NewConnection(cfg *config.Config) (database.DBConnection, error) {
	repoCfg := cfg.Metastore.Repository
	dbCfg, err := repoCfg.DatabaseConfig(repoCfg.DatabaseRef)
	if err != nil {
		return nil, err
	}
	return Open(repoCfg.DatabaseRef, dbCfg)
}

// Module provides the configured database connection for dependency
// injection.
var Module = fx.Options(
	fx.Provide(NewConnection),
)
