// Package postgres registers the PostgreSQL dialector with the GORM adapter.
package postgres

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
	gormadapter "github.com/quayside/metastore/pkg/metastore/adapter/database/gorm"
)

// init registers the PostgreSQL dialector factory with the GORM adapter.
// It is called automatically when the package is imported.
func init() {
	gormadapter.RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for PostgreSQL connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.Sslmode)
}

// Module makes the side-effect import explicit in Fx-based wiring.
var Module = fx.Options()
