// Package sqlite registers the SQLite dialector with the GORM adapter.
package sqlite

import (
	"errors"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
	gormadapter "github.com/quayside/metastore/pkg/metastore/adapter/database/gorm"
)

// init registers the SQLite dialector factory with the GORM adapter.
// It is called automatically when the package is imported.
func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for SQLite connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	// The GORM SQLite dialector expects the file path directly.
	return c.Database
}

// Module makes the side-effect import explicit in Fx-based wiring.
var Module = fx.Options()
