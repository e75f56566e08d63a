// Package mysql registers the MySQL dialector with the GORM adapter.
package mysql

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
	gormadapter "github.com/quayside/metastore/pkg/metastore/adapter/database/gorm"
)

// init registers the MySQL dialector factory with the GORM adapter.
// It is called automatically when the package is imported.
func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for MySQL connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	// user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Module makes the side-effect import explicit in Fx-based wiring.
var Module = fx.Options()
