// Package database abstracts the database connection used by the SQL
// repository backend, so the repository code stays independent of the
// concrete driver.
package database

import (
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
)

// DBConnection represents an established database connection.
type DBConnection interface {
	// Name returns the logical name of the connection (e.g., "metadata").
	Name() string
	// Type returns the database type (e.g., "postgres", "mysql", "sqlite").
	Type() string
	// DB returns the GORM handle of the connection.
	DB() *gorm.DB
	// SQLDB returns the underlying *sql.DB connection.
	SQLDB() (*sql.DB, error)
	// Config returns the configuration this connection was opened with.
	Config() dbconfig.DatabaseConfig
	// IsDuplicateKeyError reports whether err indicates a unique-constraint
	// violation for the underlying driver.
	IsDuplicateKeyError(err error) bool
	// Close closes the connection.
	Close() error
}
