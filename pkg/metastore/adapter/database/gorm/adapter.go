package gorm

import (
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
	"github.com/quayside/metastore/pkg/metastore/support/util/logger"
)

// GormDBAdapter is the GORM implementation of database.DBConnection.
type GormDBAdapter struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

// NewGormDBAdapter creates a new GormDBAdapter.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name}
}

// Name returns the logical name of the connection.
func (a *GormDBAdapter) Name() string { return a.name }

// Type returns the database type of the connection.
func (a *GormDBAdapter) Type() string { return a.cfg.Type }

// DB returns the GORM handle of the connection.
func (a *GormDBAdapter) DB() *gorm.DB { return a.db }

// SQLDB returns the underlying *sql.DB connection.
func (a *GormDBAdapter) SQLDB() (*sql.DB, error) {
	sqlDB, err := a.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB for connection '%s': %w", a.name, err)
	}
	return sqlDB, nil
}

// Config returns the configuration this connection was opened with.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig { return a.cfg }

// IsDuplicateKeyError reports whether err indicates a unique-constraint
// violation. Relies on GORM's error translation being enabled on the
// connection.
func (a *GormDBAdapter) IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Close closes the underlying database connection.
func (a *GormDBAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB for close: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close DB connection '%s': %w", a.name, err)
	}
	logger.Debugf("Closed DB connection: %s", a.name)
	return nil
}
