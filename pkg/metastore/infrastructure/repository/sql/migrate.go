package sql

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/quayside/metastore/pkg/metastore/adapter/database"
	"github.com/quayside/metastore/pkg/metastore/support/util/logger"
)

// migrationsTable is the bookkeeping table used by golang-migrate.
const migrationsTable = "ms_schema_migrations"

// Migration files are grouped per dialect; the subdirectory matching the
// connection's database type is applied.
//
//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the metastore schema migrations for one connection.
type Migrator struct {
	conn database.DBConnection
}

// NewMigrator creates a migrator for the given connection.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn}
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	dbType := m.conn.Type()
	logger.Infof("Applying schema migrations (type: %s, table: %s)", dbType, migrationsTable)

	sqlDB, err := m.conn.SQLDB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	sourceDriver, err := iofs.New(sub, dbType)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for %s: %w", dbType, err)
	}

	dbDriver, err := databaseDriver(dbType, sqlDB)
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", sourceDriver, dbType, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer instance.Close()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed (type: %s): %w", dbType, err)
	}

	logger.Infof("Schema migrations applied.")
	return nil
}

// databaseDriver returns the golang-migrate driver for the database type.
func databaseDriver(dbType string, sqlDB *stdsql.DB) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}
