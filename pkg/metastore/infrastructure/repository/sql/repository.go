// Package sql implements the metadata repository on a relational database
// through GORM. Schema forms and inputs are stored as rows owned by their
// connector or the framework; connection and job values are stored as child
// rows keyed by the schema input they instantiate. All mutating operations
// run inside a transaction, either their own or one supplied by the caller.
package sql

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/quayside/metastore/pkg/metastore/adapter/database"
	"github.com/quayside/metastore/pkg/metastore/core/repository"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
	"github.com/quayside/metastore/pkg/metastore/support/util/logger"
)

const moduleName = "repository.sql"

// SQLRepository implements repository.MetadataRepository and
// repository.UpgradeStore on a relational database.
type SQLRepository struct {
	conn database.DBConnection
	db   *gorm.DB
}

var (
	_ repository.MetadataRepository = (*SQLRepository)(nil)
	_ repository.UpgradeStore       = (*SQLRepository)(nil)
)

// NewSQLRepository creates a repository on the given database connection.
func NewSQLRepository(conn database.DBConnection) *SQLRepository {
	return &SQLRepository{conn: conn, db: conn.DB()}
}

// Close implements repository.MetadataRepository.
func (r *SQLRepository) Close() error {
	return r.conn.Close()
}

// Transaction implements repository.UpgradeStore. The returned handle is
// not started; its entire lifecycle belongs to the caller.
func (r *SQLRepository) Transaction() tx.Tx {
	return &gormTx{db: r.db}
}

// activeTx validates a caller-supplied transaction handle and returns the
// database handle to run statements on.
func (r *SQLRepository) activeTx(t tx.Tx) (*gorm.DB, error) {
	gt, ok := t.(*gormTx)
	if !ok {
		return nil, exception.NewStoreErrorf(moduleName,
			"transaction handle of type %T does not belong to this backend", t)
	}
	if !gt.Active() {
		return nil, exception.NewStoreErrorf(moduleName,
			"transaction is not active (state %s)", gt.State())
	}
	return gt.handle, nil
}

// ownTransaction runs fn inside a transaction fully managed here: begin,
// commit on success, roll back on failure, close on every path.
func (r *SQLRepository) ownTransaction(ctx context.Context, fn func(db *gorm.DB) error) error {
	t := &gormTx{db: r.db}
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			logger.Warnf("Failed to close transaction: %v", closeErr)
		}
	}()

	if err := t.Begin(ctx); err != nil {
		return err
	}
	if err := fn(t.handle); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			err = multierror.Append(err, rbErr)
		}
		return err
	}
	return t.Commit()
}

// wrapDBError classifies a database error raised by op. Unique-constraint
// violations become ErrDuplicateEntity.
func (r *SQLRepository) wrapDBError(op string, err error) error {
	if r.conn.IsDuplicateKeyError(err) {
		return exception.NewDuplicateEntity(moduleName, fmt.Sprintf("%s: duplicate key", op), err)
	}
	return exception.NewStoreErrorf(moduleName, "%s failed", op, err)
}
