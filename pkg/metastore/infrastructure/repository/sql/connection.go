package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// CreateConnection implements repository.ConnectionRepository.
func (r *SQLRepository) CreateConnection(ctx context.Context, connection *model.Connection) error {
	const op = "CreateConnection"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		if connection.HasPersistenceID() {
			var count int64
			if err := db.Model(&connectionRow{}).
				Where("id = ?", connection.PersistenceID()).
				Count(&count).Error; err != nil {
				return r.wrapDBError(op, err)
			}
			if count > 0 {
				return exception.NewDuplicateEntity(moduleName,
					fmt.Sprintf("connection %d already exists", connection.PersistenceID()), nil)
			}
		}

		var connectorCount int64
		if err := db.Model(&connectorRow{}).
			Where("id = ?", connection.ConnectorID()).
			Count(&connectorCount).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if connectorCount == 0 {
			return exception.NewStoreErrorf(moduleName,
				"connection references nonexistent connector %d", connection.ConnectorID())
		}

		row := &connectionRow{ConnectorID: connection.ConnectorID()}
		if connection.HasPersistenceID() {
			row.ID = connection.PersistenceID()
		}
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		connection.SetPersistenceID(row.ID)

		return r.insertConnectionValues(db, row.ID, connection)
	})
}

// UpdateConnection implements repository.ConnectionRepository, managing its
// own transaction end to end.
func (r *SQLRepository) UpdateConnection(ctx context.Context, connection *model.Connection) error {
	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		return r.updateConnection(db, connection)
	})
}

// UpdateConnectionInTx implements repository.ConnectionRepository,
// participating in the caller's transaction.
func (r *SQLRepository) UpdateConnectionInTx(ctx context.Context, t tx.Tx, connection *model.Connection) error {
	db, err := r.activeTx(t)
	if err != nil {
		return err
	}
	return r.updateConnection(db, connection)
}

// updateConnection replaces the stored values of a connection. The value
// rows are rewritten wholesale; the connection row itself is immutable apart
// from its values.
func (r *SQLRepository) updateConnection(db *gorm.DB, connection *model.Connection) error {
	const op = "UpdateConnection"

	var count int64
	if err := db.Model(&connectionRow{}).
		Where("id = ?", connection.PersistenceID()).
		Count(&count).Error; err != nil {
		return r.wrapDBError(op, err)
	}
	if count == 0 {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("connection %d does not exist", connection.PersistenceID()), nil)
	}

	if err := db.Where("connection_id = ?", connection.PersistenceID()).
		Delete(&connectionInputRow{}).Error; err != nil {
		return r.wrapDBError(op, err)
	}
	return r.insertConnectionValues(db, connection.PersistenceID(), connection)
}

// insertConnectionValues stores one value row per filled input of both
// partitions of the connection.
func (r *SQLRepository) insertConnectionValues(db *gorm.DB, connectionID int64, connection *model.Connection) error {
	values, err := collectFormValues(connection.ConnectorPart().Forms(), connection.FrameworkPart().Forms())
	if err != nil {
		return err
	}
	for _, v := range values {
		row := &connectionInputRow{ConnectionID: connectionID, InputID: v.inputID, Value: v.value}
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError("insertConnectionValues", err)
		}
	}
	return nil
}

// DeleteConnection implements repository.ConnectionRepository.
func (r *SQLRepository) DeleteConnection(ctx context.Context, id int64) error {
	const op = "DeleteConnection"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&connectionRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if count == 0 {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("connection %d does not exist", id), nil)
		}

		var jobCount int64
		if err := db.Model(&jobRow{}).Where("connection_id = ?", id).Count(&jobCount).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if jobCount > 0 {
			return exception.NewStoreErrorf(moduleName,
				"connection %d is referenced by %d job(s)", id, jobCount)
		}

		if err := db.Where("connection_id = ?", id).Delete(&connectionInputRow{}).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if err := db.Delete(&connectionRow{}, id).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		return nil
	})
}

// FindConnection implements repository.ConnectionRepository.
func (r *SQLRepository) FindConnection(ctx context.Context, id int64) (*model.Connection, error) {
	const op = "FindConnection"

	db := r.db.WithContext(ctx)
	var row connectionRow
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrapDBError(op, err)
	}
	return r.hydrateConnection(db, row)
}

// FindConnections implements repository.ConnectionRepository.
func (r *SQLRepository) FindConnections(ctx context.Context) ([]*model.Connection, error) {
	return r.findConnections(ctx, r.db.WithContext(ctx))
}

// FindConnectionsForConnector implements repository.ConnectionRepository.
func (r *SQLRepository) FindConnectionsForConnector(ctx context.Context, connectorID int64) ([]*model.Connection, error) {
	db := r.db.WithContext(ctx).Where("connector_id = ?", connectorID)
	return r.findConnections(ctx, db)
}

func (r *SQLRepository) findConnections(ctx context.Context, query *gorm.DB) ([]*model.Connection, error) {
	const op = "FindConnections"

	var rows []connectionRow
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, r.wrapDBError(op, err)
	}

	db := r.db.WithContext(ctx)
	result := make([]*model.Connection, 0, len(rows))
	for _, row := range rows {
		connection, err := r.hydrateConnection(db, row)
		if err != nil {
			return nil, err
		}
		result = append(result, connection)
	}
	return result, nil
}

// hydrateConnection rebuilds a connection instance: its form shapes come
// from the current connector and framework schemas, its values from the
// stored value rows.
func (r *SQLRepository) hydrateConnection(db *gorm.DB, row connectionRow) (*model.Connection, error) {
	connectorPart, _, err := loadSchemaForms(db, ownerTypeConnector, row.ConnectorID)
	if err != nil {
		return nil, err
	}

	fwRow, err := r.frameworkRow(db, "hydrateConnection")
	if err != nil {
		return nil, err
	}
	if fwRow == nil {
		return nil, exception.NewStoreErrorf(moduleName,
			"connection %d exists but no framework is registered", row.ID)
	}
	frameworkPart, _, err := loadSchemaForms(db, ownerTypeFramework, fwRow.ID)
	if err != nil {
		return nil, err
	}

	var valueRows []connectionInputRow
	if err := db.Where("connection_id = ?", row.ID).Find(&valueRows).Error; err != nil {
		return nil, r.wrapDBError("hydrateConnection", err)
	}
	values := make(map[int64]string, len(valueRows))
	for _, v := range valueRows {
		values[v.InputID] = v.Value
	}
	if err := applyFormValues(values, connectorPart.Forms(), frameworkPart.Forms()); err != nil {
		return nil, err
	}

	connection := model.NewConnection(row.ConnectorID, connectorPart, frameworkPart)
	connection.SetPersistenceID(row.ID)
	return connection, nil
}
