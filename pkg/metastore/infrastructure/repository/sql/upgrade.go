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

// ReplaceConnectorSchemaInTx implements repository.UpgradeStore. The
// connector row keeps its persistence id; every form and input attached to
// it is removed and the new schema stored in its place.
func (r *SQLRepository) ReplaceConnectorSchemaInTx(ctx context.Context, t tx.Tx, connector *model.Connector) error {
	const op = "ReplaceConnectorSchemaInTx"

	db, err := r.activeTx(t)
	if err != nil {
		return err
	}

	var row connectorRow
	if err := db.First(&row, connector.PersistenceID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("connector %d does not exist", connector.PersistenceID()), nil)
		}
		return r.wrapDBError(op, err)
	}

	if err := db.Model(&connectorRow{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"name":       connector.UniqueName(),
			"class_name": connector.ClassName(),
		}).Error; err != nil {
		return r.wrapDBError(op, err)
	}

	if err := deleteSchemaForms(db, ownerTypeConnector, row.ID); err != nil {
		return err
	}
	return insertSchemaForms(db, ownerTypeConnector, row.ID, connector.ConnectionForms(), connector.AllJobForms())
}

// ReplaceFrameworkSchemaInTx implements repository.UpgradeStore.
func (r *SQLRepository) ReplaceFrameworkSchemaInTx(ctx context.Context, t tx.Tx, framework *model.Framework) error {
	db, err := r.activeTx(t)
	if err != nil {
		return err
	}

	row, err := r.frameworkRow(db, "ReplaceFrameworkSchemaInTx")
	if err != nil {
		return err
	}
	if row == nil {
		return exception.NewEntityNotFound(moduleName, "no framework is registered", nil)
	}
	framework.SetPersistenceID(row.ID)

	if err := deleteSchemaForms(db, ownerTypeFramework, row.ID); err != nil {
		return err
	}
	return insertSchemaForms(db, ownerTypeFramework, row.ID, framework.ConnectionForms(), framework.AllJobForms())
}

// DeleteConnectionInputsInTx implements repository.UpgradeStore.
func (r *SQLRepository) DeleteConnectionInputsInTx(ctx context.Context, t tx.Tx, connectionID int64) error {
	const op = "DeleteConnectionInputsInTx"

	db, err := r.activeTx(t)
	if err != nil {
		return err
	}
	if err := db.Where("connection_id = ?", connectionID).Delete(&connectionInputRow{}).Error; err != nil {
		return r.wrapDBError(op, err)
	}
	return nil
}

// DeleteJobInputsInTx implements repository.UpgradeStore.
func (r *SQLRepository) DeleteJobInputsInTx(ctx context.Context, t tx.Tx, jobID int64) error {
	const op = "DeleteJobInputsInTx"

	db, err := r.activeTx(t)
	if err != nil {
		return err
	}
	if err := db.Where("job_id = ?", jobID).Delete(&jobInputRow{}).Error; err != nil {
		return r.wrapDBError(op, err)
	}
	return nil
}
