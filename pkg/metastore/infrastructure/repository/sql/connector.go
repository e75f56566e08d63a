package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// RegisterConnector implements repository.ConnectorRepository.
func (r *SQLRepository) RegisterConnector(ctx context.Context, connector *model.Connector) (*model.Connector, error) {
	const op = "RegisterConnector"

	err := r.ownTransaction(ctx, func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&connectorRow{}).
			Where("name = ?", connector.UniqueName()).
			Count(&count).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if count > 0 {
			return exception.NewDuplicateEntity(moduleName,
				fmt.Sprintf("connector %q is already registered", connector.UniqueName()), nil)
		}

		row := &connectorRow{Name: connector.UniqueName(), ClassName: connector.ClassName()}
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		connector.SetPersistenceID(row.ID)

		return insertSchemaForms(db, ownerTypeConnector, row.ID, connector.ConnectionForms(), connector.AllJobForms())
	})
	if err != nil {
		return nil, err
	}
	return connector, nil
}

// FindConnector implements repository.ConnectorRepository.
func (r *SQLRepository) FindConnector(ctx context.Context, uniqueName string) (*model.Connector, error) {
	const op = "FindConnector"

	db := r.db.WithContext(ctx)
	var row connectorRow
	if err := db.Where("name = ?", uniqueName).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrapDBError(op, err)
	}
	return r.loadConnector(db, row)
}

// loadConnector hydrates a connector schema from its rows.
func (r *SQLRepository) loadConnector(db *gorm.DB, row connectorRow) (*model.Connector, error) {
	connectionForms, jobForms, err := loadSchemaForms(db, ownerTypeConnector, row.ID)
	if err != nil {
		return nil, err
	}
	connector := model.NewConnector(row.Name, row.ClassName, connectionForms, jobForms)
	connector.SetPersistenceID(row.ID)
	return connector, nil
}

// RegisterFramework implements repository.FrameworkRepository.
func (r *SQLRepository) RegisterFramework(ctx context.Context, framework *model.Framework) (*model.Framework, error) {
	const op = "RegisterFramework"

	err := r.ownTransaction(ctx, func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&frameworkRow{}).Count(&count).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if count > 0 {
			return exception.NewDuplicateEntity(moduleName, "framework is already registered", nil)
		}

		row := &frameworkRow{}
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		framework.SetPersistenceID(row.ID)

		return insertSchemaForms(db, ownerTypeFramework, row.ID, framework.ConnectionForms(), framework.AllJobForms())
	})
	if err != nil {
		return nil, err
	}
	return framework, nil
}

// FindFramework implements repository.FrameworkRepository.
func (r *SQLRepository) FindFramework(ctx context.Context) (*model.Framework, error) {
	const op = "FindFramework"

	db := r.db.WithContext(ctx)
	row, err := r.frameworkRow(db, op)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return r.loadFramework(db, *row)
}

// frameworkRow returns the singleton framework row, or nil when none has
// been registered yet.
func (r *SQLRepository) frameworkRow(db *gorm.DB, op string) (*frameworkRow, error) {
	var row frameworkRow
	if err := db.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrapDBError(op, err)
	}
	return &row, nil
}

// loadFramework hydrates the framework schema from its rows.
func (r *SQLRepository) loadFramework(db *gorm.DB, row frameworkRow) (*model.Framework, error) {
	connectionForms, jobForms, err := loadSchemaForms(db, ownerTypeFramework, row.ID)
	if err != nil {
		return nil, err
	}
	framework := model.NewFramework(connectionForms, jobForms)
	framework.SetPersistenceID(row.ID)
	return framework, nil
}
