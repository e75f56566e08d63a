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

// CreateJob implements repository.JobRepository.
func (r *SQLRepository) CreateJob(ctx context.Context, job *model.Job) error {
	const op = "CreateJob"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		if job.HasPersistenceID() {
			var count int64
			if err := db.Model(&jobRow{}).
				Where("id = ?", job.PersistenceID()).
				Count(&count).Error; err != nil {
				return r.wrapDBError(op, err)
			}
			if count > 0 {
				return exception.NewDuplicateEntity(moduleName,
					fmt.Sprintf("job %d already exists", job.PersistenceID()), nil)
			}
		}

		var connectionCount int64
		if err := db.Model(&connectionRow{}).
			Where("id = ?", job.ConnectionID()).
			Count(&connectionCount).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if connectionCount == 0 {
			return exception.NewStoreErrorf(moduleName,
				"job references nonexistent connection %d", job.ConnectionID())
		}

		row := &jobRow{
			ConnectorID:  job.ConnectorID(),
			ConnectionID: job.ConnectionID(),
			JobType:      job.Type().String(),
		}
		if job.HasPersistenceID() {
			row.ID = job.PersistenceID()
		}
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		job.SetPersistenceID(row.ID)

		return r.insertJobValues(db, row.ID, job)
	})
}

// UpdateJob implements repository.JobRepository, managing its own
// transaction end to end.
func (r *SQLRepository) UpdateJob(ctx context.Context, job *model.Job) error {
	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		return r.updateJob(db, job)
	})
}

// UpdateJobInTx implements repository.JobRepository, participating in the
// caller's transaction.
func (r *SQLRepository) UpdateJobInTx(ctx context.Context, t tx.Tx, job *model.Job) error {
	db, err := r.activeTx(t)
	if err != nil {
		return err
	}
	return r.updateJob(db, job)
}

func (r *SQLRepository) updateJob(db *gorm.DB, job *model.Job) error {
	const op = "UpdateJob"

	var count int64
	if err := db.Model(&jobRow{}).
		Where("id = ?", job.PersistenceID()).
		Count(&count).Error; err != nil {
		return r.wrapDBError(op, err)
	}
	if count == 0 {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("job %d does not exist", job.PersistenceID()), nil)
	}

	if err := db.Where("job_id = ?", job.PersistenceID()).
		Delete(&jobInputRow{}).Error; err != nil {
		return r.wrapDBError(op, err)
	}
	return r.insertJobValues(db, job.PersistenceID(), job)
}

// insertJobValues stores one value row per filled input of both partitions
// of the job.
func (r *SQLRepository) insertJobValues(db *gorm.DB, jobID int64, job *model.Job) error {
	values, err := collectFormValues(job.ConnectorPart().Forms(), job.FrameworkPart().Forms())
	if err != nil {
		return err
	}
	for _, v := range values {
		row := &jobInputRow{JobID: jobID, InputID: v.inputID, Value: v.value}
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError("insertJobValues", err)
		}
	}
	return nil
}

// DeleteJob implements repository.JobRepository.
func (r *SQLRepository) DeleteJob(ctx context.Context, id int64) error {
	const op = "DeleteJob"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&jobRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if count == 0 {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("job %d does not exist", id), nil)
		}

		if err := db.Where("job_id = ?", id).Delete(&jobInputRow{}).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if err := db.Delete(&jobRow{}, id).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		return nil
	})
}

// FindJob implements repository.JobRepository.
func (r *SQLRepository) FindJob(ctx context.Context, id int64) (*model.Job, error) {
	const op = "FindJob"

	db := r.db.WithContext(ctx)
	var row jobRow
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrapDBError(op, err)
	}
	return r.hydrateJob(db, row)
}

// FindJobs implements repository.JobRepository.
func (r *SQLRepository) FindJobs(ctx context.Context) ([]*model.Job, error) {
	return r.findJobs(ctx, r.db.WithContext(ctx))
}

// FindJobsForConnector implements repository.JobRepository.
func (r *SQLRepository) FindJobsForConnector(ctx context.Context, connectorID int64) ([]*model.Job, error) {
	db := r.db.WithContext(ctx).Where("connector_id = ?", connectorID)
	return r.findJobs(ctx, db)
}

func (r *SQLRepository) findJobs(ctx context.Context, query *gorm.DB) ([]*model.Job, error) {
	const op = "FindJobs"

	var rows []jobRow
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, r.wrapDBError(op, err)
	}

	db := r.db.WithContext(ctx)
	result := make([]*model.Job, 0, len(rows))
	for _, row := range rows {
		job, err := r.hydrateJob(db, row)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, nil
}

// hydrateJob rebuilds a job instance. The form shapes come from the
// job-level schemas of the current connector and framework for the job's
// type, the values from the stored value rows.
func (r *SQLRepository) hydrateJob(db *gorm.DB, row jobRow) (*model.Job, error) {
	jobType := model.JobType(row.JobType)

	_, connectorJobForms, err := loadSchemaForms(db, ownerTypeConnector, row.ConnectorID)
	if err != nil {
		return nil, err
	}
	connectorPart := jobFormsForType(connectorJobForms, jobType)
	if connectorPart == nil {
		return nil, exception.NewStoreErrorf(moduleName,
			"job %d has type %s but connector %d defines no such job schema",
			row.ID, jobType, row.ConnectorID)
	}

	fwRow, err := r.frameworkRow(db, "hydrateJob")
	if err != nil {
		return nil, err
	}
	if fwRow == nil {
		return nil, exception.NewStoreErrorf(moduleName,
			"job %d exists but no framework is registered", row.ID)
	}
	_, frameworkJobForms, err := loadSchemaForms(db, ownerTypeFramework, fwRow.ID)
	if err != nil {
		return nil, err
	}
	frameworkPart := jobFormsForType(frameworkJobForms, jobType)
	if frameworkPart == nil {
		return nil, exception.NewStoreErrorf(moduleName,
			"job %d has type %s but the framework defines no such job schema", row.ID, jobType)
	}

	var valueRows []jobInputRow
	if err := db.Where("job_id = ?", row.ID).Find(&valueRows).Error; err != nil {
		return nil, r.wrapDBError("hydrateJob", err)
	}
	values := make(map[int64]string, len(valueRows))
	for _, v := range valueRows {
		values[v.InputID] = v.Value
	}
	if err := applyFormValues(values, connectorPart.Forms(), frameworkPart.Forms()); err != nil {
		return nil, err
	}

	job := model.NewJob(row.ConnectorID, row.ConnectionID, jobType, connectorPart, frameworkPart)
	job.SetPersistenceID(row.ID)
	return job, nil
}

func jobFormsForType(bundles []*model.JobForms, jobType model.JobType) *model.JobForms {
	for _, jf := range bundles {
		if jf.Type() == jobType {
			return jf
		}
	}
	return nil
}
