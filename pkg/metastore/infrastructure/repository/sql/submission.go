package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// CreateSubmission implements repository.SubmissionRepository.
func (r *SQLRepository) CreateSubmission(ctx context.Context, submission *model.Submission) error {
	const op = "CreateSubmission"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		if submission.HasPersistenceID() {
			var count int64
			if err := db.Model(&submissionRow{}).
				Where("id = ?", submission.PersistenceID()).
				Count(&count).Error; err != nil {
				return r.wrapDBError(op, err)
			}
			if count > 0 {
				return exception.NewDuplicateEntity(moduleName,
					fmt.Sprintf("submission %d already exists", submission.PersistenceID()), nil)
			}
		}

		var jobCount int64
		if err := db.Model(&jobRow{}).
			Where("id = ?", submission.JobID()).
			Count(&jobCount).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		if jobCount == 0 {
			return exception.NewStoreErrorf(moduleName,
				"submission references nonexistent job %d", submission.JobID())
		}

		row := submissionToRow(submission)
		if err := db.Create(row).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		submission.SetPersistenceID(row.ID)
		return nil
	})
}

// UpdateSubmission implements repository.SubmissionRepository.
func (r *SQLRepository) UpdateSubmission(ctx context.Context, submission *model.Submission) error {
	const op = "UpdateSubmission"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		row := submissionToRow(submission)
		result := db.Model(&submissionRow{}).
			Where("id = ?", submission.PersistenceID()).
			Updates(map[string]interface{}{
				"status":           row.Status,
				"external_id":      row.ExternalID,
				"last_update_date": row.LastUpdateDate,
			})
		if result.Error != nil {
			return r.wrapDBError(op, result.Error)
		}
		if result.RowsAffected == 0 {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("submission %d does not exist", submission.PersistenceID()), nil)
		}
		return nil
	})
}

// PurgeSubmissions implements repository.SubmissionRepository.
func (r *SQLRepository) PurgeSubmissions(ctx context.Context, threshold time.Time) error {
	const op = "PurgeSubmissions"

	return r.ownTransaction(ctx, func(db *gorm.DB) error {
		if err := db.Where("creation_date < ?", threshold).Delete(&submissionRow{}).Error; err != nil {
			return r.wrapDBError(op, err)
		}
		return nil
	})
}

// FindSubmissionsUnfinished implements repository.SubmissionRepository.
func (r *SQLRepository) FindSubmissionsUnfinished(ctx context.Context) ([]*model.Submission, error) {
	const op = "FindSubmissionsUnfinished"

	var rows []submissionRow
	if err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{
			model.SubmissionStatusSucceeded.String(),
			model.SubmissionStatusFailed.String(),
		}).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, r.wrapDBError(op, err)
	}

	result := make([]*model.Submission, 0, len(rows))
	for _, row := range rows {
		result = append(result, submissionFromRow(row))
	}
	return result, nil
}

// FindSubmissionLastForJob implements repository.SubmissionRepository.
func (r *SQLRepository) FindSubmissionLastForJob(ctx context.Context, jobID int64) (*model.Submission, error) {
	const op = "FindSubmissionLastForJob"

	var row submissionRow
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("creation_date DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrapDBError(op, err)
	}
	return submissionFromRow(row), nil
}

func submissionToRow(submission *model.Submission) *submissionRow {
	row := &submissionRow{
		JobID:          submission.JobID(),
		ExternalID:     submission.ExternalID(),
		Status:         submission.Status().String(),
		CreationDate:   submission.CreationDate(),
		LastUpdateDate: submission.LastUpdateDate(),
	}
	if submission.HasPersistenceID() {
		row.ID = submission.PersistenceID()
	}
	return row
}

func submissionFromRow(row submissionRow) *model.Submission {
	submission := model.RestoreSubmission(
		row.JobID,
		row.ExternalID,
		model.SubmissionStatus(row.Status),
		row.CreationDate,
		row.LastUpdateDate,
	)
	submission.SetPersistenceID(row.ID)
	return submission
}
