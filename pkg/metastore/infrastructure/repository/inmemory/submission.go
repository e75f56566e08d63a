package inmemory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// CreateSubmission implements repository.SubmissionRepository.
func (r *InMemoryRepository) CreateSubmission(ctx context.Context, submission *model.Submission) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		if submission.HasPersistenceID() {
			if _, exists := r.submissions[submission.PersistenceID()]; exists {
				return exception.NewDuplicateEntity(moduleName,
					fmt.Sprintf("submission %d already exists", submission.PersistenceID()), nil)
			}
		}
		if _, ok := r.jobs[submission.JobID()]; !ok {
			return exception.NewStoreErrorf(moduleName,
				"submission references nonexistent job %d", submission.JobID())
		}

		stored := copySubmission(submission)
		if !stored.HasPersistenceID() {
			stored.SetPersistenceID(r.allocateIDLocked())
		}
		r.submissions[stored.PersistenceID()] = stored
		submission.SetPersistenceID(stored.PersistenceID())
		return nil
	})
}

// UpdateSubmission implements repository.SubmissionRepository.
func (r *InMemoryRepository) UpdateSubmission(ctx context.Context, submission *model.Submission) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		if _, exists := r.submissions[submission.PersistenceID()]; !exists {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("submission %d does not exist", submission.PersistenceID()), nil)
		}
		r.submissions[submission.PersistenceID()] = copySubmission(submission)
		return nil
	})
}

// PurgeSubmissions implements repository.SubmissionRepository.
func (r *InMemoryRepository) PurgeSubmissions(ctx context.Context, threshold time.Time) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		for id, submission := range r.submissions {
			if submission.CreationDate().Before(threshold) {
				delete(r.submissions, id)
			}
		}
		return nil
	})
}

// FindSubmissionsUnfinished implements repository.SubmissionRepository.
func (r *InMemoryRepository) FindSubmissionsUnfinished(ctx context.Context) ([]*model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Submission, 0)
	for _, submission := range r.submissions {
		if !submission.Status().IsFinished() {
			result = append(result, copySubmission(submission))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PersistenceID() < result[j].PersistenceID()
	})
	return result, nil
}

// FindSubmissionLastForJob implements repository.SubmissionRepository.
func (r *InMemoryRepository) FindSubmissionLastForJob(ctx context.Context, jobID int64) (*model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *model.Submission
	for _, submission := range r.submissions {
		if submission.JobID() != jobID {
			continue
		}
		if last == nil || submission.CreationDate().After(last.CreationDate()) {
			last = submission
		}
	}
	if last == nil {
		return nil, nil
	}
	return copySubmission(last), nil
}
