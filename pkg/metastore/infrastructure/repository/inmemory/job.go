package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// CreateJob implements repository.JobRepository.
func (r *InMemoryRepository) CreateJob(ctx context.Context, job *model.Job) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		if job.HasPersistenceID() {
			if _, exists := r.jobs[job.PersistenceID()]; exists {
				return exception.NewDuplicateEntity(moduleName,
					fmt.Sprintf("job %d already exists", job.PersistenceID()), nil)
			}
		}
		if _, ok := r.connections[job.ConnectionID()]; !ok {
			return exception.NewStoreErrorf(moduleName,
				"job references nonexistent connection %d", job.ConnectionID())
		}

		stored, err := copyJob(job)
		if err != nil {
			return err
		}
		if !stored.HasPersistenceID() {
			stored.SetPersistenceID(r.allocateIDLocked())
		}
		r.assignFormIDsLocked(stored.ConnectorPart().Forms())
		r.assignFormIDsLocked(stored.FrameworkPart().Forms())

		r.jobs[stored.PersistenceID()] = stored
		job.SetPersistenceID(stored.PersistenceID())
		return nil
	})
}

// UpdateJob implements repository.JobRepository, managing its own
// transaction end to end.
func (r *InMemoryRepository) UpdateJob(ctx context.Context, job *model.Job) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		return r.UpdateJobInTx(ctx, t, job)
	})
}

// UpdateJobInTx implements repository.JobRepository, participating in the
// caller's transaction.
func (r *InMemoryRepository) UpdateJobInTx(ctx context.Context, t tx.Tx, job *model.Job) error {
	if _, err := r.activeTx(t); err != nil {
		return err
	}
	if _, exists := r.jobs[job.PersistenceID()]; !exists {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("job %d does not exist", job.PersistenceID()), nil)
	}

	stored, err := copyJob(job)
	if err != nil {
		return err
	}
	r.assignFormIDsLocked(stored.ConnectorPart().Forms())
	r.assignFormIDsLocked(stored.FrameworkPart().Forms())
	r.jobs[stored.PersistenceID()] = stored
	return nil
}

// DeleteJob implements repository.JobRepository.
func (r *InMemoryRepository) DeleteJob(ctx context.Context, id int64) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		if _, exists := r.jobs[id]; !exists {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("job %d does not exist", id), nil)
		}
		delete(r.jobs, id)
		return nil
	})
}

// FindJob implements repository.JobRepository.
func (r *InMemoryRepository) FindJob(ctx context.Context, id int64) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return copyJob(job)
}

// FindJobs implements repository.JobRepository.
func (r *InMemoryRepository) FindJobs(ctx context.Context) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findJobsLocked(func(*model.Job) bool { return true })
}

// FindJobsForConnector implements repository.JobRepository.
func (r *InMemoryRepository) FindJobsForConnector(ctx context.Context, connectorID int64) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findJobsLocked(func(j *model.Job) bool {
		return j.ConnectorID() == connectorID
	})
}

func (r *InMemoryRepository) findJobsLocked(match func(*model.Job) bool) ([]*model.Job, error) {
	result := make([]*model.Job, 0)
	for _, job := range r.jobs {
		if !match(job) {
			continue
		}
		copied, err := copyJob(job)
		if err != nil {
			return nil, err
		}
		result = append(result, copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PersistenceID() < result[j].PersistenceID()
	})
	return result, nil
}
