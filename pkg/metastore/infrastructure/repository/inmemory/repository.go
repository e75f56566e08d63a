// Package inmemory provides an in-memory implementation of the metastore
// repository contracts. All entities live in maps guarded by one mutex;
// transactions snapshot the maps on begin and restore them on rollback.
// It backs tests and embedded use where persistence is not required.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/repository"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

const moduleName = "inmemory"

// InMemoryRepository implements repository.MetadataRepository and
// repository.UpgradeStore against in-process maps.
//
// Entries in the maps are never mutated in place: every write stores a fresh
// deep copy and every read returns one. A transaction therefore only needs to
// snapshot the maps themselves; rollback swaps the old maps back and the old
// entries are untouched.
type InMemoryRepository struct {
	mu sync.RWMutex

	connectors     map[int64]*model.Connector
	connectorNames map[string]int64
	framework      *model.Framework
	connections    map[int64]*model.Connection
	jobs           map[int64]*model.Job
	submissions    map[int64]*model.Submission

	nextID int64
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		connectors:     make(map[int64]*model.Connector),
		connectorNames: make(map[string]int64),
		connections:    make(map[int64]*model.Connection),
		jobs:           make(map[int64]*model.Job),
		submissions:    make(map[int64]*model.Submission),
		nextID:         1,
	}
}

// Close implements repository.MetadataRepository. The in-memory backend holds
// no external resources.
func (r *InMemoryRepository) Close() error {
	return nil
}

// Transaction implements repository.UpgradeStore. The returned handle takes
// the repository's write lock on Begin and holds it until commit, rollback or
// close; the backend serializes concurrent transactions.
func (r *InMemoryRepository) Transaction() tx.Tx {
	return &memTx{repo: r}
}

// allocateIDLocked hands out the next value of the shared id sequence.
func (r *InMemoryRepository) allocateIDLocked() int64 {
	id := r.nextID
	r.nextID++
	return id
}

// assignFormIDsLocked assigns persistence ids to every form and input that
// does not carry one yet.
func (r *InMemoryRepository) assignFormIDsLocked(forms []*model.Form) {
	for _, form := range forms {
		if !form.HasPersistenceID() {
			form.SetPersistenceID(r.allocateIDLocked())
		}
		for _, input := range form.Inputs() {
			if input.PersistenceID() == model.PersistenceIDUnassigned {
				input.SetPersistenceID(r.allocateIDLocked())
			}
		}
	}
}

// activeTx validates that t is an active transaction on this repository.
// Operations participating in a caller-supplied transaction run under the
// lock that transaction already holds.
func (r *InMemoryRepository) activeTx(t tx.Tx) (*memTx, error) {
	mt, ok := t.(*memTx)
	if !ok {
		return nil, exception.NewStoreErrorf(moduleName, "foreign transaction handle %T", t)
	}
	if mt.repo != r {
		return nil, exception.NewStoreError(moduleName, "transaction belongs to a different repository", nil)
	}
	if !mt.Active() {
		return nil, exception.NewStoreErrorf(moduleName, "transaction is %s, not active", mt.State())
	}
	return mt, nil
}

// ownTransaction wraps fn in a transaction owned and fully managed here:
// begin, fn, commit on success, rollback on failure, close on every path.
func (r *InMemoryRepository) ownTransaction(ctx context.Context, fn func(t tx.Tx) error) (err error) {
	t := r.Transaction()
	defer func() {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err = t.Begin(ctx); err != nil {
		return err
	}
	if err = fn(t); err != nil {
		if rerr := t.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rerr)
		}
		return err
	}
	return t.Commit()
}

// ReplaceConnectorSchemaInTx implements repository.UpgradeStore.
func (r *InMemoryRepository) ReplaceConnectorSchemaInTx(ctx context.Context, t tx.Tx, connector *model.Connector) error {
	if _, err := r.activeTx(t); err != nil {
		return err
	}
	id := connector.PersistenceID()
	existing, ok := r.connectors[id]
	if !ok {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("connector %d is not registered", id), nil)
	}

	stored, err := copyConnector(connector)
	if err != nil {
		return err
	}
	r.assignFormIDsLocked(stored.ConnectionForms().Forms())
	for _, jf := range stored.AllJobForms() {
		r.assignFormIDsLocked(jf.Forms())
	}
	delete(r.connectorNames, existing.UniqueName())
	r.connectors[id] = stored
	r.connectorNames[stored.UniqueName()] = id
	return nil
}

// ReplaceFrameworkSchemaInTx implements repository.UpgradeStore.
func (r *InMemoryRepository) ReplaceFrameworkSchemaInTx(ctx context.Context, t tx.Tx, framework *model.Framework) error {
	if _, err := r.activeTx(t); err != nil {
		return err
	}
	if r.framework == nil {
		return exception.NewEntityNotFound(moduleName, "framework is not registered", nil)
	}

	framework.SetPersistenceID(r.framework.PersistenceID())
	stored, err := copyFramework(framework)
	if err != nil {
		return err
	}
	r.assignFormIDsLocked(stored.ConnectionForms().Forms())
	for _, jf := range stored.AllJobForms() {
		r.assignFormIDsLocked(jf.Forms())
	}
	r.framework = stored
	return nil
}

// DeleteConnectionInputsInTx implements repository.UpgradeStore. The stored
// connection is replaced by a blank-shaped copy: shape and ids survive, every
// value is gone, matching the deletion of the instance's input rows.
func (r *InMemoryRepository) DeleteConnectionInputsInTx(ctx context.Context, t tx.Tx, connectionID int64) error {
	if _, err := r.activeTx(t); err != nil {
		return err
	}
	connection, ok := r.connections[connectionID]
	if !ok {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("connection %d does not exist", connectionID), nil)
	}

	connectorPart, err := model.CloneConnectionForms(connection.ConnectorPart())
	if err != nil {
		return err
	}
	frameworkPart, err := model.CloneConnectionForms(connection.FrameworkPart())
	if err != nil {
		return err
	}
	stripped := model.NewConnection(connection.ConnectorID(), connectorPart, frameworkPart)
	stripped.SetPersistenceID(connectionID)
	r.connections[connectionID] = stripped
	return nil
}

// DeleteJobInputsInTx implements repository.UpgradeStore.
func (r *InMemoryRepository) DeleteJobInputsInTx(ctx context.Context, t tx.Tx, jobID int64) error {
	if _, err := r.activeTx(t); err != nil {
		return err
	}
	job, ok := r.jobs[jobID]
	if !ok {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("job %d does not exist", jobID), nil)
	}

	connectorPart, err := model.CloneJobForms(job.ConnectorPart())
	if err != nil {
		return err
	}
	frameworkPart, err := model.CloneJobForms(job.FrameworkPart())
	if err != nil {
		return err
	}
	stripped := model.NewJob(job.ConnectorID(), job.ConnectionID(), job.Type(), connectorPart, frameworkPart)
	stripped.SetPersistenceID(jobID)
	r.jobs[jobID] = stripped
	return nil
}

// Verify that InMemoryRepository satisfies both repository contracts.
var (
	_ repository.MetadataRepository = (*InMemoryRepository)(nil)
	_ repository.UpgradeStore       = (*InMemoryRepository)(nil)
)
