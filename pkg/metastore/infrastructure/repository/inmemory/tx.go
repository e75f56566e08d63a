package inmemory

import (
	"context"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
)

// snapshot is the repository state captured when a transaction begins. The
// maps are copied shallowly; entries are immutable by construction (see the
// InMemoryRepository doc comment), so restoring the maps restores the state.
type snapshot struct {
	connectors     map[int64]*model.Connector
	connectorNames map[string]int64
	framework      *model.Framework
	connections    map[int64]*model.Connection
	jobs           map[int64]*model.Job
	submissions    map[int64]*model.Submission
	nextID         int64
}

// memTx is the transaction handle of the in-memory backend. Begin takes the
// repository's write lock and snapshots the maps; Commit releases the lock;
// Rollback restores the snapshot first. Close rolls back a still-active
// transaction and is idempotent.
type memTx struct {
	tx.Lifecycle
	repo *InMemoryRepository
	snap *snapshot
}

// Begin implements tx.Tx.
func (t *memTx) Begin(ctx context.Context) error {
	if err := t.TransitionBegin(); err != nil {
		return err
	}
	t.repo.mu.Lock()
	t.snap = t.repo.snapshotLocked()
	return nil
}

// Commit implements tx.Tx.
func (t *memTx) Commit() error {
	if err := t.TransitionCommit(); err != nil {
		return err
	}
	t.snap = nil
	t.repo.mu.Unlock()
	return nil
}

// Rollback implements tx.Tx.
func (t *memTx) Rollback() error {
	if err := t.TransitionRollback(); err != nil {
		return err
	}
	t.repo.restoreLocked(t.snap)
	t.snap = nil
	t.repo.mu.Unlock()
	return nil
}

// Close implements tx.Tx.
func (t *memTx) Close() error {
	switch t.TransitionClose() {
	case tx.StateActive:
		// Closing an active transaction discards its work.
		t.repo.restoreLocked(t.snap)
		t.snap = nil
		t.repo.mu.Unlock()
	}
	return nil
}

// snapshotLocked captures the current state. Caller holds the write lock.
func (r *InMemoryRepository) snapshotLocked() *snapshot {
	return &snapshot{
		connectors:     copyMap(r.connectors),
		connectorNames: copyMap(r.connectorNames),
		framework:      r.framework,
		connections:    copyMap(r.connections),
		jobs:           copyMap(r.jobs),
		submissions:    copyMap(r.submissions),
		nextID:         r.nextID,
	}
}

// restoreLocked swaps a snapshot back in. Caller holds the write lock.
func (r *InMemoryRepository) restoreLocked(s *snapshot) {
	r.connectors = s.connectors
	r.connectorNames = s.connectorNames
	r.framework = s.framework
	r.connections = s.connections
	r.jobs = s.jobs
	r.submissions = s.submissions
	r.nextID = s.nextID
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
