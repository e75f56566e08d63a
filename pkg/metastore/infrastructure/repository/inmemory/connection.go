package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// CreateConnection implements repository.ConnectionRepository.
func (r *InMemoryRepository) CreateConnection(ctx context.Context, connection *model.Connection) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		if connection.HasPersistenceID() {
			if _, exists := r.connections[connection.PersistenceID()]; exists {
				return exception.NewDuplicateEntity(moduleName,
					fmt.Sprintf("connection %d already exists", connection.PersistenceID()), nil)
			}
		}
		if _, ok := r.connectors[connection.ConnectorID()]; !ok {
			return exception.NewStoreErrorf(moduleName,
				"connection references unregistered connector %d", connection.ConnectorID())
		}

		stored, err := copyConnection(connection)
		if err != nil {
			return err
		}
		if !stored.HasPersistenceID() {
			stored.SetPersistenceID(r.allocateIDLocked())
		}
		r.assignFormIDsLocked(stored.ConnectorPart().Forms())
		r.assignFormIDsLocked(stored.FrameworkPart().Forms())

		r.connections[stored.PersistenceID()] = stored
		connection.SetPersistenceID(stored.PersistenceID())
		return nil
	})
}

// UpdateConnection implements repository.ConnectionRepository, managing its
// own transaction end to end.
func (r *InMemoryRepository) UpdateConnection(ctx context.Context, connection *model.Connection) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		return r.UpdateConnectionInTx(ctx, t, connection)
	})
}

// UpdateConnectionInTx implements repository.ConnectionRepository,
// participating in the caller's transaction.
func (r *InMemoryRepository) UpdateConnectionInTx(ctx context.Context, t tx.Tx, connection *model.Connection) error {
	if _, err := r.activeTx(t); err != nil {
		return err
	}
	if _, exists := r.connections[connection.PersistenceID()]; !exists {
		return exception.NewEntityNotFound(moduleName,
			fmt.Sprintf("connection %d does not exist", connection.PersistenceID()), nil)
	}

	stored, err := copyConnection(connection)
	if err != nil {
		return err
	}
	r.assignFormIDsLocked(stored.ConnectorPart().Forms())
	r.assignFormIDsLocked(stored.FrameworkPart().Forms())
	r.connections[stored.PersistenceID()] = stored
	return nil
}

// DeleteConnection implements repository.ConnectionRepository. A connection
// that still has jobs cannot be deleted.
func (r *InMemoryRepository) DeleteConnection(ctx context.Context, id int64) error {
	return r.ownTransaction(ctx, func(t tx.Tx) error {
		if _, exists := r.connections[id]; !exists {
			return exception.NewEntityNotFound(moduleName,
				fmt.Sprintf("connection %d does not exist", id), nil)
		}
		for _, job := range r.jobs {
			if job.ConnectionID() == id {
				return exception.NewStoreErrorf(moduleName,
					"connection %d is still referenced by job %d", id, job.PersistenceID())
			}
		}
		delete(r.connections, id)
		return nil
	})
}

// FindConnection implements repository.ConnectionRepository.
func (r *InMemoryRepository) FindConnection(ctx context.Context, id int64) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connection, ok := r.connections[id]
	if !ok {
		return nil, nil
	}
	return copyConnection(connection)
}

// FindConnections implements repository.ConnectionRepository.
func (r *InMemoryRepository) FindConnections(ctx context.Context) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findConnectionsLocked(func(*model.Connection) bool { return true })
}

// FindConnectionsForConnector implements repository.ConnectionRepository.
func (r *InMemoryRepository) FindConnectionsForConnector(ctx context.Context, connectorID int64) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findConnectionsLocked(func(c *model.Connection) bool {
		return c.ConnectorID() == connectorID
	})
}

func (r *InMemoryRepository) findConnectionsLocked(match func(*model.Connection) bool) ([]*model.Connection, error) {
	result := make([]*model.Connection, 0)
	for _, connection := range r.connections {
		if !match(connection) {
			continue
		}
		copied, err := copyConnection(connection)
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
