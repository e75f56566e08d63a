package inmemory

import (
	"context"
	"fmt"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// RegisterConnector implements repository.ConnectorRepository.
func (r *InMemoryRepository) RegisterConnector(ctx context.Context, connector *model.Connector) (*model.Connector, error) {
	var registered *model.Connector
	err := r.ownTransaction(ctx, func(t tx.Tx) error {
		if _, exists := r.connectorNames[connector.UniqueName()]; exists {
			return exception.NewDuplicateEntity(moduleName,
				fmt.Sprintf("connector %q is already registered", connector.UniqueName()), nil)
		}

		stored, err := copyConnector(connector)
		if err != nil {
			return err
		}
		if !stored.HasPersistenceID() {
			stored.SetPersistenceID(r.allocateIDLocked())
		}
		r.assignFormIDsLocked(stored.ConnectionForms().Forms())
		for _, jf := range stored.AllJobForms() {
			r.assignFormIDsLocked(jf.Forms())
		}

		r.connectors[stored.PersistenceID()] = stored
		r.connectorNames[stored.UniqueName()] = stored.PersistenceID()

		registered, err = copyConnector(stored)
		return err
	})
	if err != nil {
		return nil, err
	}
	connector.SetPersistenceID(registered.PersistenceID())
	return registered, nil
}

// FindConnector implements repository.ConnectorRepository.
func (r *InMemoryRepository) FindConnector(ctx context.Context, uniqueName string) (*model.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.connectorNames[uniqueName]
	if !ok {
		return nil, nil
	}
	return copyConnector(r.connectors[id])
}

// RegisterFramework implements repository.FrameworkRepository.
func (r *InMemoryRepository) RegisterFramework(ctx context.Context, framework *model.Framework) (*model.Framework, error) {
	var registered *model.Framework
	err := r.ownTransaction(ctx, func(t tx.Tx) error {
		if r.framework != nil {
			return exception.NewDuplicateEntity(moduleName, "framework is already registered", nil)
		}

		stored, err := copyFramework(framework)
		if err != nil {
			return err
		}
		if !stored.HasPersistenceID() {
			stored.SetPersistenceID(r.allocateIDLocked())
		}
		r.assignFormIDsLocked(stored.ConnectionForms().Forms())
		for _, jf := range stored.AllJobForms() {
			r.assignFormIDsLocked(jf.Forms())
		}

		r.framework = stored
		registered, err = copyFramework(stored)
		return err
	})
	if err != nil {
		return nil, err
	}
	framework.SetPersistenceID(registered.PersistenceID())
	return registered, nil
}

// FindFramework implements repository.FrameworkRepository.
func (r *InMemoryRepository) FindFramework(ctx context.Context) (*model.Framework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.framework == nil {
		return nil, nil
	}
	return copyFramework(r.framework)
}
