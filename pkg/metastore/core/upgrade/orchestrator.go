package upgrade

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/repository"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
	"github.com/quayside/metastore/pkg/metastore/support/util/logger"
)

const moduleName = "upgrade"

// tracerName identifies the orchestrator's tracer.
const tracerName = "github.com/quayside/metastore/pkg/metastore/core/upgrade"

// Orchestrator runs the schema-upgrade protocol. It is synchronous and
// processes affected instances sequentially inside one transaction; the
// transaction is the sole concurrency-control mechanism.
type Orchestrator struct {
	repo     repository.MetadataRepository
	store    repository.UpgradeStore
	registry Registry
	metrics  *Metrics
	tracer   trace.Tracer
}

// NewOrchestrator creates an upgrade orchestrator. metrics may be nil when no
// recording is wanted.
func NewOrchestrator(repo repository.MetadataRepository, store repository.UpgradeStore, registry Registry, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		store:    store,
		registry: registry,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

// UpgradeConnector replaces the schema of the connector registered under
// oldConnector's identity with newConnector's schema, and migrates every
// connection and job bound to it. The whole operation is atomic: on any
// failure the repository is left exactly as it was and the error is returned
// wrapped as an upgrade failure.
func (o *Orchestrator) UpgradeConnector(ctx context.Context, oldConnector, newConnector *model.Connector) error {
	name := oldConnector.UniqueName()
	logger.Infof("Upgrading schema for connector: %s", name)

	ctx, span := o.tracer.Start(ctx, "metastore.UpgradeConnector",
		trace.WithAttributes(attribute.String("connector.name", name)))
	defer span.End()

	start := time.Now()
	err := o.upgradeConnector(ctx, oldConnector, newConnector)
	o.metrics.observe(targetConnector, start, err)
	logger.Infof("Schema upgrade finished for connector: %s", name)

	if err != nil {
		span.RecordError(err)
		return exception.NewUpgradeFailure(moduleName,
			fmt.Sprintf("upgrade of connector %q failed", name), err)
	}
	return nil
}

func (o *Orchestrator) upgradeConnector(ctx context.Context, oldConnector, newConnector *model.Connector) error {
	// The new schema is stored under the old connector's identity.
	connectorID := oldConnector.PersistenceID()
	newConnector.SetPersistenceID(connectorID)

	upgrader, err := o.registry.ConnectorUpgrader(newConnector.UniqueName())
	if err != nil {
		return fmt.Errorf("resolving upgrader for connector %q: %w", newConnector.UniqueName(), err)
	}

	connections, err := o.repo.FindConnectionsForConnector(ctx, connectorID)
	if err != nil {
		return err
	}
	jobs, err := o.repo.FindJobsForConnector(ctx, connectorID)
	if err != nil {
		return err
	}

	return o.withTransaction(ctx, func(ctx context.Context, t tx.Tx) error {
		if err := o.deleteInstanceInputs(ctx, t, connections, jobs); err != nil {
			return err
		}
		if err := o.store.ReplaceConnectorSchemaInTx(ctx, t, newConnector); err != nil {
			return err
		}

		for _, connection := range connections {
			// Each connection gets its own blank clone of the schema, so the
			// migrated values never leak into the connector's registered forms
			// or into another connection.
			target, err := model.CloneConnectionForms(newConnector.ConnectionForms())
			if err != nil {
				return err
			}
			if err := upgrader.UpgradeConnectionForms(connection.ConnectorPart(), target); err != nil {
				return fmt.Errorf("migrating connection %d: %w", connection.PersistenceID(), err)
			}
			replacement := model.NewConnection(connectorID, target, connection.FrameworkPart())
			replacement.SetPersistenceID(connection.PersistenceID())
			if err := o.repo.UpdateConnectionInTx(ctx, t, replacement); err != nil {
				return err
			}
		}

		for _, job := range jobs {
			schema := newConnector.JobForms(job.Type())
			if schema == nil {
				return fmt.Errorf("connector %q defines no %s job schema", newConnector.UniqueName(), job.Type())
			}
			target, err := model.CloneJobForms(schema)
			if err != nil {
				return err
			}
			if err := upgrader.UpgradeJobForms(job.ConnectorPart(), target); err != nil {
				return fmt.Errorf("migrating job %d: %w", job.PersistenceID(), err)
			}
			replacement := model.NewJob(connectorID, job.ConnectionID(), job.Type(), target, job.FrameworkPart())
			replacement.SetPersistenceID(job.PersistenceID())
			if err := o.repo.UpdateJobInTx(ctx, t, replacement); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpgradeFramework replaces the registered framework schema with framework's
// and migrates the framework-owned partition of every connection and job in
// the repository. Atomicity and failure behavior match UpgradeConnector.
func (o *Orchestrator) UpgradeFramework(ctx context.Context, framework *model.Framework) error {
	logger.Infof("Upgrading framework schema")

	ctx, span := o.tracer.Start(ctx, "metastore.UpgradeFramework")
	defer span.End()

	start := time.Now()
	err := o.upgradeFramework(ctx, framework)
	o.metrics.observe(targetFramework, start, err)
	logger.Infof("Framework schema upgrade finished")

	if err != nil {
		span.RecordError(err)
		return exception.NewUpgradeFailure(moduleName, "framework upgrade failed", err)
	}
	return nil
}

func (o *Orchestrator) upgradeFramework(ctx context.Context, framework *model.Framework) error {
	upgrader, err := o.registry.FrameworkUpgrader()
	if err != nil {
		return fmt.Errorf("resolving framework upgrader: %w", err)
	}

	// The framework schema is shared by everything, so every connection and
	// job in the repository is affected.
	connections, err := o.repo.FindConnections(ctx)
	if err != nil {
		return err
	}
	jobs, err := o.repo.FindJobs(ctx)
	if err != nil {
		return err
	}

	return o.withTransaction(ctx, func(ctx context.Context, t tx.Tx) error {
		if err := o.deleteInstanceInputs(ctx, t, connections, jobs); err != nil {
			return err
		}
		if err := o.store.ReplaceFrameworkSchemaInTx(ctx, t, framework); err != nil {
			return err
		}

		for _, connection := range connections {
			target, err := model.CloneConnectionForms(framework.ConnectionForms())
			if err != nil {
				return err
			}
			if err := upgrader.UpgradeConnectionForms(connection.FrameworkPart(), target); err != nil {
				return fmt.Errorf("migrating connection %d: %w", connection.PersistenceID(), err)
			}
			replacement := model.NewConnection(connection.ConnectorID(), connection.ConnectorPart(), target)
			replacement.SetPersistenceID(connection.PersistenceID())
			if err := o.repo.UpdateConnectionInTx(ctx, t, replacement); err != nil {
				return err
			}
		}

		for _, job := range jobs {
			schema := framework.JobForms(job.Type())
			if schema == nil {
				return fmt.Errorf("framework defines no %s job schema", job.Type())
			}
			target, err := model.CloneJobForms(schema)
			if err != nil {
				return err
			}
			if err := upgrader.UpgradeJobForms(job.FrameworkPart(), target); err != nil {
				return fmt.Errorf("migrating job %d: %w", job.PersistenceID(), err)
			}
			replacement := model.NewJob(job.ConnectorID(), job.ConnectionID(), job.Type(), job.ConnectorPart(), target)
			replacement.SetPersistenceID(job.PersistenceID())
			if err := o.repo.UpdateJobInTx(ctx, t, replacement); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteInstanceInputs removes the input rows of every affected job, then of
// every affected connection. Job inputs must go first: input rows are
// children of their instance rows and jobs reference connections.
func (o *Orchestrator) deleteInstanceInputs(ctx context.Context, t tx.Tx, connections []*model.Connection, jobs []*model.Job) error {
	for _, job := range jobs {
		if err := o.store.DeleteJobInputsInTx(ctx, t, job.PersistenceID()); err != nil {
			return err
		}
	}
	for _, connection := range connections {
		if err := o.store.DeleteConnectionInputsInTx(ctx, t, connection.PersistenceID()); err != nil {
			return err
		}
	}
	return nil
}

// withTransaction opens one transaction spanning fn, commits on success and
// rolls back on failure. The handle is closed on every exit path; the
// orchestrator owns its entire lifecycle.
func (o *Orchestrator) withTransaction(ctx context.Context, fn func(ctx context.Context, t tx.Tx) error) error {
	t := o.store.Transaction()
	defer func() {
		if cerr := t.Close(); cerr != nil {
			logger.Warnf("Failed to close upgrade transaction: %v", cerr)
		}
	}()

	if err := t.Begin(ctx); err != nil {
		return err
	}
	if err := fn(ctx, t); err != nil {
		if rerr := t.Rollback(); rerr != nil {
			err = multierror.Append(err, rerr)
		}
		return err
	}
	return t.Commit()
}
