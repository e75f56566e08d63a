// Package repository defines the storage-backend-facing contracts of the
// metastore. The public MetadataRepository contract covers entity CRUD and
// referential lookups; the separate UpgradeStore contract exposes the
// backend extension points (schema replacement, bulk input deletion, the
// transaction factory) consumed only by the upgrade orchestrator.
//
// Mutating operations come in two explicit variants: the plain form opens,
// uses and fully manages its own transaction; the InTx form participates in a
// caller-supplied transaction and must not call Begin, Commit, Rollback or
// Close on it.
package repository

import (
	"context"
	"time"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
)

// ConnectorRepository manages registered connector schemas.
type ConnectorRepository interface {
	// RegisterConnector stores a connector schema, assigns its persistence id
	// and returns the registered variant. It fails with ErrDuplicateEntity
	// when a connector with the same unique name is already registered.
	RegisterConnector(ctx context.Context, connector *model.Connector) (*model.Connector, error)

	// FindConnector returns the connector registered under the given unique
	// name, or (nil, nil) when no such connector exists.
	FindConnector(ctx context.Context, uniqueName string) (*model.Connector, error)
}

// FrameworkRepository manages the singleton framework schema.
type FrameworkRepository interface {
	// RegisterFramework stores the framework schema, assigns its persistence
	// id and returns the registered variant. It fails with ErrDuplicateEntity
	// when a framework is already registered.
	RegisterFramework(ctx context.Context, framework *model.Framework) (*model.Framework, error)

	// FindFramework returns the registered framework, or (nil, nil) when none
	// has been registered yet.
	FindFramework(ctx context.Context) (*model.Framework, error)
}

// ConnectionRepository manages connection instances.
type ConnectionRepository interface {
	// CreateConnection stores a new connection and assigns its persistence
	// id. It fails with ErrDuplicateEntity when the connection already
	// carries an identity that exists in the repository.
	CreateConnection(ctx context.Context, connection *model.Connection) error

	// UpdateConnection replaces a stored connection, managing its own
	// transaction. It fails with ErrEntityNotFound when the connection does
	// not exist.
	UpdateConnection(ctx context.Context, connection *model.Connection) error

	// UpdateConnectionInTx replaces a stored connection inside the supplied
	// transaction. The transaction lifecycle belongs to the caller.
	UpdateConnectionInTx(ctx context.Context, t tx.Tx, connection *model.Connection) error

	// DeleteConnection removes the connection with the given id. It fails
	// with ErrEntityNotFound when no such connection exists.
	DeleteConnection(ctx context.Context, id int64) error

	// FindConnection returns the connection with the given id, or (nil, nil)
	// when absent.
	FindConnection(ctx context.Context, id int64) (*model.Connection, error)

	// FindConnections returns all stored connections.
	FindConnections(ctx context.Context) ([]*model.Connection, error)

	// FindConnectionsForConnector returns the connections bound to the given
	// connector id.
	FindConnectionsForConnector(ctx context.Context, connectorID int64) ([]*model.Connection, error)
}

// JobRepository manages job instances.
type JobRepository interface {
	// CreateJob stores a new job and assigns its persistence id. It fails
	// with ErrDuplicateEntity when the job already carries an identity that
	// exists in the repository.
	CreateJob(ctx context.Context, job *model.Job) error

	// UpdateJob replaces a stored job, managing its own transaction. It fails
	// with ErrEntityNotFound when the job does not exist.
	UpdateJob(ctx context.Context, job *model.Job) error

	// UpdateJobInTx replaces a stored job inside the supplied transaction.
	// The transaction lifecycle belongs to the caller.
	UpdateJobInTx(ctx context.Context, t tx.Tx, job *model.Job) error

	// DeleteJob removes the job with the given id. It fails with
	// ErrEntityNotFound when no such job exists.
	DeleteJob(ctx context.Context, id int64) error

	// FindJob returns the job with the given id, or (nil, nil) when absent.
	FindJob(ctx context.Context, id int64) (*model.Job, error)

	// FindJobs returns all stored jobs.
	FindJobs(ctx context.Context) ([]*model.Job, error)

	// FindJobsForConnector returns the jobs bound to the given connector id.
	FindJobsForConnector(ctx context.Context, connectorID int64) ([]*model.Job, error)
}

// SubmissionRepository manages job execution records. Submissions are
// unrelated to schema upgrades; they complete the repository contract.
type SubmissionRepository interface {
	// CreateSubmission stores a new submission record.
	CreateSubmission(ctx context.Context, submission *model.Submission) error

	// UpdateSubmission replaces a stored submission record. It fails with
	// ErrEntityNotFound when the submission does not exist.
	UpdateSubmission(ctx context.Context, submission *model.Submission) error

	// PurgeSubmissions removes all submissions older than the threshold.
	PurgeSubmissions(ctx context.Context, threshold time.Time) error

	// FindSubmissionsUnfinished returns all submissions that have not reached
	// a terminal status.
	FindSubmissionsUnfinished(ctx context.Context) ([]*model.Submission, error)

	// FindSubmissionLastForJob returns the most recent submission for the
	// given job id, or (nil, nil) when the job was never executed.
	FindSubmissionLastForJob(ctx context.Context, jobID int64) (*model.Submission, error)
}

// MetadataRepository is the public repository contract. It embeds the
// per-entity repositories to separate concerns, mirroring how a backend is
// consumed by regular callers.
type MetadataRepository interface {
	ConnectorRepository
	FrameworkRepository
	ConnectionRepository
	JobRepository
	SubmissionRepository

	// Close releases resources (such as database connections) used by the
	// repository.
	Close() error
}

// UpgradeStore is the backend extension contract consumed only by the
// upgrade orchestrator. Its operations always participate in a caller-owned
// transaction obtained from Transaction.
type UpgradeStore interface {
	// Transaction returns a fresh, not-started transaction handle. The
	// caller owns its entire lifecycle.
	Transaction() tx.Tx

	// ReplaceConnectorSchemaInTx replaces the registered schema of the
	// connector carrying the given persistence id: all forms and inputs
	// attached to the connector are removed and the new ones stored, with
	// the connector's persistence id preserved.
	ReplaceConnectorSchemaInTx(ctx context.Context, t tx.Tx, connector *model.Connector) error

	// ReplaceFrameworkSchemaInTx replaces the registered framework schema,
	// preserving its persistence id.
	ReplaceFrameworkSchemaInTx(ctx context.Context, t tx.Tx, framework *model.Framework) error

	// DeleteConnectionInputsInTx removes every input row belonging to the
	// given connection.
	DeleteConnectionInputsInTx(ctx context.Context, t tx.Tx, connectionID int64) error

	// DeleteJobInputsInTx removes every input row belonging to the given
	// job.
	DeleteJobInputsInTx(ctx context.Context, t tx.Tx, jobID int64) error
}
