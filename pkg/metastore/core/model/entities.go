// Package model defines the configuration model of the metastore: schemas
// (connectors and the framework), the instances built from them (connections
// and jobs), the typed forms and inputs they are made of, and the structural
// cloner used during schema upgrades.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Connector is the registered configuration schema and identity of one
// pluggable component. The schema is replaced wholesale on upgrade; the
// persistence id is immutable.
type Connector struct {
	Persistable
	uniqueName      string
	className       string
	connectionForms *ConnectionForms
	jobForms        map[JobType]*JobForms
}

// NewConnector creates a connector schema. jobForms are keyed by their job
// type; a later bundle for the same type overwrites the earlier one.
func NewConnector(uniqueName, className string, connectionForms *ConnectionForms, jobForms []*JobForms) *Connector {
	byType := make(map[JobType]*JobForms, len(jobForms))
	for _, jf := range jobForms {
		byType[jf.Type()] = jf
	}
	return &Connector{
		Persistable:     NewPersistable(),
		uniqueName:      uniqueName,
		className:       className,
		connectionForms: connectionForms,
		jobForms:        byType,
	}
}

// UniqueName returns the repository-wide unique name of the connector.
func (c *Connector) UniqueName() string { return c.uniqueName }

// ClassName returns the reference to the connector's executable
// implementation, resolved by the external registry.
func (c *Connector) ClassName() string { return c.className }

// ConnectionForms returns the connection-level schema of the connector.
func (c *Connector) ConnectionForms() *ConnectionForms { return c.connectionForms }

// JobForms returns the job-level schema for the given job type, or nil when
// the connector does not support it.
func (c *Connector) JobForms(t JobType) *JobForms { return c.jobForms[t] }

// AllJobForms returns the job-level schemas keyed by job type.
func (c *Connector) AllJobForms() map[JobType]*JobForms { return c.jobForms }

// Framework is the single shared, system-wide configuration schema. Every
// connection and job carries a framework-owned value partition built from it.
type Framework struct {
	Persistable
	connectionForms *ConnectionForms
	jobForms        map[JobType]*JobForms
}

// NewFramework creates the framework schema.
func NewFramework(connectionForms *ConnectionForms, jobForms []*JobForms) *Framework {
	byType := make(map[JobType]*JobForms, len(jobForms))
	for _, jf := range jobForms {
		byType[jf.Type()] = jf
	}
	return &Framework{
		Persistable:     NewPersistable(),
		connectionForms: connectionForms,
		jobForms:        byType,
	}
}

// ConnectionForms returns the connection-level schema of the framework.
func (f *Framework) ConnectionForms() *ConnectionForms { return f.connectionForms }

// JobForms returns the job-level schema for the given job type, or nil when
// the framework does not define it.
func (f *Framework) JobForms(t JobType) *JobForms { return f.jobForms[t] }

// AllJobForms returns the job-level schemas keyed by job type.
func (f *Framework) AllJobForms() map[JobType]*JobForms { return f.jobForms }

// Connection is a configured instance bound to exactly one connector. It
// holds two independently owned value partitions: one instantiated from the
// connector's connection schema and one from the framework's.
type Connection struct {
	Persistable
	connectorID   int64
	connectorPart *ConnectionForms
	frameworkPart *ConnectionForms
}

// NewConnection creates a connection instance for the given connector.
func NewConnection(connectorID int64, connectorPart, frameworkPart *ConnectionForms) *Connection {
	return &Connection{
		Persistable:   NewPersistable(),
		connectorID:   connectorID,
		connectorPart: connectorPart,
		frameworkPart: frameworkPart,
	}
}

// ConnectorID returns the persistence id of the owning connector.
func (c *Connection) ConnectorID() int64 { return c.connectorID }

// ConnectorPart returns the connector-owned value partition.
func (c *Connection) ConnectorPart() *ConnectionForms { return c.connectorPart }

// FrameworkPart returns the framework-owned value partition.
func (c *Connection) FrameworkPart() *ConnectionForms { return c.frameworkPart }

// Job is a configured instance derived from a connection, of a given job
// type. Like a connection it holds a connector-owned and a framework-owned
// value partition.
type Job struct {
	Persistable
	connectorID   int64
	connectionID  int64
	jobType       JobType
	connectorPart *JobForms
	frameworkPart *JobForms
}

// NewJob creates a job instance referencing an existing connection.
func NewJob(connectorID, connectionID int64, jobType JobType, connectorPart, frameworkPart *JobForms) *Job {
	return &Job{
		Persistable:   NewPersistable(),
		connectorID:   connectorID,
		connectionID:  connectionID,
		jobType:       jobType,
		connectorPart: connectorPart,
		frameworkPart: frameworkPart,
	}
}

// ConnectorID returns the persistence id of the owning connector.
func (j *Job) ConnectorID() int64 { return j.connectorID }

// ConnectionID returns the persistence id of the connection this job derives
// from.
func (j *Job) ConnectionID() int64 { return j.connectionID }

// Type returns the job type.
func (j *Job) Type() JobType { return j.jobType }

// ConnectorPart returns the connector-owned value partition.
func (j *Job) ConnectorPart() *JobForms { return j.connectorPart }

// FrameworkPart returns the framework-owned value partition.
func (j *Job) FrameworkPart() *JobForms { return j.frameworkPart }

// SubmissionStatus represents the state of one job execution record.
type SubmissionStatus string

const (
	SubmissionStatusBooting   SubmissionStatus = "BOOTING"
	SubmissionStatusRunning   SubmissionStatus = "RUNNING"
	SubmissionStatusSucceeded SubmissionStatus = "SUCCEEDED"
	SubmissionStatusFailed    SubmissionStatus = "FAILED"
	SubmissionStatusUnknown   SubmissionStatus = "UNKNOWN"
)

// String returns the string representation of the SubmissionStatus.
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsFinished reports whether the status represents a terminal state.
func (s SubmissionStatus) IsFinished() bool {
	switch s {
	case SubmissionStatusSucceeded, SubmissionStatusFailed:
		return true
	default:
		return false
	}
}

// Submission is one execution record of a job. Submissions play no role in
// schema upgrades; they are part of the repository contract for completeness
// and are purged past a retention threshold.
type Submission struct {
	Persistable
	jobID          int64
	externalID     string
	status         SubmissionStatus
	creationDate   time.Time
	lastUpdateDate time.Time
}

// NewSubmission creates a submission record for the given job in the BOOTING
// state, with a generated external id.
func NewSubmission(jobID int64) *Submission {
	now := time.Now()
	return &Submission{
		Persistable:    NewPersistable(),
		jobID:          jobID,
		externalID:     uuid.NewString(),
		status:         SubmissionStatusBooting,
		creationDate:   now,
		lastUpdateDate: now,
	}
}

// JobID returns the persistence id of the executed job.
func (s *Submission) JobID() int64 { return s.jobID }

// ExternalID returns the identifier under which the execution is known to the
// external execution engine.
func (s *Submission) ExternalID() string { return s.externalID }

// Status returns the current status of the submission.
func (s *Submission) Status() SubmissionStatus { return s.status }

// SetStatus updates the status and the last-update timestamp.
func (s *Submission) SetStatus(status SubmissionStatus) {
	s.status = status
	s.lastUpdateDate = time.Now()
}

// CreationDate returns the creation timestamp.
func (s *Submission) CreationDate() time.Time { return s.creationDate }

// LastUpdateDate returns the last-update timestamp.
func (s *Submission) LastUpdateDate() time.Time { return s.lastUpdateDate }

// RestoreSubmission rebuilds a submission from persisted attributes. Used by
// repository backends.
func RestoreSubmission(jobID int64, externalID string, status SubmissionStatus, creationDate, lastUpdateDate time.Time) *Submission {
	return &Submission{
		Persistable:    NewPersistable(),
		jobID:          jobID,
		externalID:     externalID,
		status:         status,
		creationDate:   creationDate,
		lastUpdateDate: lastUpdateDate,
	}
}
