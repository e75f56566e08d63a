// Package upgrade implements the transactional schema-upgrade protocol of the
// metastore: replacing a connector's or the framework's registered schema
// while every configured instance depending on it is migrated in place,
// atomically, with its identity preserved.
package upgrade

import (
	"github.com/quayside/metastore/pkg/metastore/core/model"
)

// Upgrader is the migration capability supplied per connector type, or for
// the framework. Given the old values owned by the entity under upgrade and a
// blank target shape built from the new schema, it populates the target in
// place. Any error it returns is fatal to the whole upgrade.
type Upgrader interface {
	// UpgradeConnectionForms maps the values of old into target. target is a
	// blank clone of the new connection-level schema.
	UpgradeConnectionForms(old, target *model.ConnectionForms) error

	// UpgradeJobForms maps the values of old into target. target is a blank
	// clone of the new job-level schema for the same job type.
	UpgradeJobForms(old, target *model.JobForms) error
}

// Registry resolves the migration capability for a connector type or for the
// framework. It is an external collaborator injected into the orchestrator;
// a resolution failure is fatal to the upgrade.
type Registry interface {
	// ConnectorUpgrader returns the upgrader registered for the connector
	// with the given unique name.
	ConnectorUpgrader(uniqueName string) (Upgrader, error)

	// FrameworkUpgrader returns the upgrader for the framework schema.
	FrameworkUpgrader() (Upgrader, error)
}
