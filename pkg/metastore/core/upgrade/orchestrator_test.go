package upgrade_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/upgrade"
	"github.com/quayside/metastore/pkg/metastore/infrastructure/repository/inmemory"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// stubRegistry returns fixed upgraders, or errors when unset.
type stubRegistry struct {
	connector upgrade.Upgrader
	framework upgrade.Upgrader
}

func (r *stubRegistry) ConnectorUpgrader(uniqueName string) (upgrade.Upgrader, error) {
	if r.connector == nil {
		return nil, errors.New("no upgrader registered for " + uniqueName)
	}
	return r.connector, nil
}

func (r *stubRegistry) FrameworkUpgrader() (upgrade.Upgrader, error) {
	if r.framework == nil {
		return nil, errors.New("no framework upgrader registered")
	}
	return r.framework, nil
}

// renameUpgrader copies string values between inputs of different names,
// mimicking a schema that renamed a field.
type renameUpgrader struct {
	connectionMapping map[string]string // old input name -> new input name
	jobMapping        map[string]string
	failWith          error
}

func (u *renameUpgrader) UpgradeConnectionForms(old, target *model.ConnectionForms) error {
	if u.failWith != nil {
		return u.failWith
	}
	return copyMapped(old.Forms(), target.Forms(), u.connectionMapping)
}

func (u *renameUpgrader) UpgradeJobForms(old, target *model.JobForms) error {
	if u.failWith != nil {
		return u.failWith
	}
	return copyMapped(old.Forms(), target.Forms(), u.jobMapping)
}

func copyMapped(oldForms, targetForms []*model.Form, mapping map[string]string) error {
	for _, form := range oldForms {
		for _, in := range form.Inputs() {
			if !in.HasValue() {
				continue
			}
			newName, ok := mapping[in.Name()]
			if !ok {
				continue
			}
			encoded, err := in.EncodeValue()
			if err != nil {
				return err
			}
			for _, targetForm := range targetForms {
				if target := targetForm.Input(newName); target != nil {
					if err := target.DecodeValue(encoded); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func oldConnectorSchema() *model.Connector {
	connectionForm := model.NewForm("connection", []model.Input{
		model.NewStringInput("host", false, 128),
	})
	importForm := model.NewForm("table", []model.Input{
		model.NewStringInput("table", false, 64),
	})
	return model.NewConnector("jdbc", "org.example.connector.jdbc.v1",
		model.NewConnectionForms([]*model.Form{connectionForm}),
		[]*model.JobForms{model.NewJobForms(model.JobTypeImport, []*model.Form{importForm})})
}

func newConnectorSchema() *model.Connector {
	connectionForm := model.NewForm("connection", []model.Input{
		model.NewStringInput("hostname", false, 255),
		model.NewIntegerInput("port", false),
	})
	importForm := model.NewForm("source", []model.Input{
		model.NewStringInput("table-name", false, 128),
	})
	return model.NewConnector("jdbc", "org.example.connector.jdbc.v2",
		model.NewConnectionForms([]*model.Form{connectionForm}),
		[]*model.JobForms{model.NewJobForms(model.JobTypeImport, []*model.Form{importForm})})
}

func testFramework() *model.Framework {
	connectionForm := model.NewForm("security", []model.Input{
		model.NewStringInput("principal", false, 64),
	})
	importForm := model.NewForm("throttling", []model.Input{
		model.NewIntegerInput("extractors", false),
	})
	return model.NewFramework(
		model.NewConnectionForms([]*model.Form{connectionForm}),
		[]*model.JobForms{model.NewJobForms(model.JobTypeImport, []*model.Form{importForm})})
}

// upgradeFixture is a seeded repository with one connector, the framework,
// one connection and one job, all carrying values.
type upgradeFixture struct {
	repo       *inmemory.InMemoryRepository
	connector  *model.Connector
	framework  *model.Framework
	connection *model.Connection
	job        *model.Job
}

func newUpgradeFixture(t *testing.T) *upgradeFixture {
	t.Helper()
	ctx := context.Background()
	repo := inmemory.NewInMemoryRepository()

	connector, err := repo.RegisterConnector(ctx, oldConnectorSchema())
	require.NoError(t, err)
	framework, err := repo.RegisterFramework(ctx, testFramework())
	require.NoError(t, err)

	connectorPart, err := model.CloneConnectionForms(connector.ConnectionForms())
	require.NoError(t, err)
	connectorPart.Form("connection").Input("host").(*model.StringInput).SetValue("db.example.com")
	frameworkPart, err := model.CloneConnectionForms(framework.ConnectionForms())
	require.NoError(t, err)
	frameworkPart.Form("security").Input("principal").(*model.StringInput).SetValue("etl-user")
	connection := model.NewConnection(connector.PersistenceID(), connectorPart, frameworkPart)
	require.NoError(t, repo.CreateConnection(ctx, connection))

	jobConnectorPart, err := model.CloneJobForms(connector.JobForms(model.JobTypeImport))
	require.NoError(t, err)
	jobConnectorPart.Form("table").Input("table").(*model.StringInput).SetValue("accounts")
	jobFrameworkPart, err := model.CloneJobForms(framework.JobForms(model.JobTypeImport))
	require.NoError(t, err)
	jobFrameworkPart.Form("throttling").Input("extractors").(*model.IntegerInput).SetValue(4)
	job := model.NewJob(connector.PersistenceID(), connection.PersistenceID(),
		model.JobTypeImport, jobConnectorPart, jobFrameworkPart)
	require.NoError(t, repo.CreateJob(ctx, job))

	return &upgradeFixture{
		repo:       repo,
		connector:  connector,
		framework:  framework,
		connection: connection,
		job:        job,
	}
}

func jdbcRenameUpgrader() *renameUpgrader {
	return &renameUpgrader{
		connectionMapping: map[string]string{"host": "hostname"},
		jobMapping:        map[string]string{"table": "table-name"},
	}
}

func TestUpgradeConnectorMigratesSchemaAndInstances(t *testing.T) {
	ctx := context.Background()
	f := newUpgradeFixture(t)
	registry := &stubRegistry{connector: jdbcRenameUpgrader()}
	orch := upgrade.NewOrchestrator(f.repo, f.repo, registry, nil)

	require.NoError(t, orch.UpgradeConnector(ctx, f.connector, newConnectorSchema()))

	// The schema is replaced under the same identity.
	upgraded, err := f.repo.FindConnector(ctx, "jdbc")
	require.NoError(t, err)
	require.NotNil(t, upgraded)
	assert.Equal(t, f.connector.PersistenceID(), upgraded.PersistenceID())
	assert.Equal(t, "org.example.connector.jdbc.v2", upgraded.ClassName())
	require.NotNil(t, upgraded.ConnectionForms().Form("connection").Input("hostname"))
	assert.Nil(t, upgraded.ConnectionForms().Form("connection").Input("host"))

	// The registered schema stays value-free: migrated values never leak
	// into the connector's forms.
	for _, form := range upgraded.ConnectionForms().Forms() {
		for _, in := range form.Inputs() {
			assert.False(t, in.HasValue(), "schema input %s should carry no value", in.Name())
		}
	}

	// The connection keeps its identity, gets the new shape and the
	// migrated value; the framework partition is untouched.
	connection, err := f.repo.FindConnection(ctx, f.connection.PersistenceID())
	require.NoError(t, err)
	require.NotNil(t, connection)
	hostname := connection.ConnectorPart().Form("connection").Input("hostname").(*model.StringInput)
	assert.Equal(t, "db.example.com", hostname.Value())
	assert.False(t, connection.ConnectorPart().Form("connection").Input("port").HasValue())
	principal := connection.FrameworkPart().Form("security").Input("principal").(*model.StringInput)
	assert.Equal(t, "etl-user", principal.Value())

	// Same for the job.
	job, err := f.repo.FindJob(ctx, f.job.PersistenceID())
	require.NoError(t, err)
	require.NotNil(t, job)
	tableName := job.ConnectorPart().Form("source").Input("table-name").(*model.StringInput)
	assert.Equal(t, "accounts", tableName.Value())
	extractors := job.FrameworkPart().Form("throttling").Input("extractors").(*model.IntegerInput)
	assert.Equal(t, int64(4), extractors.Value())
}

func TestUpgradeConnectorRollsBackOnUpgraderFailure(t *testing.T) {
	ctx := context.Background()
	f := newUpgradeFixture(t)
	failing := jdbcRenameUpgrader()
	failing.failWith = errors.New("value does not fit the new schema")
	registry := &stubRegistry{connector: failing}
	orch := upgrade.NewOrchestrator(f.repo, f.repo, registry, nil)

	err := orch.UpgradeConnector(ctx, f.connector, newConnectorSchema())
	require.Error(t, err)
	assert.True(t, exception.IsUpgradeFailure(err))

	// Everything is exactly as before the attempt.
	connector, err := f.repo.FindConnector(ctx, "jdbc")
	require.NoError(t, err)
	require.NotNil(t, connector)
	assert.Equal(t, "org.example.connector.jdbc.v1", connector.ClassName())
	require.NotNil(t, connector.ConnectionForms().Form("connection").Input("host"))

	connection, err := f.repo.FindConnection(ctx, f.connection.PersistenceID())
	require.NoError(t, err)
	host := connection.ConnectorPart().Form("connection").Input("host").(*model.StringInput)
	assert.Equal(t, "db.example.com", host.Value())

	job, err := f.repo.FindJob(ctx, f.job.PersistenceID())
	require.NoError(t, err)
	table := job.ConnectorPart().Form("table").Input("table").(*model.StringInput)
	assert.Equal(t, "accounts", table.Value())
}

func TestUpgradeConnectorFailsWhenJobTypeDropped(t *testing.T) {
	ctx := context.Background()
	f := newUpgradeFixture(t)
	registry := &stubRegistry{connector: jdbcRenameUpgrader()}
	orch := upgrade.NewOrchestrator(f.repo, f.repo, registry, nil)

	// The new schema defines no IMPORT job forms, but an IMPORT job exists.
	noImport := model.NewConnector("jdbc", "org.example.connector.jdbc.v2",
		model.NewConnectionForms([]*model.Form{
			model.NewForm("connection", []model.Input{
				model.NewStringInput("hostname", false, 255),
			}),
		}), nil)

	err := orch.UpgradeConnector(ctx, f.connector, noImport)
	require.Error(t, err)
	assert.True(t, exception.IsUpgradeFailure(err))

	// Rolled back: the old schema is still registered.
	connector, err := f.repo.FindConnector(ctx, "jdbc")
	require.NoError(t, err)
	assert.Equal(t, "org.example.connector.jdbc.v1", connector.ClassName())
}

func TestUpgradeConnectorFailsWhenNoUpgraderRegistered(t *testing.T) {
	ctx := context.Background()
	f := newUpgradeFixture(t)
	orch := upgrade.NewOrchestrator(f.repo, f.repo, &stubRegistry{}, nil)

	err := orch.UpgradeConnector(ctx, f.connector, newConnectorSchema())
	require.Error(t, err)
	assert.True(t, exception.IsUpgradeFailure(err))
}

func TestUpgradeFrameworkMigratesFrameworkPartitions(t *testing.T) {
	ctx := context.Background()
	f := newUpgradeFixture(t)
	registry := &stubRegistry{framework: &renameUpgrader{
		connectionMapping: map[string]string{"principal": "run-as"},
		jobMapping:        map[string]string{"extractors": "parallelism"},
	}}
	orch := upgrade.NewOrchestrator(f.repo, f.repo, registry, nil)

	newFramework := model.NewFramework(
		model.NewConnectionForms([]*model.Form{
			model.NewForm("security", []model.Input{
				model.NewStringInput("run-as", false, 64),
			}),
		}),
		[]*model.JobForms{model.NewJobForms(model.JobTypeImport, []*model.Form{
			model.NewForm("throttling", []model.Input{
				model.NewIntegerInput("parallelism", false),
			}),
		})})

	require.NoError(t, orch.UpgradeFramework(ctx, newFramework))

	// Framework identity is preserved.
	upgraded, err := f.repo.FindFramework(ctx)
	require.NoError(t, err)
	require.NotNil(t, upgraded)
	assert.Equal(t, f.framework.PersistenceID(), upgraded.PersistenceID())

	// Framework partitions migrated, connector partitions untouched.
	connection, err := f.repo.FindConnection(ctx, f.connection.PersistenceID())
	require.NoError(t, err)
	runAs := connection.FrameworkPart().Form("security").Input("run-as").(*model.StringInput)
	assert.Equal(t, "etl-user", runAs.Value())
	host := connection.ConnectorPart().Form("connection").Input("host").(*model.StringInput)
	assert.Equal(t, "db.example.com", host.Value())

	job, err := f.repo.FindJob(ctx, f.job.PersistenceID())
	require.NoError(t, err)
	parallelism := job.FrameworkPart().Form("throttling").Input("parallelism").(*model.IntegerInput)
	assert.Equal(t, int64(4), parallelism.Value())
	table := job.ConnectorPart().Form("table").Input("table").(*model.StringInput)
	assert.Equal(t, "accounts", table.Value())
}

func TestUpgradeFrameworkRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newUpgradeFixture(t)
	registry := &stubRegistry{framework: &renameUpgrader{
		failWith: errors.New("mapping failed"),
	}}
	orch := upgrade.NewOrchestrator(f.repo, f.repo, registry, nil)

	err := orch.UpgradeFramework(ctx, testFramework())
	require.Error(t, err)
	assert.True(t, exception.IsUpgradeFailure(err))

	connection, err := f.repo.FindConnection(ctx, f.connection.PersistenceID())
	require.NoError(t, err)
	principal := connection.FrameworkPart().Form("security").Input("principal").(*model.StringInput)
	assert.Equal(t, "etl-user", principal.Value())
}
