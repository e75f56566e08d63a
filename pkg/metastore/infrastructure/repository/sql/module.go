package sql

import (
	"context"

	"go.uber.org/fx"

	"github.com/quayside/metastore/pkg/metastore/core/config"
	"github.com/quayside/metastore/pkg/metastore/core/repository"
)

// Module provides SQLRepository as both the public repository contract and
// the backend-extension contract, plus the schema migrator. Pending
// migrations are applied on startup when the configuration asks for it.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewSQLRepository,
			fx.As(new(repository.MetadataRepository)),
			fx.As(new(repository.UpgradeStore)),
		),
		NewMigrator,
	),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, migrator *Migrator) {
		if !cfg.Metastore.Repository.MigrateOnStartup {
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return migrator.Up(ctx)
			},
		})
	}),
)
