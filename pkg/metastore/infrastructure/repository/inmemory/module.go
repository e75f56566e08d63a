// Package inmemory wires the in-memory repository into the application's
// dependency graph with Fx.
package inmemory

import (
	"go.uber.org/fx"

	"github.com/quayside/metastore/pkg/metastore/core/repository"
)

// Module provides InMemoryRepository as both the public repository contract
// and the backend-extension contract consumed by the upgrade orchestrator.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryRepository,
			fx.As(new(repository.MetadataRepository)),
			fx.As(new(repository.UpgradeStore)),
		),
	),
)
