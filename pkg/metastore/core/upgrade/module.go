package upgrade

import (
	"go.uber.org/fx"
)

// Module exports the upgrade orchestrator and its metrics recorder for
// dependency injection. The repository backend and upgrader registry are
// expected to be provided by the application.
var Module = fx.Options(
	fx.Provide(NewMetrics),
	fx.Provide(NewOrchestrator),
)
