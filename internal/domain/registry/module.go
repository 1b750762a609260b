package registry

import "go.uber.org/fx"

// Module provides the queue Registry singleton to the fx graph.
var Module = fx.Module("registry",
	fx.Provide(New),
)
