package googleauth

import "go.uber.org/fx"

var Module = fx.Module("googleauth",
	fx.Provide(NewProvider),
)
