package subscription

import (
	"go.uber.org/fx"

	"github.com/crewbase/crewbase/internal/subscription/repository"
	"github.com/crewbase/crewbase/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
