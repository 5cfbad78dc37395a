package organization

import (
	"go.uber.org/fx"

	"github.com/crewbase/crewbase/internal/organization/repository"
	"github.com/crewbase/crewbase/internal/organization/service"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
