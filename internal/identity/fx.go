package identity

import (
	"go.uber.org/fx"

	"github.com/crewbase/crewbase/internal/identity/repository"
	"github.com/crewbase/crewbase/internal/identity/service"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
