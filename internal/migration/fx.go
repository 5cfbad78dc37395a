package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if err := Ensure(conn); err != nil {
			return err
		}
		return seed.EnsurePlans(conn)
	}),
)
