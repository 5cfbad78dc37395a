package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/config"
	"github.com/crewbase/crewbase/internal/migration"
	"github.com/crewbase/crewbase/internal/server"
	"github.com/crewbase/crewbase/pkg/db"
	"github.com/crewbase/crewbase/pkg/log"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
