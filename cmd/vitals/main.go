package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/wellkit/vitals/internal/config"
	"github.com/wellkit/vitals/internal/migration"
	"github.com/wellkit/vitals/internal/observability"
	"github.com/wellkit/vitals/internal/server"
	"github.com/wellkit/vitals/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// HTTP surface; pulls in the domain modules it serves.
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
