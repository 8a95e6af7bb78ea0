package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/smallbiznis/mindshift/internal/migration"
	"github.com/smallbiznis/mindshift/internal/observability"
	"github.com/smallbiznis/mindshift/internal/server"
	"github.com/smallbiznis/mindshift/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Progression engine and HTTP surface
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
