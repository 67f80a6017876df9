package main

import (
	"github.com/claimpilot/backend/internal/server"
	"github.com/claimpilot/backend/internal/util"
	"github.com/claimpilot/backend/pkg/logger"
	"github.com/claimpilot/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
