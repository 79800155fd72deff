package main

import (
	"github.com/joho/godotenv"

	"github.com/dusk-indust/gdgraph/internal/config"
	"github.com/dusk-indust/gdgraph/internal/logging"
)

func main() {
	_ = godotenv.Load()
	config.InitConfig()
	config.InitViper()
	logging.InitLogging()
	Execute()
}
