package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/infra"
	"github.com/fieldops/fieldops/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	if err := infra.Migrate(cfg.DatabaseURL, *direction); err != nil {
		logger.Error("migrate", "direction", *direction, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "direction", *direction)
}
