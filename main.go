package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/a2cps/phantomdb-go/cmd"
	"github.com/a2cps/phantomdb-go/internal/conf"
	"github.com/a2cps/phantomdb-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
