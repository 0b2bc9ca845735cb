package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"coursectl/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "coursectl",
		Usage:    "Browse courses and track learning progress from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error("not logged in, run 'coursectl auth login' first")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
