package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"people-partner/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "peoplepartner",
		Short:         "Your AI People Partner",
		Long:          "Category-steered HR advisory chat backed by Claude.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		askCmd(),
		categoriesCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads .env when present, then the layered configuration, and
// installs the JSON logger at the configured level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}
	return cfg, logger, nil
}
