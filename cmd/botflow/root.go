package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/botflow/pkg/botflow/config"
	bferrors "github.com/randalmurphal/botflow/pkg/botflow/errors"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "botflow",
		Short:        "Webhook event pipeline for a messaging bot platform",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file path (YAML or JSON, optional).")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newClassifyCmd())
	return cmd
}

// loadSettings reads the --config flag and loads the settings it names.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Settings{}, err
	}
	return config.LoadSettingsFile(path)
}

func newLogger(w io.Writer, cfg config.LogSettings) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var h slog.Handler
	switch cfg.Format {
	case "", "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log.format: %s", cfg.Format)
	}
	return slog.New(h), nil
}

func retryPolicy(cfg config.RetrySettings) bferrors.RetryPolicy {
	return bferrors.NewRetryPolicy(
		bferrors.WithInitialBackoff(cfg.InitialBackoff),
		bferrors.WithMaxBackoff(cfg.MaxBackoff),
		bferrors.WithBackoffFactor(cfg.BackoffFactor),
		bferrors.WithJitter(cfg.Jitter),
	)
}
