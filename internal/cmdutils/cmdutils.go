// Package cmdutils carries the scaffolding shared by all subcommands:
// config loading, logger setup and the run wrappers.
package cmdutils

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/config"
)

// configSearchDirs are probed in order for a config.yaml.
var configSearchDirs = []string{
	"/etc/cognito-gateway",
	"$HOME/.cognito-gateway",
	".",
}

func CobraCommand(
	use, short, long string,
	wrapperFunc func(context.Context, func(context.Context, *config.Config) error, *config.Config) error,
	businessFunc func(context.Context, *config.Config) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := wrapperFunc(cmd.Context(), businessFunc, cfg); err != nil {
				return fmt.Errorf("running %s: %w", use, err)
			}

			return nil
		},
	}
}

func LoadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg, configSearchDirs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RunAsService runs long-lived processes (the API server).
func RunAsService(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	return run(ctx, fn, cfg)
}

// RunAsJob runs one-shot or periodic processes (setup, housekeeper).
func RunAsJob(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	return run(ctx, fn, cfg)
}

func run(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	if err := InitLogger(cfg); err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to initialise the logger")
	}

	slogctx.Debug(ctx, "Starting the application", slog.Any("config", cfg))

	if err := fn(ctx, cfg); err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to start the main business application")
	}

	return nil
}

// InitLogger installs the configured handler as the process default,
// wrapped so that attributes attached to the context travel into every
// log record.
func InitLogger(cfg *config.Config) error {
	level, err := parseLevel(cfg.Logger.Level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format: %q", cfg.Logger.Format)
	}

	handler = slogctx.NewHandler(handler, nil)
	slog.SetDefault(slog.New(handler).With(
		"application", cfg.Application.Name,
		"environment", cfg.Application.Environment,
	))

	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", level)
	}
}
