// Command server runs the wholesale storefront HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/wholesale-storefront/internal/app"
	"github.com/utafrali/wholesale-storefront/internal/config"
	"github.com/utafrali/wholesale-storefront/pkg/logger"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("storefront exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	slog.SetDefault(log)
	log.LogAttrs(ctx, slog.LevelInfo, "starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("api_base", cfg.APIBase()),
		slog.Bool("receipts_enabled", cfg.ReceiptsEnabled),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("stopped")
	return nil
}
