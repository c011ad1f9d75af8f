package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/khmer-text-classifier/internal/config"
	"github.com/kirillkom/khmer-text-classifier/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewStderrJSONLogger("classifyctl", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
