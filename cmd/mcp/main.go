package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/khmer-text-classifier/internal/adapters/mcp"
	"github.com/kirillkom/khmer-text-classifier/internal/bootstrap"
	"github.com/kirillkom/khmer-text-classifier/internal/config"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
	"github.com/kirillkom/khmer-text-classifier/internal/core/usecase"
	"github.com/kirillkom/khmer-text-classifier/internal/observability/logging"
)

// The MCP server speaks JSON-RPC on stdout, so logs go to stderr.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewStderrJSONLogger("mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := bootstrap.LoadModel(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	// History is optional: without a reachable store only classify_text is
	// offered.
	var history ports.HistoryReader
	repo, closeDB, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		slog.Warn("mcp_history_disabled", "error", err)
	} else {
		defer closeDB()
		history = usecase.NewHistoryUseCase(repo, cfg.HistoryDefaultLimit, cfg.HistoryMaxLimit)
	}

	s := mcpadapter.NewServer(mcpadapter.NewTools(model, history), model.Version())
	if err := server.ServeStdio(s); err != nil {
		slog.Error("mcp_stopped", "error", err)
		os.Exit(1)
	}
}
