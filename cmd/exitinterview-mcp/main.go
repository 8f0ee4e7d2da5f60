package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/exit-interview/internal/bootstrap"
	"github.com/example/exit-interview/internal/config"
	"github.com/example/exit-interview/internal/logging"
	"github.com/example/exit-interview/internal/mcpserver"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run serves MCP over stdin/stdout. Logs go to stderr because stdout carries
// the protocol stream.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	engine, err := bootstrap.Open(ctx, bootstrap.Options{Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := engine.Close(closeCtx); cerr != nil {
			logger.Error("failed to close engine", "error", cerr)
		}
	}()

	stdio := server.NewStdioServer(mcpserver.New(engine.Interviews, logger).MCPServer())
	logger.Info("exit interview MCP server ready")
	if err := stdio.Listen(ctx, stdin, stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}
