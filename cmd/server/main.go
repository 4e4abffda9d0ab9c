package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/aria/internal/app"
	"github.com/MereWhiplash/aria/internal/config"
	"github.com/MereWhiplash/aria/internal/logger"
	"github.com/MereWhiplash/aria/internal/tools"
)

// version is set by goreleaser via ldflags
var version = "dev"

func main() {
	args := os.Args[1:]
	if slices.Contains(args, "-version") || slices.Contains(args, "--version") {
		fmt.Printf("aria-server %s\n", version)
		return
	}

	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP stream; logs go to stderr
	log, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "aria",
		Version: version,
	}, nil)

	tools.Register(server, svc)

	log.Info("starting ARIA MCP server", "storage", cfg.Storage.Driver)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
