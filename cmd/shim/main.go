package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/aria/internal/client"
	"github.com/MereWhiplash/aria/internal/config"
	"github.com/MereWhiplash/aria/internal/logger"
	"github.com/MereWhiplash/aria/internal/shim"
)

func main() {
	cfg, err := config.LoadEnv(os.Getenv("ARIA_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("aria-shim", flag.ContinueOnError)
	fs.StringVar(&cfg.Client.APIURL, "api-url", cfg.Client.APIURL, "Central API URL (or ARIA_API_URL)")
	fs.StringVar(&cfg.Client.UserID, "user", cfg.Client.UserID, "Caller user ID (or ARIA_USER_ID)")
	fs.StringVar(&cfg.Client.OrgID, "org", cfg.Client.OrgID, "Caller organization ID (or ARIA_ORG_ID)")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	log, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Client.APIURL == "" {
		log.Error("API URL required: use --api-url or ARIA_API_URL environment variable")
		os.Exit(1)
	}

	log.Info("caller context", "user", cfg.Client.UserID, "org", cfg.Client.OrgID, "api", cfg.Client.APIURL)

	apiClient := client.New(cfg.Client.APIURL, client.Identity{
		UserID: cfg.Client.UserID,
		OrgID:  cfg.Client.OrgID,
	})

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "aria",
		Version: "1.0.0",
	}, nil)

	shim.Register(server, shim.NewHandler(apiClient))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting ARIA shim")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
