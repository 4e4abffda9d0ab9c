package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MereWhiplash/aria/internal/cli"
)

// version is set by goreleaser via ldflags
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(cli.HTTPBackend, version)
	root.SetOut(os.Stdout)

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
