// Package cli implements the aria command-line client.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/MereWhiplash/aria/internal/apitypes"
	"github.com/MereWhiplash/aria/internal/client"
	"github.com/MereWhiplash/aria/internal/config"
	"github.com/MereWhiplash/aria/internal/types"
)

// Backend is the API surface the commands use; *client.Client satisfies it
type Backend interface {
	Ingest(ctx context.Context, req apitypes.IngestRequest) (*apitypes.IngestResponse, error)
	Query(ctx context.Context, req apitypes.QueryRequest) ([]types.ChunkMatch, error)
	Health(ctx context.Context) (*apitypes.RAGHealthResponse, error)
	ListDocuments(ctx context.Context, limit, offset int, category string) ([]types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// BackendFactory builds a Backend from the resolved client settings
type BackendFactory func(cfg config.ClientConfig) Backend

// HTTPBackend is the production BackendFactory
func HTTPBackend(cfg config.ClientConfig) Backend {
	return client.New(cfg.APIURL, client.Identity{UserID: cfg.UserID, OrgID: cfg.OrgID})
}

type app struct {
	newBackend BackendFactory
	settings   config.ClientConfig
	backend    Backend
	configPath string
	jsonOutput bool
}

// NewRootCmd builds the command tree. version is printed by "aria version".
func NewRootCmd(newBackend BackendFactory, version string) *cobra.Command {
	a := &app{newBackend: newBackend}

	root := &cobra.Command{
		Use:   "aria",
		Short: "ARIA knowledge-base client",
		Long: `Ingest documents into the ARIA knowledge base and search it.

Settings come from the same TOML file and ARIA_* variables as the server;
flags override them.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a TOML config file")
	flags.StringVar(&a.settings.APIURL, "api-url", "", "ARIA API base URL")
	flags.StringVar(&a.settings.UserID, "user", "", "Caller user ID sent as "+apitypes.HeaderUserID)
	flags.StringVar(&a.settings.OrgID, "org", "", "Caller organization ID sent as "+apitypes.HeaderOrgID)
	flags.BoolVar(&a.jsonOutput, "json", false, "Print raw JSON")

	root.AddCommand(
		a.ingestCmd(),
		a.queryCmd(),
		a.healthCmd(),
		a.documentsCmd(),
		versionCmd(version),
	)
	return root
}

// setup resolves settings and creates the backend before any subcommand runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	path := a.configPath
	if path == "" {
		path = os.Getenv("ARIA_CONFIG")
	}
	cfg, err := config.LoadEnv(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	resolved := cfg.Client
	if flags.Changed("api-url") {
		resolved.APIURL = a.settings.APIURL
	}
	if flags.Changed("user") {
		resolved.UserID = a.settings.UserID
	}
	if flags.Changed("org") {
		resolved.OrgID = a.settings.OrgID
	}
	if resolved.APIURL == "" {
		return errors.New("API URL required: use --api-url or ARIA_API_URL")
	}

	a.settings = resolved
	a.backend = a.newBackend(resolved)
	return nil
}
