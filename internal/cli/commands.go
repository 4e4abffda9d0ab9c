package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MereWhiplash/aria/internal/apitypes"
	"github.com/MereWhiplash/aria/internal/loader"
)

func (a *app) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) ingestCmd() *cobra.Command {
	var title, category, provider string

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a .txt, .md or .pdf file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			if title != "" {
				doc.Title = title
			}

			res, err := a.backend.Ingest(cmd.Context(), apitypes.IngestRequest{
				Title:             doc.Title,
				Content:           doc.Content,
				Category:          category,
				InsuranceProvider: provider,
				Metadata:          map[string]any{"source_file": doc.Source},
			})
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", args[0], err)
			}

			if a.jsonOutput {
				return a.printJSON(cmd, res)
			}
			cmd.Printf("Ingested %q as %s (%d chunks)\n", doc.Title, res.DocumentID, res.ChunksCreated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (default: derived from the file)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Document category")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Insurance provider the document applies to")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var category string
	var count int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := apitypes.QueryRequest{
				Query:      strings.Join(args, " "),
				Category:   category,
				MatchCount: count,
			}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}

			results, err := a.backend.Query(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to query: %w", err)
			}

			if a.jsonOutput {
				return a.printJSON(cmd, results)
			}
			if len(results) == 0 {
				cmd.Println("No matching passages found.")
				return nil
			}
			for i, r := range results {
				cmd.Printf("%d. [%.3f] %s (chunk %d)\n", i+1, r.Similarity, r.DocumentTitle, r.ChunkIndex)
				cmd.Printf("   %s\n\n", snippet(r.Text, 200))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict to a category or insurance provider")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Maximum number of results (default 5)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity in [0,1] (default 0.7)")
	return cmd
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the knowledge-base store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.backend.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to check health: %w", err)
			}

			if a.jsonOutput {
				if err := a.printJSON(cmd, h); err != nil {
					return err
				}
			} else {
				cmd.Printf("Status:     %s\n", h.Status)
				cmd.Printf("Connected:  %t\n", h.Database.Connected)
				cmd.Printf("Documents:  %d\n", h.Database.DocumentsCount)
				cmd.Printf("Embeddings: %d\n", h.Database.EmbeddingsCount)
				if h.Error != "" {
					cmd.Printf("Error:      %s\n", h.Error)
				}
			}

			if h.Status != "healthy" {
				return fmt.Errorf("store is %s", h.Status)
			}
			return nil
		},
	}
}

func (a *app) documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage ingested documents",
	}

	var limit, offset int
	var category string

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := a.backend.ListDocuments(cmd.Context(), limit, offset, category)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			if a.jsonOutput {
				return a.printJSON(cmd, docs)
			}
			if len(docs) == 0 {
				cmd.Println("No documents found.")
				return nil
			}
			for i := range docs {
				cmd.Printf("  %s\n", docs[i].ID)
				cmd.Printf("    Title:    %s\n", docs[i].Title)
				cmd.Printf("    Category: %s\n", docs[i].DocumentType)
				if docs[i].InsuranceProvider != "" {
					cmd.Printf("    Provider: %s\n", docs[i].InsuranceProvider)
				}
				cmd.Printf("    Created:  %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
				cmd.Println()
			}
			cmd.Printf("Total: %d documents\n", len(docs))
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of documents")
	list.Flags().IntVar(&offset, "offset", 0, "Number of documents to skip")
	list.Flags().StringVarP(&category, "category", "c", "", "Filter by category or insurance provider")

	del := &cobra.Command{
		Use:   "delete [doc-id]",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backend.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}
			cmd.Printf("Document %s has been deleted.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("aria %s\n", version)
		},
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
