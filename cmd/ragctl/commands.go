package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yungbote/rag-orchestrator/internal/app"
	"github.com/yungbote/rag-orchestrator/internal/platform/shutdown"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type appFactory func(ctx context.Context) (*app.App, error)

type rootOptions struct {
	tenant string
	newApp appFactory
}

// newRootCmd builds the CLI. newApp defaults to app.New.
func newRootCmd(newApp appFactory) *cobra.Command {
	if newApp == nil {
		newApp = app.New
	}
	opts := &rootOptions{newApp: newApp}
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Operate the RAG orchestrator from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.tenant, "tenant", "t", os.Getenv("RAG_TENANT"), "tenant id (defaults to $RAG_TENANT)")

	root.AddCommand(
		newMigrateCmd(opts),
		newUploadCmd(opts),
		newIngestCmd(opts),
		newQueryCmd(opts),
		newRetrieveCmd(opts),
	)
	return root
}

// withApp builds the app, runs fn and closes it. SIGINT cancels fn's context.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()
	a, err := o.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create database tables and the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Clients.DB.AutoMigrateAll(); err != nil {
					return fmt.Errorf("automigrate: %w", err)
				}
				if err := a.Services.Index.EnsureIndex(ctx); err != nil {
					return fmt.Errorf("ensure index: %w", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return err
			})
		},
	}
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload local files into the tenant's document registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]services.UploadFile, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, services.UploadFile{
					Filename:    filepath.Base(path),
					ContentType: mime.TypeByExtension(filepath.Ext(path)),
					Data:        data,
				})
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Upload.Upload(ctx, opts.tenant, files)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var docID string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and index one document or every pending document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if docID != "" {
					res, err := a.Services.Ingestion.IngestDocument(ctx, opts.tenant, docID)
					if err != nil {
						return err
					}
					return printJSON(cmd, res)
				}
				res, err := a.Services.Ingestion.IngestAllForTenant(ctx, opts.tenant)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&docID, "doc", "", "ingest only this document id")
	return cmd
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		docID   string
		topK    int
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "query [QUESTION]",
		Short: "Answer a question, or summarize a document with --summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.QueryRequest{Tenant: opts.tenant, DocID: docID, TopK: topK}
			if len(args) == 1 {
				req.Query = args[0]
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					res any
					err error
				)
				switch {
				case summary:
					res, err = a.Services.RAG.Summarize(ctx, req)
				case docID != "":
					res, err = a.Services.RAG.QueryDocument(ctx, req)
				default:
					res, err = a.Services.RAG.Query(ctx, req)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&docID, "doc", "", "restrict retrieval to one document id")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of context chunks (0 uses the server default)")
	cmd.Flags().BoolVar(&summary, "summary", false, "summarize --doc instead of answering")
	return cmd
}

func newRetrieveCmd(opts *rootOptions) *cobra.Command {
	var (
		docID string
		topK  int
		mode  string
	)
	cmd := &cobra.Command{
		Use:   "retrieve QUERY",
		Short: "Show retrieval results without generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.QueryRequest{Tenant: opts.tenant, Query: args[0], DocID: docID, TopK: topK}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					res any
					err error
				)
				switch mode {
				case "hybrid":
					res, err = a.Services.RAG.Retrieve(ctx, req)
				case "bm25":
					res, err = a.Services.RAG.RetrieveKeyword(ctx, req)
				case "vector":
					res, err = a.Services.RAG.RetrieveVector(ctx, req)
				default:
					return fmt.Errorf("unknown --mode %q (allowed: hybrid, bm25, vector)", mode)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&docID, "doc", "", "restrict retrieval to one document id")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (0 uses the server default)")
	cmd.Flags().StringVar(&mode, "mode", "hybrid", "hybrid, bm25 or vector")
	return cmd
}
