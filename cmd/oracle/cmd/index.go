package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oracle-rag/oracle/internal/chunk"
	"github.com/oracle-rag/oracle/internal/config"
	"github.com/oracle-rag/oracle/internal/embed"
	"github.com/oracle-rag/oracle/internal/indexer"
	"github.com/oracle-rag/oracle/internal/obslog"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the hybrid index",
	}
	cmd.AddCommand(newIndexFullCmd())
	cmd.AddCommand(newIndexUpdateCmd())
	return cmd
}

func newIndexFullCmd() *cobra.Command {
	var (
		path   string
		dbPath string
		maxKB  int
		scope  string
	)

	cmd := &cobra.Command{
		Use:   "full",
		Short: "Rebuild the index from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if scope != "" {
				root = filepath.Join(root, scope)
			}

			layout := resolveDataLayout(root, dbPath)
			orch, err := newOrchestrator(root)
			if err != nil {
				return err
			}
			defer orch.Close()

			stats, err := orch.FullIndex(cmd.Context(), root, layout.DBPath, indexer.Options{
				MaxBytes:    int64(maxKB) * 1024,
				LexicalPath: layout.LexicalPath,
				VectorPath:  layout.VectorPath,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files (%d failed), %d chunks, %dms\n",
				stats.FilesProcessed, stats.FilesFailed, stats.ChunksCreated, stats.DurationMs)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository path")
	cmd.Flags().StringVar(&dbPath, "db", "", "override the chunk store path")
	cmd.Flags().IntVar(&maxKB, "max-size", 500, "maximum file size in KB")
	cmd.Flags().StringVar(&scope, "scope", "", "index only a subdirectory")
	return cmd
}

func newIndexUpdateCmd() *cobra.Command {
	var (
		path   string
		dbPath string
		scope  string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reindex files changed since the last build",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if scope != "" {
				root = filepath.Join(root, scope)
			}

			layout := resolveDataLayout(root, dbPath)
			orch, err := newOrchestrator(root)
			if err != nil {
				return err
			}
			defer orch.Close()

			stats, err := orch.UpdateIndex(cmd.Context(), root, layout.DBPath, indexer.Options{
				LexicalPath: layout.LexicalPath,
				VectorPath:  layout.VectorPath,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d files (%d failed), %d chunks, %dms\n",
				stats.FilesProcessed, stats.FilesFailed, stats.ChunksCreated, stats.DurationMs)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository path")
	cmd.Flags().StringVar(&dbPath, "db", "", "override the chunk store path")
	cmd.Flags().StringVar(&scope, "scope", "", "update only a subdirectory")
	return cmd
}

// newOrchestrator builds an Orchestrator wired with the registered grammars
// and the configured embedder, per SPEC_FULL.md §10.2's config-driven
// embedder selection.
func newOrchestrator(root string) (*indexer.Orchestrator, error) {
	cfg, err := config.Load(filepath.Join(root, ".oracle.yaml"))
	if err != nil {
		return nil, err
	}

	logger := obslog.New(loggerLevel())
	registry := chunk.NewRegistry()
	parser := chunk.NewParser(registry)
	chunker := chunk.New(parser, logger)

	embedder := embed.NewCached(embed.NewOllamaEmbedder(cfg.Embeddings.Endpoint, cfg.Embeddings.Model), embed.DefaultCacheSize)

	return indexer.New(registry, parser, chunker, embedder, logger), nil
}
