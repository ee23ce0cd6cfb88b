package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/oracle-rag/oracle/internal/config"
	"github.com/oracle-rag/oracle/internal/embed"
	"github.com/oracle-rag/oracle/internal/lexical"
	"github.com/oracle-rag/oracle/internal/ocerrors"
	"github.com/oracle-rag/oracle/internal/rerank"
	"github.com/oracle-rag/oracle/internal/retriever"
	"github.com/oracle-rag/oracle/internal/store"
	"github.com/oracle-rag/oracle/internal/vector"
)

func newAskCmd() *cobra.Command {
	var (
		path     string
		topK     int
		noRerank bool
		dryRun   bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question about the repository",
		Long: `ask runs the hybrid retrieval pipeline (spec §4.11), optionally
reranks the fused candidates, and prints the top chunks. No answer is
generated: the generation layer is an external collaborator outside this
core's scope, and --dry-run only changes the closing note.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			root, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			_ = noCache // response caching belongs to the generation layer, out of core scope

			results, err := runRetrieval(cmd, root, question, topK, noRerank)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}

			printResults(cmd, results)

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "(dry run: skipping answer generation)")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "(answer generation is outside this core's scope)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository path")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of chunks to retrieve")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "skip cross-encoder reranking")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "retrieve context without generating an answer")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the generation layer's response cache")

	return cmd
}

type askResult struct {
	FilePath   string
	SymbolName string
	StartLine  int
	Content    string
	Score      float64
}

func runRetrieval(cmd *cobra.Command, root, question string, topK int, noRerank bool) ([]askResult, error) {
	cfg, err := config.Load(filepath.Join(root, ".oracle.yaml"))
	if err != nil {
		return nil, err
	}

	layout := resolveDataLayout(root, "")

	s, err := store.Open(layout.DBPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	lex, err := lexical.Load(layout.LexicalPath)
	if err != nil {
		return nil, ocerrors.InvalidInput("lexical index missing; run 'oracle index full' first", err)
	}
	defer lex.Close()

	vec, err := vector.Load(layout.VectorPath)
	if err != nil {
		return nil, ocerrors.InvalidInput("vector index missing; run 'oracle index full' first", err)
	}

	embedder := embed.NewCached(embed.NewOllamaEmbedder(cfg.Embeddings.Endpoint, cfg.Embeddings.Model), embed.DefaultCacheSize)
	defer embedder.Close()

	r := retriever.New(s, lex, vec, embedder)
	opts := retriever.Options{
		BM25Limit:   cfg.Search.BM25Limit,
		VectorLimit: cfg.Search.VectorLimit,
		FusionLimit: cfg.Search.FusionLimit,
		RRFK:        cfg.Search.RRFConstant,
	}

	hits, err := r.HybridSearch(cmd.Context(), question, opts)
	if err != nil {
		return nil, err
	}

	ranked := hits
	if !noRerank {
		reranker := buildReranker(cfg)
		candidates := make([]rerank.Candidate, len(hits))
		for i, h := range hits {
			candidates[i] = rerank.Candidate{ID: h.ID, Content: h.Content}
		}
		scored := reranker.Rerank(cmd.Context(), question, candidates, topK)

		byID := make(map[int64]retriever.Result, len(hits))
		for _, h := range hits {
			byID[h.ID] = h
		}
		ranked = ranked[:0]
		for _, sc := range scored {
			if h, ok := byID[sc.ID]; ok {
				h.Score = sc.Score
				ranked = append(ranked, h)
			}
		}
	} else if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]askResult, len(ranked))
	for i, h := range ranked {
		out[i] = askResult{FilePath: h.FilePath, SymbolName: h.SymbolName, StartLine: h.StartLine, Content: h.Content, Score: h.Score}
	}
	return out, nil
}

// buildReranker assembles the mode chain per spec §4.9: remote (if a
// credential is configured), local ONNX cross-encoder, then passthrough.
func buildReranker(cfg config.Config) *rerank.Reranker {
	var modes []rerank.Mode

	if cfg.Rerank.RemoteEndpoint != "" {
		apiKey := os.Getenv(cfg.Rerank.RemoteAPIKeyEnv)
		if apiKey != "" {
			modes = append(modes, rerank.NewRemoteMode(cfg.Rerank.RemoteEndpoint, apiKey, ""))
		}
	}
	if cfg.Rerank.ONNXModelDir != "" {
		if local, err := rerank.NewLocalMode(cfg.Rerank.ONNXModelDir, "", 0); err == nil {
			modes = append(modes, local)
		}
	}
	modes = append(modes, rerank.Passthrough{})

	return rerank.New(modes...)
}

func printResults(cmd *cobra.Command, results []askResult) {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	for i, r := range results {
		location := r.FilePath
		if r.StartLine > 0 {
			location = fmt.Sprintf("%s:%d", r.FilePath, r.StartLine)
		}
		if colorize {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. \033[1m%s\033[0m (score: %.3f)\n", i+1, location, r.Score)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (score: %.3f)\n", i+1, location, r.Score)
		}
		for _, line := range firstLines(r.Content, 3) {
			fmt.Fprintln(cmd.OutOrStdout(), "   "+line)
		}
	}
}

func firstLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
