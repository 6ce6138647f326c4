package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"answer-orchestrator/internal/adapter/cohere"
	"answer-orchestrator/internal/adapter/memindex"
	"answer-orchestrator/internal/adapter/repository"
	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra"
	"answer-orchestrator/internal/infra/config"
	"answer-orchestrator/internal/infra/ratelimit"
	"answer-orchestrator/internal/usecase"
)

var (
	version = "dev"

	// Global flags
	verbose  bool
	inMemory bool

	// Run command flags
	forceRecreate bool
	concurrency   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Ingest documents into the knowledge collection",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Chunk, embed, and index the given documents",
	Long: `Chunk, embed, and index the given text documents.

Re-running over an unchanged document is a no-op at the storage level:
chunk identifiers derive from content and position, so existing rows are
overwritten with identical values.

Examples:
  # Index one document
  ingest run knowledge.txt

  # Rebuild the collection from scratch
  ingest run --force-recreate knowledge.txt

  # Exercise the pipeline without Postgres
  ingest run --memory knowledge.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the indexed chunk count",
	RunE:  showStatus,
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the knowledge collection",
	RunE:  dropCollection,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "memory", false, "use the in-memory index instead of Postgres")

	runCmd.Flags().BoolVar(&forceRecreate, "force-recreate", false, "clear the collection before indexing")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent embed batches")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dropCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func newIndex(ctx context.Context, cfg *config.Config) (domain.VectorIndex, func(), error) {
	if inMemory {
		return memindex.New(), func() {}, nil
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to db: %w", err)
	}
	index := repository.NewPgVectorIndex(pool)
	if err := index.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return index, pool.Close, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	index, closeIndex, err := newIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	embedGate := ratelimit.NewGate(cfg.EmbedMinInterval)
	embedder := cohere.NewEmbedder(
		cfg.CohereBaseURL, cfg.CohereAPIKey, cfg.EmbedModel,
		cfg.EmbedDimension, cfg.EmbedMaxBatch,
		embedGate, domain.DefaultRetryPolicy(), logger,
	)
	chunker := domain.NewChunker(domain.DefaultChunkerConfig())
	ingestUsecase := usecase.NewIndexKnowledgeUsecase(
		index,
		chunker,
		embedder,
		cfg.CollectionName,
		cfg.EmbedMaxBatch,
		concurrency,
		logger,
	)

	// Only the first document may force a rebuild, otherwise each file would
	// wipe the previous one.
	force := forceRecreate
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		source := filepath.Base(path)

		output, err := ingestUsecase.Execute(ctx, usecase.IndexKnowledgeInput{
			Source:        source,
			Text:          string(data),
			ForceRecreate: force,
		})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		force = false

		fmt.Printf("%s: %d chunks indexed (collection size %d, %s)\n",
			source, output.ChunksIndexed, output.CollectionSize, output.Elapsed.Round(time.Millisecond))
		for contentType, n := range output.CountByType {
			fmt.Printf("  %-16s %d\n", contentType, n)
		}
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	index, closeIndex, err := newIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	count, err := index.Count(ctx, cfg.CollectionName)
	if err != nil {
		return fmt.Errorf("count collection %s: %w", cfg.CollectionName, err)
	}
	fmt.Printf("collection %s: %d chunks\n", cfg.CollectionName, count)
	return nil
}

func dropCollection(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	index, closeIndex, err := newIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	if err := index.DropCollection(ctx, cfg.CollectionName); err != nil {
		return fmt.Errorf("drop collection %s: %w", cfg.CollectionName, err)
	}
	fmt.Printf("collection %s dropped\n", cfg.CollectionName)
	return nil
}
