package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"answer-orchestrator/internal/adapter/cohere"
	"answer-orchestrator/internal/adapter/httpapi"
	"answer-orchestrator/internal/adapter/mistral"
	"answer-orchestrator/internal/adapter/repository"
	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra"
	"answer-orchestrator/internal/infra/config"
	"answer-orchestrator/internal/infra/logger"
	"answer-orchestrator/internal/infra/ratelimit"
	"answer-orchestrator/internal/usecase"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	// 3. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Initialize Adapters
	index := repository.NewPgVectorIndex(dbPool)
	if err := index.EnsureSchema(context.Background()); err != nil {
		log.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	embedGate := ratelimit.NewGate(cfg.EmbedMinInterval)
	embedder := cohere.NewEmbedder(
		cfg.CohereBaseURL, cfg.CohereAPIKey, cfg.EmbedModel,
		cfg.EmbedDimension, cfg.EmbedMaxBatch,
		embedGate, domain.DefaultRetryPolicy(), log,
	)
	reranker := cohere.NewReranker(cfg.CohereBaseURL, cfg.CohereAPIKey, cfg.RerankModel, cfg.RerankTimeout, log)
	generator := mistral.NewGenerator(cfg.MistralBaseURL, cfg.MistralAPIKey, cfg.MistralModel)

	// 5. Initialize Usecases
	chunker := domain.NewChunker(domain.DefaultChunkerConfig())
	indexUsecase := usecase.NewIndexKnowledgeUsecase(
		index,
		chunker,
		embedder,
		cfg.CollectionName,
		cfg.EmbedMaxBatch,
		cfg.IngestConcurrency,
		log,
	)
	retrieveUsecase := usecase.NewRetrieveContextUsecase(
		index,
		embedder,
		reranker,
		cfg.CollectionName,
		usecase.RerankConfig{Enabled: cfg.RerankEnabled, Timeout: cfg.RerankTimeout},
		log,
	)
	generateGate := ratelimit.NewGate(cfg.GenerateMinGap)
	answerUsecase := usecase.NewAnswerQuestionUsecase(
		retrieveUsecase,
		usecase.NewPromptBuilder(),
		generator,
		usecase.NewAnswerFormatter(),
		usecase.NewTokenBudget(cfg.ContextTokenBudget),
		generateGate,
		domain.DefaultRetryPolicy(),
		cfg.TopKInitial,
		cfg.TopNFinal,
		cfg.GenerateMaxTokens,
		cfg.AnswerConcurrency,
		log,
	)

	// 6. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// 7. Register Handlers
	handler := httpapi.NewHandler(indexUsecase, retrieveUsecase, answerUsecase, index, cfg.CollectionName)
	handler.Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 8. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
