package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/config"
	dbRedis "github.com/jetkart/jetkart/internal/db/redis"
	logpkg "github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/metrics"
	collectionrepo "github.com/jetkart/jetkart/internal/repository/collection"
	corpusrepo "github.com/jetkart/jetkart/internal/repository/corpus"
	searchrepo "github.com/jetkart/jetkart/internal/repository/search"
	chiTransport "github.com/jetkart/jetkart/internal/transport/chi"
	openaiTransport "github.com/jetkart/jetkart/internal/transport/openai"
	askuc "github.com/jetkart/jetkart/internal/usecase/ask"
	classifyuc "github.com/jetkart/jetkart/internal/usecase/classify"
	filtersuc "github.com/jetkart/jetkart/internal/usecase/filters"
	healthuc "github.com/jetkart/jetkart/internal/usecase/health"
	ingestuc "github.com/jetkart/jetkart/internal/usecase/ingest"
	rerankuc "github.com/jetkart/jetkart/internal/usecase/rerank"
	retrieveuc "github.com/jetkart/jetkart/internal/usecase/retrieve"
	"github.com/jetkart/jetkart/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting jetkart API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterLLMMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:         cfg.Chat.APIKey,
		BaseURL:        cfg.Chat.BaseURL,
		Model:          cfg.Chat.Model,
		BreakerTimeout: time.Duration(cfg.Chat.BreakerTimeoutSec) * time.Second,
		Logger:         logger,
	})
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("chat_model", cfg.Chat.Model),
	)

	collRepo := collectionrepo.New(store).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	corpusRepo := corpusrepo.New(store)
	searchRepo := searchrepo.New(store)

	classifySvc := classifyuc.New(completer)
	filtersSvc := filtersuc.New(completer)
	retrieveSvc := retrieveuc.New(searchRepo, embedder)
	rerankSvc := rerankuc.New(completer)
	answerer := askuc.NewAnswerer(completer)
	askSvc := askuc.New(classifySvc, filtersSvc, retrieveSvc, rerankSvc, answerer, collRepo, askuc.Config{
		RetrieveK:    cfg.Pipeline.RetrieveK,
		RerankTopN:   cfg.Pipeline.RerankTopN,
		QueryTimeout: time.Duration(cfg.Pipeline.QueryTimeoutSec) * time.Second,
	})
	ingestSvc := ingestuc.New(corpusRepo, collRepo, embedder)
	healthSvc := healthuc.New(store, embedder, completer)

	server := chiTransport.NewServer(
		collRepo, ingestSvc, askSvc, healthSvc, cfg.Pipeline.ChunkMaxChars, logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
