package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BadakalaYashwanth/Scrible/internal/answer"
	"github.com/BadakalaYashwanth/Scrible/internal/config"
	"github.com/BadakalaYashwanth/Scrible/internal/embedding"
	"github.com/BadakalaYashwanth/Scrible/internal/events"
	"github.com/BadakalaYashwanth/Scrible/internal/extract"
	"github.com/BadakalaYashwanth/Scrible/internal/generate"
	"github.com/BadakalaYashwanth/Scrible/internal/ingest"
	"github.com/BadakalaYashwanth/Scrible/internal/keyword"
	"github.com/BadakalaYashwanth/Scrible/internal/notebook"
	"github.com/BadakalaYashwanth/Scrible/internal/server"
	"github.com/BadakalaYashwanth/Scrible/internal/storage"
	"github.com/BadakalaYashwanth/Scrible/internal/vector"
	"github.com/BadakalaYashwanth/Scrible/internal/watcher"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("generator_enabled", cfg.Generator.Enabled()),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	srv := server.NewServer(components.Service, components.Hub, cfg, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if components.Relay != nil {
		if err := components.Relay.Start(gctx); err != nil {
			logger.Warn("Redis relay subscribe failed; events stay local", zap.Error(err))
		}
	}
	if cfg.Watch.InboxDir != "" {
		opts := []watcher.Option{
			watcher.WithExtensions(cfg.Watch.Extensions),
			watcher.WithMaxBytes(cfg.Ingestion.MaxUploadBytes),
			watcher.WithLogger(logger),
		}
		inbox, err := watcher.New(cfg.Watch.InboxDir, components.Service, opts...)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if err := inbox.Start(gctx); err != nil {
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
		defer inbox.Stop()
		g.Go(func() error {
			inbox.Sync(gctx)
			return nil
		})
	}

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if werr := components.Scheduler.Wait(drainCtx); werr != nil {
		logger.Warn("ingestion did not drain before shutdown", zap.Error(werr))
	}
	components.SaveIndex(cfg, logger)
	return err
}

// Components holds initialized services.
type Components struct {
	Store      storage.Store
	Embedder   embedding.Embedder
	Index      *vector.MemoryIndex
	Vocabulary *keyword.Vocabulary
	Hub        *events.Hub
	Relay      *events.RedisRelay
	Scheduler  *ingest.Scheduler
	Service    *notebook.Service
}

// Close releases stores and connections.
func (c *Components) Close() {
	if c.Relay != nil {
		_ = c.Relay.Close()
	}
	if c.Vocabulary != nil {
		_ = c.Vocabulary.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// SaveIndex persists the vector index next to a durable store.
func (c *Components) SaveIndex(cfg *config.Config, logger *zap.Logger) {
	if cfg.Storage.Driver != config.DriverSQLite || c.Index == nil {
		return
	}
	if err := c.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverSQLite:
		return storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func outcomeSource(rate float64) ingest.OutcomeSource {
	if rate >= 1 {
		return ingest.AlwaysSucceed
	}
	return ingest.RandomOutcome(rate, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Store = store

	index, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.Index = index
	if cfg.Storage.Driver == config.DriverSQLite {
		if err := index.Load(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	logger.Info("vector index initialized", zap.Int("entries", index.Size()))

	c.Embedder = embedding.NewCachedEmbedder(embedding.NewHashEmbedder(cfg.Embedding.Dimensions), cfg.Embedding.CacheSize)
	c.Vocabulary = keyword.NewVocabulary(logger)

	var gen generate.Generator
	if cfg.Generator.Enabled() {
		client, err := generate.NewOpenAIClient(generate.OpenAIConfig{
			APIKey:            cfg.Generator.APIKey,
			BaseURL:           cfg.Generator.BaseURL,
			Model:             cfg.Generator.Model,
			Timeout:           cfg.Generator.Timeout,
			MaxTokens:         cfg.Generator.MaxTokens,
			Temperature:       cfg.Generator.Temperature,
			RequestsPerSecond: cfg.Generator.RequestsPerSecond,
			Burst:             cfg.Generator.Burst,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		gen = client
		logger.Info("generator enabled", zap.String("model", client.Model()))
	} else {
		logger.Info("generator disabled; using extractive fallbacks")
	}
	summarizer := generate.NewSummarizer(gen,
		generate.WithMaxContentChars(cfg.Ingestion.MaxContentChars),
		generate.WithSummarizerLogger(logger))
	composer := answer.NewComposer(gen,
		answer.WithMaxContextChars(cfg.Ingestion.MaxContentChars),
		answer.WithLogger(logger))

	c.Hub = events.NewHub(
		events.WithLogger(logger),
		events.WithClientBuffer(cfg.Events.ClientBuffer),
		events.WithHeartbeat(cfg.Events.Heartbeat))
	var broadcaster events.Broadcaster = c.Hub
	if cfg.Events.RedisAddr != "" {
		relay, err := events.NewRedisRelay(ctx, cfg.Events.RedisAddr, cfg.Events.RedisChannel, c.Hub, logger)
		if err != nil {
			logger.Warn("Redis unavailable; events stay local", zap.String("addr", cfg.Events.RedisAddr), zap.Error(err))
		} else {
			c.Relay = relay
			broadcaster = relay
		}
	}

	extractor := extract.NewExtractor(
		extract.WithMaxBytes(cfg.Ingestion.MaxUploadBytes),
		extract.WithLogger(logger))
	pipeline := ingest.NewPipeline(store, extractor,
		ingest.WithChunker(ingest.NewChunker(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)),
		ingest.WithEmbeddings(c.Embedder, index),
		ingest.WithVocabulary(c.Vocabulary),
		ingest.WithSummarizer(summarizer),
		ingest.WithOutcomes(outcomeSource(cfg.Ingestion.ReprocessSuccessRate)),
		ingest.WithBroadcaster(broadcaster),
		ingest.WithStageDelay(cfg.Ingestion.StageDelay),
		ingest.WithLogger(logger))
	c.Scheduler = ingest.NewScheduler(pipeline, cfg.Ingestion.MaxConcurrent, logger)

	c.Service = notebook.NewService(store, c.Scheduler,
		notebook.WithComposer(composer),
		notebook.WithSummarizer(summarizer),
		notebook.WithVocabulary(c.Vocabulary),
		notebook.WithEmbeddings(c.Embedder, index),
		notebook.WithBroadcaster(broadcaster),
		notebook.WithLogger(logger))
	return c, nil
}
