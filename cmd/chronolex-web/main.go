package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scrypster/chronolex/internal/config"
	"github.com/scrypster/chronolex/internal/llm"
	"github.com/scrypster/chronolex/internal/notify"
	"github.com/scrypster/chronolex/internal/server"
	"github.com/scrypster/chronolex/internal/storage"
	"github.com/scrypster/chronolex/internal/storage/postgres"
	"github.com/scrypster/chronolex/internal/storage/sqlite"
	"github.com/scrypster/chronolex/internal/timeline"
	"github.com/scrypster/chronolex/web/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.LoadKeywordOverrides(); err != nil {
		log.Fatalf("Failed to load keyword overrides: %v", err)
	}

	providerCfg := llm.ProviderConfig{
		Provider: cfg.Delegate.Provider,
		Model:    cfg.Delegate.Model,
		BaseURL:  cfg.Delegate.OllamaURL,
	}
	switch cfg.Delegate.Provider {
	case "openai":
		providerCfg.APIKey = cfg.Delegate.OpenAIKey
	case "anthropic":
		providerCfg.APIKey = cfg.Delegate.AnthropicKey
	}

	// Initialize storage
	var store storage.Store
	var searcher handlers.EventSearcher
	switch cfg.Storage.Engine {
	case "postgres":
		embedder, err := llm.NewEmbeddingGenerator(providerCfg, cfg.Delegate.EmbeddingModel)
		if err != nil {
			log.Fatalf("Failed to initialize embedding generator: %v", err)
		}
		pgStore, err := postgres.NewStore(postgres.Config{DSN: cfg.Storage.PostgresDSN}, embedder)
		if err != nil {
			log.Fatalf("Failed to initialize postgres storage: %v", err)
		}
		store = pgStore
		if embedder != nil {
			searcher = pgStore
		}
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		sqlStore, err := sqlite.NewStore(cfg.Storage.DataPath + "/chronolex.db")
		if err != nil {
			log.Fatalf("Failed to initialize sqlite storage: %v", err)
		}
		store = sqlStore
	}
	defer store.Close()

	// Optional reasoning delegate
	var delegate llm.TextGenerator
	if cfg.Delegate.Enabled {
		delegate, err = llm.NewTextGenerator(providerCfg)
		if err != nil {
			log.Fatalf("Failed to initialize delegate: %v", err)
		}
		log.Printf("Delegate enabled: %s (%s)", cfg.Delegate.Provider, delegate.GetModel())
	}

	// Build pipeline
	builderCfg := timeline.Config{
		NumWorkers:  cfg.Builder.NumWorkers,
		UnitTimeout: cfg.Builder.UnitTimeout,
		DelegateRPS: cfg.Builder.DelegateRPS,
		CacheSize:   cfg.Builder.CacheSize,
	}
	builder, err := timeline.NewBuilder(builderCfg, timeline.NewDateResolver(), delegate)
	if err != nil {
		log.Fatalf("Failed to initialize builder: %v", err)
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional intake watcher
	if cfg.Intake.Enabled {
		watcher := notify.NewIntakeWatcher(cfg.Intake.Dir, store)
		if err := watcher.Start(); err != nil {
			log.Fatalf("Failed to start intake watcher: %v", err)
		}
		defer watcher.Stop()
		log.Printf("Intake watcher running on %s", cfg.Intake.Dir)
	}

	// Start server
	addr, _ := server.Start(ctx, cfg, store, builder, searcher)
	log.Printf("Chronolex running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
