package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/domain/services"
	"github.com/ersonp/loremaster/internal/infrastructure/broadcast"
	"github.com/ersonp/loremaster/internal/infrastructure/broadcast/kafka"
	"github.com/ersonp/loremaster/internal/infrastructure/broadcast/ws"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
	"github.com/ersonp/loremaster/internal/infrastructure/editorstate/redis"
	embedder "github.com/ersonp/loremaster/internal/infrastructure/embedder/openai"
	"github.com/ersonp/loremaster/internal/infrastructure/llm/ollama"
	llm "github.com/ersonp/loremaster/internal/infrastructure/llm/openai"
	"github.com/ersonp/loremaster/internal/infrastructure/logging"
	"github.com/ersonp/loremaster/internal/infrastructure/metrics"
	"github.com/ersonp/loremaster/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/loremaster/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config        *config.Config
	Logger        *zap.Logger
	Games         *handlers.GameHandler
	Editor        *handlers.EditorHandler
	Relationships *handlers.RelationshipHandler
	Proposals     *handlers.ProposalHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	engine  *services.EditorialEngine
	worker  *services.EvolutionWorker
	hub     *ws.Hub
	metrics *metrics.Recorder
}

// depsOptions selects how the engine runs.
type depsOptions struct {
	// serve runs generations in the background and fans notifications out
	// to WebSocket subscribers.
	serve bool
}

// withDeps loads config and builds dependencies, then calls the provided function.
// Committed events queued for evolution are processed before it returns.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, depsOptions{}, func(d *internalDeps) error {
		err := fn(&d.Deps)
		d.worker.Drain(ctx)
		return err
	})
}

// withInternalDeps provides access to all dependencies including low-level components.
// It handles cleanup automatically.
func withInternalDeps(ctx context.Context, opts depsOptions, fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warn("closing dependency", zap.Error(cerr))
			}
		}
	}()

	store, err := openStore(ctx, cfg, cwd, logger)
	if err != nil {
		return err
	}
	closers = append(closers, store.Close)

	provider, analyzer, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	memory, err := newMemory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if memory != nil {
		closers = append(closers, memory.Close)
	}

	recorder := metrics.NewRecorder()
	d := &internalDeps{metrics: recorder}

	var sinks []ports.Broadcaster
	if opts.serve {
		d.hub = ws.NewHub(logger)
		closers = append(closers, func() error { d.hub.Close(); return nil })
		sinks = append(sinks, d.hub)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("creating kafka publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		sinks = append(sinks, publisher)
	}

	var narrativeMemory ports.NarrativeMemory
	if memory != nil {
		narrativeMemory = memory
	}
	if !cfg.Editor.Evolution {
		analyzer = nil
	}
	relationshipService := services.NewRelationshipService(store, store)
	queue := services.NewEvolutionQueue(cfg.Editor.EvolutionQueue, recorder, logger)
	d.worker = services.NewEvolutionWorker(queue, narrativeMemory, analyzer, relationshipService, store, logger)

	d.engine = services.NewEditorialEngine(services.EngineDeps{
		Store:          store,
		Provider:       provider,
		Assembler:      services.NewPromptBuilder(store, narrativeMemory, cfg.Editor.RecentEvents, cfg.Editor.RecallLimit, logger),
		Broadcaster:    broadcast.NewFanout(sinks...),
		Metrics:        recorder,
		Observer:       queue,
		Timeout:        cfg.Editor.GenerationTimeout,
		Async:          opts.serve,
		SnapshotEvents: cfg.Editor.SnapshotEvents,
	}, logger)
	closers = append(closers, func() error { d.engine.Wait(); return nil })

	d.Deps = Deps{
		Config:        cfg,
		Logger:        logger,
		Games:         handlers.NewGameHandler(store, services.NewStateService(store, cfg.Editor.SnapshotEvents)),
		Editor:        handlers.NewEditorHandler(d.engine, services.NewPlaybackController(d.engine)),
		Relationships: handlers.NewRelationshipHandler(relationshipService, store),
		Proposals:     handlers.NewProposalHandler(d.worker),
	}

	return fn(d)
}

// openStore opens the SQLite store, with editor state in Redis when configured.
func openStore(ctx context.Context, cfg *config.Config, cwd string, logger *zap.Logger) (ports.Store, error) {
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: cfg.DatabasePath(cwd)})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite repository: %w", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("ensuring sqlite schema: %w", err)
	}
	if cfg.Editor.StateStore != config.StoreRedis {
		return repo, nil
	}

	editorStates, err := redis.NewStore(ctx, cfg.Redis, logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("creating redis editor state store: %w", err)
	}
	return editorStates.Overlay(repo), nil
}

// narrativeClient is what both LLM clients provide.
type narrativeClient interface {
	ports.NarrativeProvider
	ports.EvolutionAnalyzer
}

func newProvider(cfg *config.Config, logger *zap.Logger) (ports.NarrativeProvider, ports.EvolutionAnalyzer, error) {
	var (
		client narrativeClient
		err    error
	)
	switch cfg.LLM.Provider {
	case "ollama":
		client, err = ollama.NewClient(cfg.LLM, logger)
	default:
		client, err = llm.NewClient(cfg.LLM, logger)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("creating llm client: %w", err)
	}
	return client, client, nil
}

// newMemory connects the narrative memory index. It returns nil when
// Qdrant is not configured.
func newMemory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*qdrant.EventIndex, error) {
	if cfg.Qdrant.Host == "" {
		return nil, nil
	}
	emb, err := embedder.NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	index, err := qdrant.NewEventIndex(cfg.Qdrant, emb)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant index: %w", err)
	}
	if err := index.EnsureCollection(ctx, emb.Dimensions()); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("ensuring qdrant collection: %w", err)
	}
	logger.Debug("narrative memory enabled", zap.String("collection", cfg.Qdrant.Collection))
	return index, nil
}

// requireGame returns the --game flag value.
func requireGame() (string, error) {
	if globalGame == "" {
		return "", errors.New("game is required (use --game flag)")
	}
	return globalGame, nil
}
