package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
	embedder "github.com/ersonp/loremaster/internal/infrastructure/embedder/openai"
	"github.com/ersonp/loremaster/internal/infrastructure/vectordb/qdrant"
)

type initFlags struct {
	provider   string
	model      string
	baseURL    string
	qdrantHost string
	qdrantPort int
	stateStore string
	evolution  bool
}

func newInitCmd() *cobra.Command {
	var flags initFlags

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new loremaster workspace",
		Long: `Creates a .loremaster directory with a config file. Without flags the
commented default config is written. With --qdrant-host the narrative
memory collection is created as well (requires OPENAI_API_KEY for embeddings).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.provider, "provider", "", "LLM provider (openai, ollama)")
	cmd.Flags().StringVar(&flags.model, "model", "", "LLM model")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "LLM base URL")
	cmd.Flags().StringVar(&flags.qdrantHost, "qdrant-host", "", "Qdrant host for narrative memory")
	cmd.Flags().IntVar(&flags.qdrantPort, "qdrant-port", 0, "Qdrant gRPC port")
	cmd.Flags().StringVar(&flags.stateStore, "state-store", "", "Editor state store (sqlite, redis)")
	cmd.Flags().BoolVar(&flags.evolution, "evolution", false, "Propose relationship changes after each commit")

	return cmd
}

func runInit(cmd *cobra.Command, flags initFlags) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	var cfg *config.Config
	if cmd.Flags().NFlag() > 0 {
		cfg = flags.apply(config.Default())
	}

	var (
		collections ports.CollectionManager
		vectorSize  uint64
	)
	if cfg != nil && cfg.Qdrant.Host != "" {
		embCfg := cfg.Embedder
		if embCfg.APIKey == "" {
			embCfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		emb, err := embedder.NewEmbedder(embCfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		index, err := qdrant.NewEventIndex(cfg.Qdrant, emb)
		if err != nil {
			return fmt.Errorf("connecting to qdrant: %w", err)
		}
		defer index.Close()
		collections = index
		vectorSize = emb.Dimensions()
	}

	result, err := handlers.NewInitHandler(collections, vectorSize).Handle(ctx, cwd, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", result.ConfigPath)
	fmt.Printf("Database: %s\n", result.DatabasePath)
	if result.CollectionName != "" {
		fmt.Printf("Created Qdrant collection: %s\n", result.CollectionName)
	}
	fmt.Println("Loremaster initialized successfully!")
	return nil
}

func (f initFlags) apply(cfg *config.Config) *config.Config {
	if f.provider != "" {
		cfg.LLM.Provider = f.provider
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.baseURL != "" {
		cfg.LLM.BaseURL = f.baseURL
	}
	if f.qdrantHost != "" {
		cfg.Qdrant.Host = f.qdrantHost
	}
	if f.qdrantPort != 0 {
		cfg.Qdrant.Port = f.qdrantPort
	}
	if f.stateStore != "" {
		cfg.Editor.StateStore = f.stateStore
	}
	if f.evolution {
		cfg.Editor.Evolution = true
	}
	return cfg
}
