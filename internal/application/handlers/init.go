// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
)

// InitHandler handles workspace initialization.
type InitHandler struct {
	collectionManager ports.CollectionManager
	vectorSize        uint64
}

// NewInitHandler creates a new init handler. collectionManager may be nil
// when narrative memory is disabled.
func NewInitHandler(collectionManager ports.CollectionManager, vectorSize uint64) *InitHandler {
	return &InitHandler{
		collectionManager: collectionManager,
		vectorSize:        vectorSize,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath     string
	DatabasePath   string
	CollectionName string
}

// Handle writes the config and prepares the memory collection. A nil cfg
// writes the commented default file.
func (h *InitHandler) Handle(ctx context.Context, basePath string, cfg *config.Config) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("loremaster already initialized in %s", basePath)
	}

	if cfg == nil {
		if err := config.WriteDefault(basePath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	} else {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := config.Write(basePath, cfg); err != nil {
			return nil, fmt.Errorf("writing config: %w", err)
		}
	}

	loaded, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	result := &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		DatabasePath: loaded.DatabasePath(basePath),
	}
	if h.collectionManager != nil {
		if err := h.collectionManager.EnsureCollection(ctx, h.vectorSize); err != nil {
			return nil, fmt.Errorf("creating collection: %w", err)
		}
		result.CollectionName = loaded.Qdrant.Collection
	}
	return result, nil
}
