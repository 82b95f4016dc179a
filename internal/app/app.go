// Package app assembles the application container from configuration. Tests
// and both binaries build through the same constructor.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/banking"
	"github.com/aibanking/conversation-core/internal/cache"
	"github.com/aibanking/conversation-core/internal/config"
	"github.com/aibanking/conversation-core/internal/llm"
	"github.com/aibanking/conversation-core/internal/service"
	"github.com/aibanking/conversation-core/internal/storage"
)

// App is the wired application container.
type App struct {
	Config   *config.Config
	Pipeline *service.Pipeline
	Cache    cache.Cache
	Store    storage.Store
	Banking  banking.Service
}

// Build constructs every component from configuration. "mock" cache and
// database URLs select the in-memory implementations.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	catalog, err := service.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("build intent catalog: %w", err)
	}

	client := llm.New(llm.Options{
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		APIKey:           cfg.LLMAPIKey,
		BaseURL:          cfg.LLMBaseURL,
		Timeout:          cfg.LLMTimeout,
		FallbackProvider: cfg.LLMFallbackProvider,
		FallbackModel:    cfg.LLMFallbackModel,
	})
	log.Info().Str("provider", client.Name()).Msg("LLM provider ready")

	var kv cache.Cache
	if cfg.RedisURL == "" || cfg.RedisURL == "mock" {
		kv = cache.NewMemory()
	} else {
		kv, err = cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	var store storage.Store
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == "mock" {
		store = storage.NewMemory()
	} else {
		store, err = storage.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}

	bank := banking.NewMock(cfg.HomeBankName, cfg.HomeCountry)

	recipients := service.NewRecipientResolution(bank, cfg.HomeBankName, cfg.HomeCountry, bank.HomeCustomerID())
	enricher := service.NewEnricher(service.NewAccountResolution(bank), recipients)

	pipeline := service.NewPipeline(service.PipelineDeps{
		Catalog:    catalog,
		Classifier: service.NewClassifier(catalog, client, kv, cfg.IntentCacheTTL),
		Extractor:  service.NewExtractor(client),
		Enricher:   enricher,
		Recipients: recipients,
		Responder:  service.NewResponder(),
		State:      service.NewStateManager(kv, store, cfg.SessionTTL),
		Operations: service.NewOperations(bank),
		Banking:    bank,
	})

	return &App{
		Config:   cfg,
		Pipeline: pipeline,
		Cache:    kv,
		Store:    store,
		Banking:  bank,
	}, nil
}
