package main

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/qir-evidence/internal/adapters/driven/ai"
	"github.com/custodia-labs/qir-evidence/internal/adapters/driven/config/file"
	"github.com/custodia-labs/qir-evidence/internal/adapters/driven/storage/filestore"
	"github.com/custodia-labs/qir-evidence/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/qir-evidence/internal/adapters/driving/cli"
	"github.com/custodia-labs/qir-evidence/internal/core/services"
	"github.com/custodia-labs/qir-evidence/internal/logger"
	"github.com/custodia-labs/qir-evidence/internal/postprocessors/chunker"
)

// evidenceDirName is the evidence root under the data directory.
const evidenceDirName = "evidence"

// wire builds the adapters and services from the configuration directory.
func wire(opts cli.WireOptions) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	configDir := filepath.Dir(configStore.Path())

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	svc := &cli.Services{
		Settings:   settingsService,
		ConfigPath: configStore.Path(),
	}
	if opts.SettingsOnly {
		return svc, func() {}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, err
	}
	if err := settingsService.Validate(); err != nil {
		return nil, nil, err
	}

	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}

	evidenceRepo, err := filestore.New(filepath.Join(dataDir, evidenceDirName))
	if err != nil {
		return nil, nil, fmt.Errorf("open evidence store: %w", err)
	}

	providers, err := ai.NewProviders(&settings.Ollama)
	if err != nil {
		return nil, nil, err
	}

	draftStore, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open draft store: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), services.DefaultSectionTemplates())
	if err != nil {
		_ = draftStore.Close()
		return nil, nil, fmt.Errorf("open prompt store: %w", err)
	}

	evidence := services.NewEvidenceService(evidenceRepo, chunker.New(chunker.WithMaxChars(settings.Chunking.MaxChars)))
	evidence.SetMaxContextWindow(settings.Context.MaxWindow)

	index := services.NewIndexService(evidence, evidenceRepo, providers.Embedder)
	index.SetConcurrency(settings.Index.Concurrency)

	retrieval := services.NewRetrievalService(evidence, index, evidenceRepo, providers.Embedder)

	draft := services.NewDraftService(evidence, providers.Generator, services.DraftConfig{
		Model:    settings.Ollama.GenerationModel,
		Endpoint: providers.BaseURL,
	})
	draft.SetPromptStore(prompts)
	draft.SetDraftStore(draftStore)

	logger.Debug("Data directory: %s", dataDir)
	logger.Debug("Ollama: %s (embed %s, generate %s)", providers.BaseURL,
		settings.Ollama.EmbeddingModel, settings.Ollama.GenerationModel)

	svc.Evidence = evidence
	svc.Index = index
	svc.Retrieval = retrieval
	svc.Draft = draft

	closeFn := func() {
		if err := draftStore.Close(); err != nil {
			logger.Warn("Closing draft store: %v", err)
		}
	}
	return svc, closeFn, nil
}
