package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/advice"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/config"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/extract"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/llm"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/monitoring"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/pipeline"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/registry"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/store"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/telemetry"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/validate"
	anthropicpkg "github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/pkg/anthropic"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/pkg/gemini"
)

// pipelineEnv holds the initialized store, chain and pipeline needed by the
// serve/advise/batch commands.
type pipelineEnv struct {
	Store    store.Store
	Chain    *advice.Chain
	Monitor  *monitoring.Collector
	Pipeline *pipeline.Pipeline
	shutdown telemetry.Shutdown
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
	if pe.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pe.shutdown(ctx); err != nil {
			zap.L().Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
}

// buildProviders returns the generation providers for the configured keys, in
// priority order. A missing key leaves that provider out.
func buildProviders(c *config.Config) []llm.Provider {
	var providers []llm.Provider

	if c.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(c.Anthropic.Key)
		providers = append(providers, llm.NewAnthropic(client, c.Anthropic.Model, c.Anthropic.MaxTokens))
	} else {
		zap.L().Warn("AGRI_ANTHROPIC_KEY not set, primary tier disabled")
	}

	if c.Gemini.Key != "" {
		client := gemini.NewClient(c.Gemini.Key,
			gemini.WithBaseURL(c.Gemini.BaseURL),
			gemini.WithModel(c.Gemini.Model),
			gemini.WithRequestsPerMinute(c.Gemini.RequestsPerMinute),
		)
		providers = append(providers, llm.NewGemini(client))
	} else {
		zap.L().Warn("AGRI_GEMINI_KEY not set, secondary tier disabled")
	}

	return providers
}

// maxTokensFor returns the reply budget configured for the named provider.
// Zero leaves the provider's own default in place.
func maxTokensFor(c *config.Config, provider string) int {
	switch provider {
	case "anthropic":
		return c.Anthropic.MaxTokens
	case "gemini":
		return c.Gemini.MaxTokens
	default:
		return 0
	}
}

// buildChain puts the provider tiers first and always ends with the simulator.
func buildChain(c *config.Config, providers []llm.Provider) (*advice.Chain, error) {
	tiers := make([]advice.Tier, 0, len(providers)+1)
	for _, p := range providers {
		tiers = append(tiers, advice.NewProviderTier(p, c.Advice.Temperature, maxTokensFor(c, p.Name())))
	}
	tiers = append(tiers, advice.NewSimulator())

	breakers := resilience.NewServiceBreakers(
		resilience.BreakerFromConfig(c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs),
	)
	return advice.NewChain(tiers,
		advice.WithTierTimeout(time.Duration(c.Advice.TimeoutSecs)*time.Second),
		advice.WithBreakers(breakers),
	)
}

// buildExtractor uses the first configured provider. With none, extraction
// always falls back to the default query.
func buildExtractor(c *config.Config, providers []llm.Provider) (*extract.Service, error) {
	var provider llm.Provider
	if len(providers) > 0 {
		provider = providers[0]
	}

	opts := []extract.Option{extract.WithRetry(resilience.RetryFromAttempts(c.Extraction.MaxAttempts))}
	if c.Extraction.Model != "" {
		opts = append(opts, extract.WithModel(c.Extraction.Model))
	}
	if c.Extraction.ExemplarsPath != "" {
		ex, err := registry.LoadExemplarsFromFile(c.Extraction.ExemplarsPath)
		if err != nil {
			return nil, eris.Wrap(err, "load exemplars")
		}
		opts = append(opts, extract.WithExemplars(ex))
	}
	return extract.New(provider, opts...), nil
}

// initPipeline sets up telemetry, the checkpoint store, providers and the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{shutdown: shutdown}

	st, err := store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init store")
	}
	env.Store = st

	providers := buildProviders(cfg)

	chain, err := buildChain(cfg, providers)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Chain = chain

	extractor, err := buildExtractor(cfg, providers)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Monitor = monitoring.NewCollector(chain)
	env.Pipeline = pipeline.New(extractor, validate.New(), env.Monitor, pipeline.WithStore(st))

	zap.L().Info("pipeline ready",
		zap.Strings("tiers", chain.Tiers()),
		zap.String("store", cfg.Store.Driver),
	)
	return env, nil
}
