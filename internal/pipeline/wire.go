package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/ats-tailor/internal/config"
	"github.com/jonathan/ats-tailor/internal/embedding"
	"github.com/jonathan/ats-tailor/internal/keywords"
	"github.com/jonathan/ats-tailor/internal/latex"
	"github.com/jonathan/ats-tailor/internal/llm"
	"github.com/jonathan/ats-tailor/internal/mapping"
	"github.com/jonathan/ats-tailor/internal/optimizer"
	"github.com/jonathan/ats-tailor/internal/rendering"
	"github.com/jonathan/ats-tailor/internal/storage"
	"github.com/jonathan/ats-tailor/internal/vectorindex"
)

// embeddingCacheTTL bounds how long cached vectors live in Redis
const embeddingCacheTTL = 7 * 24 * time.Hour

// Build assembles a Pipeline from configuration. The returned cleanup closes
// every client Build opened and must be called once the pipeline is done.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Pipeline, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if c, ok := embedder.(interface{ Close() error }); ok {
		closers = append(closers, func() { _ = c.Close() })
	}

	if embedder != nil && cfg.RedisURL != "" {
		client, err := embedding.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, continuing without embedding cache", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			embedder = embedding.NewCachedProvider(embedder, embedding.NewRedisCache(client, "", embeddingCacheTTL), logger)
		}
	}

	var keywordProvider llm.KeywordProvider
	if cfg.LLMProvider == config.LLMGemini {
		client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.GeminiAPIKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		keywordProvider = llm.NewGeminiKeywordProvider(client, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	}

	var store storage.ArtifactStore
	if cfg.DatabaseURL != "" {
		pg, err := storage.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect artifact database: %w", err)
		}
		closers = append(closers, pg.Close)
		store = pg
	} else {
		local, err := storage.NewLocalStore(cfg.ArtifactDir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("storing artifacts on disk", zap.String("root", local.Root()))
		store = local
	}

	thresholds := mapping.Thresholds{Match: cfg.MatchThreshold, Partial: cfg.PartialThreshold}
	mapper := mapping.NewMapper(embedder, vectorindex.NewMemoryFactory(), thresholds, logger)
	assembler := rendering.NewAssembler(cfg.LineBudget)
	compiler := latex.NewPDFLaTeX(cfg.LaTeXCompiler, time.Duration(cfg.CompileTimeoutSeconds)*time.Second)

	p := New(Components{
		Extractor: keywords.NewExtractor(keywordProvider, cfg.TopK, logger),
		Mapper:    mapper,
		Optimizer: optimizer.New(mapper, cfg.MaxOptimizerIterations, cfg.TargetScore, logger),
		Assembler: assembler,
		Renderer:  rendering.NewRenderer(assembler, compiler, latex.NewToolPageCounter(), cfg.MaxRenderAttempts, logger),
		Store:     store,
		Logger:    logger,
	})

	logger.Info("pipeline ready",
		zap.String("embedding_provider", cfg.EmbeddingProvider),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Bool("embedding_cache", cfg.RedisURL != ""),
		zap.Bool("database_store", cfg.DatabaseURL != ""))
	return p, cleanup, nil
}

// buildEmbedder returns nil for the "none" provider so mapping stays lexical
func buildEmbedder(ctx context.Context, cfg config.Config) (embedding.Provider, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingNone:
		return nil, nil
	case config.EmbeddingGemini:
		p, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini embedding provider: %w", err)
		}
		return p, nil
	case config.EmbeddingOpenAI:
		p, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedding provider: %w", err)
		}
		return p, nil
	default:
		return embedding.NewHashingProvider(0), nil
	}
}

// llmConfig applies the configured model override to the keyword extraction tier
func llmConfig(cfg config.Config) *llm.Config {
	c := llm.DefaultConfig()
	if cfg.LLMModel != "" {
		c = c.WithModel(llm.TierLite, cfg.LLMModel)
	}
	return c
}
