package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the embedding model used when none is configured
const DefaultGeminiModel = "text-embedding-004"

// geminiBatchLimit is the most contents one BatchEmbedContents call accepts
const geminiBatchLimit = 100

// GeminiProvider embeds texts with a Gemini embedding model
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini embedding provider
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: "failed to create client", Cause: err}
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Name implements Provider
func (p *GeminiProvider) Name() string { return "gemini" }

// Model implements Modeled
func (p *GeminiProvider) Model() string { return p.model }

// Embed implements Provider
func (p *GeminiProvider) Embed(ctx context.Context, texts []string, kind Kind) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	em := p.client.EmbeddingModel(p.model)
	em.TaskType = geminiTaskType(kind)

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))

		batch := em.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, &ProviderError{Provider: p.Name(), Message: "batch embed failed", Cause: err}
		}
		for _, e := range res.Embeddings {
			if e == nil {
				return nil, &ProviderError{Provider: p.Name(), Message: "missing embedding in response"}
			}
			out = append(out, toFloat64(e.Values))
		}
	}

	if _, err := CheckVectors(p.Name(), out, len(texts)); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func geminiTaskType(kind Kind) genai.TaskType {
	if kind == KindQuery {
		return genai.TaskTypeRetrievalQuery
	}
	return genai.TaskTypeRetrievalDocument
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
