package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the embedding model used when none is configured
const DefaultOpenAIModel = openai.EmbeddingModelTextEmbedding3Large

// OpenAIProvider embeds texts through the OpenAI embeddings API or any
// compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIProvider creates an OpenAI embedding provider. An empty baseURL uses the public API.
func NewOpenAIProvider(apiKey, baseURL, model string, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	embeddingModel := DefaultOpenAIModel
	if model != "" {
		embeddingModel = openai.EmbeddingModel(model)
	}

	return &OpenAIProvider{
		client: openai.NewClient(clientOpts...),
		model:  embeddingModel,
	}, nil
}

// Name implements Provider
func (p *OpenAIProvider) Name() string { return "openai" }

// Model implements Modeled
func (p *OpenAIProvider) Model() string { return string(p.model) }

// Embed implements Provider. The API has no query/passage distinction so kind is ignored.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string, _ Kind) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.F[openai.EmbeddingNewParamsInputUnion](openai.EmbeddingNewParamsInputArrayOfStrings(texts)),
		Model:          openai.F(p.model),
		EncodingFormat: openai.F(openai.EmbeddingNewParamsEncodingFormatFloat),
	})
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: "embeddings request failed", Cause: err}
	}

	out := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || int(item.Index) >= len(out) {
			return nil, &ProviderError{
				Provider: p.Name(),
				Message:  fmt.Sprintf("embedding index %d out of range", item.Index),
			}
		}
		out[item.Index] = item.Embedding
	}

	if _, err := CheckVectors(p.Name(), out, len(texts)); err != nil {
		return nil, err
	}
	return out, nil
}
