// Package embedding turns text into dense vectors for semantic keyword mapping.
// Providers are interchangeable; callers treat the vectors as opaque signals.
package embedding

import (
	"context"
	"fmt"
)

// Kind tells a provider whether texts are search queries or indexed passages
type Kind string

// Embedding kinds
const (
	KindQuery   Kind = "query"
	KindPassage Kind = "passage"
)

// Provider embeds a batch of texts, returning one vector per text in order
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string, kind Kind) ([][]float64, error)
}

// Modeled is implemented by providers whose vectors depend on a configured
// model. Cached vectors are keyed by it.
type Modeled interface {
	Model() string
}

// ProviderError reports a failed or malformed embedding call
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding provider %s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CheckVectors verifies that vectors holds want non-empty vectors of equal
// dimension and returns that dimension.
func CheckVectors(provider string, vectors [][]float64, want int) (int, error) {
	if len(vectors) != want {
		return 0, &ProviderError{
			Provider: provider,
			Message:  fmt.Sprintf("expected %d vectors, got %d", want, len(vectors)),
		}
	}
	if want == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, &ProviderError{Provider: provider, Message: "empty vector"}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, &ProviderError{
				Provider: provider,
				Message:  fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), dim),
			}
		}
	}
	return dim, nil
}
