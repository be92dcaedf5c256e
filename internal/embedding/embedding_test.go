package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestHashingProvider_Deterministic(t *testing.T) {
	p := NewHashingProvider(0)
	v1, err := p.Embed(context.Background(), []string{"Kubernetes operators", "kubernetes operators!"}, KindPassage)
	require.NoError(t, err)
	require.Len(t, v1, 2)
	assert.Len(t, v1[0], DefaultHashingDims)
	assert.Equal(t, v1[0], v1[1])
	assert.InDelta(t, 1.0, dot(v1[0], v1[0]), 1e-9)
}

func TestHashingProvider_IdenticalTermsHaveUnitSimilarity(t *testing.T) {
	p := NewHashingProvider(64)
	vecs, err := p.Embed(context.Background(), []string{"kubernetes", "Kubernetes"}, KindQuery)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[1]), 1e-9)
}

func TestHashingProvider_EmptyTextIsZeroVector(t *testing.T) {
	p := NewHashingProvider(16)
	vecs, err := p.Embed(context.Background(), []string{"", "!!"}, KindPassage)
	require.NoError(t, err)
	for _, v := range vecs {
		for _, x := range v {
			assert.Equal(t, 0.0, x)
		}
	}
}

func TestHashingProvider_UnrelatedTextsAreDissimilar(t *testing.T) {
	p := NewHashingProvider(0)
	vecs, err := p.Embed(context.Background(), []string{"python data pipelines", "kubernetes"}, KindPassage)
	require.NoError(t, err)
	assert.Less(t, dot(vecs[0], vecs[1]), 0.5)
}

func TestHashingProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashingProvider(0).Embed(ctx, []string{"go"}, KindQuery)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckVectors(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float64
		want    int
		dim     int
		wantErr string
	}{
		{"ok", [][]float64{{1, 0}, {0, 1}}, 2, 2, ""},
		{"none expected", nil, 0, 0, ""},
		{"count mismatch", [][]float64{{1}}, 2, 0, "expected 2 vectors"},
		{"dimension mismatch", [][]float64{{1, 0}, {1}}, 2, 0, "dimension"},
		{"empty vector", [][]float64{{}}, 1, 0, "empty vector"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dim, err := CheckVectors("test", tt.vectors, tt.want)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var perr *ProviderError
				assert.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dim, dim)
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &ProviderError{Provider: "openai", Message: "request failed", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "embedding provider openai: request failed: timeout", err.Error())
}

func TestGeminiTaskType(t *testing.T) {
	assert.Equal(t, genai.TaskTypeRetrievalQuery, geminiTaskType(KindQuery))
	assert.Equal(t, genai.TaskTypeRetrievalDocument, geminiTaskType(KindPassage))
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.ErrorContains(t, err, "API key is required")
}

func TestToFloat64(t *testing.T) {
	out := toFloat64([]float32{0.5, -1})
	assert.Equal(t, []float64{0.5, -1}, out)
	assert.False(t, math.IsNaN(out[0]))
}
