package mapping

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/ats-tailor/internal/embedding"
	"github.com/jonathan/ats-tailor/internal/types"
	"github.com/jonathan/ats-tailor/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider is a function-field mock of embedding.Provider
type mockProvider struct {
	EmbedFunc func(ctx context.Context, texts []string, kind embedding.Kind) ([][]float64, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Embed(ctx context.Context, texts []string, kind embedding.Kind) ([][]float64, error) {
	return m.EmbedFunc(ctx, texts, kind)
}

func ranked(keywords ...string) []types.RankedKeyword {
	out := make([]types.RankedKeyword, len(keywords))
	for i, kw := range keywords {
		out[i] = types.RankedKeyword{Keyword: kw, Category: types.CategorySkills, Weight: 1}
	}
	return out
}

func sampleProfile() types.CandidateProfile {
	return types.CandidateProfile{
		Experience: []string{"Built Kubernetes operators in Go", "  "},
		Projects:   []string{"Realtime chat with Redis"},
		Skills:     []string{"Kubernetes", "Go"},
		Education:  []string{"BSc Computer Science"},
	}
}

func assertPartition(t *testing.T, keywords []types.RankedKeyword, m types.KeywordMapping) {
	t.Helper()
	seen := map[string]int{}
	for _, list := range [][]types.MappingEntry{m.Matched, m.Partial, m.Missing} {
		for _, e := range list {
			seen[e.Keyword]++
		}
	}
	assert.Len(t, seen, len(keywords))
	for _, rk := range keywords {
		assert.Equal(t, 1, seen[rk.Keyword], "keyword %q", rk.Keyword)
	}
	for _, e := range m.Missing {
		assert.Nil(t, e.Evidence)
		assert.Nil(t, e.Similarity)
	}
}

func TestChunks(t *testing.T) {
	chunks := Chunks(sampleProfile())
	require.Len(t, chunks, 5)
	assert.Equal(t, Chunk{Section: types.SectionExperience, Text: "built kubernetes operators in go"}, chunks[0])
	assert.Equal(t, types.SectionProjects, chunks[1].Section)
	assert.Equal(t, Chunk{Section: types.SectionEducation, Text: "bsc computer science"}, chunks[4])
}

func TestMap_LexicalKubernetesMatched(t *testing.T) {
	mapper := NewMapper(nil, nil, DefaultThresholds(), nil)
	keywords := []types.RankedKeyword{{Keyword: "kubernetes", Category: types.CategoryTools, Weight: 1}}

	mapping, decision, err := mapper.Map(context.Background(), keywords, sampleProfile())
	require.NoError(t, err)

	assert.Equal(t, types.ProviderDecision{Provider: ProviderTFIDF}, decision)
	require.Len(t, mapping.Matched, 1)
	assert.Equal(t, "kubernetes", mapping.Matched[0].Keyword)
	assert.GreaterOrEqual(t, mapping.Matched[0].SimilarityValue(), DefaultMatchThreshold)
	assert.Equal(t, "kubernetes", mapping.Matched[0].EvidenceText())
}

func TestNewMapper_ZeroThresholdsUseDefaults(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), NewMapper(nil, nil, Thresholds{}, nil).thresholds)
	custom := Thresholds{Match: 0.9, Partial: 0.5}
	assert.Equal(t, custom, NewMapper(nil, nil, custom, nil).thresholds)
}

func TestMap_LexicalPartition(t *testing.T) {
	mapper := NewMapper(nil, nil, DefaultThresholds(), nil)
	keywords := ranked("kubernetes", "redis", "terraform", "computer science", "go")

	mapping, _, err := mapper.Map(context.Background(), keywords, sampleProfile())
	require.NoError(t, err)

	assertPartition(t, keywords, mapping)
	assert.Contains(t, mapping.MissingKeywords(), "terraform")
}

func TestMap_EmptyProfileAllMissing(t *testing.T) {
	keywords := ranked("profile", "python")
	for _, provider := range []embedding.Provider{nil, embedding.NewHashingProvider(0)} {
		mapper := NewMapper(provider, nil, DefaultThresholds(), nil)
		mapping, _, err := mapper.Map(context.Background(), keywords, types.CandidateProfile{})
		require.NoError(t, err)

		assert.Empty(t, mapping.Matched)
		assert.Empty(t, mapping.Partial)
		assert.Len(t, mapping.Missing, len(keywords))
	}
}

func TestMap_NoKeywords(t *testing.T) {
	mapper := NewMapper(embedding.NewHashingProvider(0), nil, DefaultThresholds(), nil)
	mapping, decision, err := mapper.Map(context.Background(), nil, sampleProfile())
	require.NoError(t, err)

	assert.Equal(t, "hashing", decision.Provider)
	assert.Empty(t, mapping.Matched)
	assert.Empty(t, mapping.Partial)
	assert.Empty(t, mapping.Missing)
}

func TestMap_HashingProvider(t *testing.T) {
	mapper := NewMapper(embedding.NewHashingProvider(0), nil, DefaultThresholds(), nil)
	keywords := ranked("kubernetes", "terraform", "redis")

	mapping, decision, err := mapper.Map(context.Background(), keywords, sampleProfile())
	require.NoError(t, err)

	assert.Equal(t, "hashing", decision.Provider)
	assert.False(t, decision.Fallback)
	assertPartition(t, keywords, mapping)

	require.NotEmpty(t, mapping.Matched)
	assert.Equal(t, "kubernetes", mapping.Matched[0].Keyword)
	assert.Equal(t, 1.0, mapping.Matched[0].SimilarityValue())
}

func TestMap_ProviderErrorFallsBack(t *testing.T) {
	provider := &mockProvider{
		EmbedFunc: func(_ context.Context, _ []string, _ embedding.Kind) ([][]float64, error) {
			return nil, &embedding.ProviderError{Provider: "mock", Message: "unavailable"}
		},
	}
	mapper := NewMapper(provider, nil, DefaultThresholds(), nil)
	keywords := ranked("kubernetes", "terraform")

	mapping, decision, err := mapper.Map(context.Background(), keywords, sampleProfile())
	require.NoError(t, err)

	assert.Equal(t, ProviderTFIDFFallback, decision.Provider)
	assert.True(t, decision.Fallback)
	assert.Contains(t, decision.Reason, "unavailable")
	assertPartition(t, keywords, mapping)
	require.Len(t, mapping.Matched, 1)
}

func TestMap_CountMismatchFallsBack(t *testing.T) {
	provider := &mockProvider{
		EmbedFunc: func(_ context.Context, texts []string, _ embedding.Kind) ([][]float64, error) {
			return [][]float64{{1, 0}}, nil
		},
	}
	mapper := NewMapper(provider, nil, DefaultThresholds(), nil)

	_, decision, err := mapper.Map(context.Background(), ranked("kubernetes", "go"), sampleProfile())
	require.NoError(t, err)
	assert.True(t, decision.Fallback)
	assert.Contains(t, decision.Reason, "expected")
}

func TestMap_DimensionMismatchFallsBack(t *testing.T) {
	provider := &mockProvider{
		EmbedFunc: func(_ context.Context, texts []string, kind embedding.Kind) ([][]float64, error) {
			dim := 3
			if kind == embedding.KindQuery {
				dim = 4
			}
			out := make([][]float64, len(texts))
			for i := range out {
				out[i] = make([]float64, dim)
				out[i][0] = 1
			}
			return out, nil
		},
	}
	mapper := NewMapper(provider, nil, DefaultThresholds(), nil)

	_, decision, err := mapper.Map(context.Background(), ranked("kubernetes"), sampleProfile())
	require.NoError(t, err)
	assert.True(t, decision.Fallback)
	assert.Contains(t, decision.Reason, "dimension")
}

func TestMap_ThresholdsAndClamping(t *testing.T) {
	// passage vectors are unit axes; the query picks its similarity per keyword
	sims := map[string][]float64{
		"strong": {1, 0},
		"medium": {0.7, 0.71414},
		"weak":   {0.3, 0.95394},
		"none":   {-1, 0},
	}
	provider := &mockProvider{
		EmbedFunc: func(_ context.Context, texts []string, kind embedding.Kind) ([][]float64, error) {
			out := make([][]float64, len(texts))
			for i, text := range texts {
				if kind == embedding.KindPassage {
					out[i] = []float64{1, 0}
					continue
				}
				out[i] = sims[text]
			}
			return out, nil
		},
	}
	profile := types.CandidateProfile{Experience: []string{"only entry"}}
	keywords := ranked("strong", "medium", "weak", "none")
	mapper := NewMapper(provider, nil, DefaultThresholds(), nil)

	mapping, decision, err := mapper.Map(context.Background(), keywords, profile)
	require.NoError(t, err)

	assert.False(t, decision.Fallback)
	assertPartition(t, keywords, mapping)
	require.Len(t, mapping.Matched, 1)
	require.Len(t, mapping.Partial, 1)
	assert.Equal(t, "medium", mapping.Partial[0].Keyword)
	assert.Equal(t, 0.7, mapping.Partial[0].SimilarityValue())
	assert.Equal(t, "only entry", mapping.Partial[0].EvidenceText())
	assert.Equal(t, []string{"weak", "none"}, mapping.MissingKeywords())
}

func TestMap_CustomThresholds(t *testing.T) {
	mapper := NewMapper(nil, nil, Thresholds{Match: 1.01, Partial: 0.5}, nil)
	mapping, _, err := mapper.Map(context.Background(), ranked("kubernetes"), sampleProfile())
	require.NoError(t, err)

	assert.Empty(t, mapping.Matched)
	require.Len(t, mapping.Partial, 1)
}

func TestMap_IndexPerCall(t *testing.T) {
	var created []vectorindex.Index
	factory := func() vectorindex.Index {
		ix := vectorindex.NewMemoryIndex()
		created = append(created, ix)
		return ix
	}
	mapper := NewMapper(embedding.NewHashingProvider(64), factory, DefaultThresholds(), nil)

	for i := 0; i < 2; i++ {
		_, _, err := mapper.Map(context.Background(), ranked("kubernetes"), sampleProfile())
		require.NoError(t, err)
	}
	require.Len(t, created, 2)
	assert.Equal(t, 5, created[0].Len())
	assert.Equal(t, 5, created[1].Len())
}

func TestMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &mockProvider{
		EmbedFunc: func(ctx context.Context, _ []string, _ embedding.Kind) ([][]float64, error) {
			cancel()
			return nil, errors.New("aborted")
		},
	}
	mapper := NewMapper(provider, nil, DefaultThresholds(), nil)

	_, _, err := mapper.Map(ctx, ranked("kubernetes"), sampleProfile())
	assert.ErrorIs(t, err, context.Canceled)
}
