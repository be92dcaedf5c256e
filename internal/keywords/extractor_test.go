package keywords

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/ats-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockKeywordProvider is a function-field mock of llm.KeywordProvider
type mockKeywordProvider struct {
	name  string
	calls int
	fn    func(ctx context.Context, text string) (map[string][]string, error)
}

func (m *mockKeywordProvider) Name() string { return m.name }

func (m *mockKeywordProvider) ExtractKeywords(ctx context.Context, text string) (map[string][]string, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx, text)
	}
	return map[string][]string{}, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		keyword  string
		expected types.Category
	}{
		{"led", types.CategoryActionVerbs},
		{"phd", types.CategoryEducation},
		{"computer science", types.CategoryEducation},
		{"kubernetes", types.CategoryTools},
		{"stakeholder", types.CategoryResponsibilities},
		{"python3", types.CategoryTools},
		{"5 years", types.CategoryTools},
		{"built pipelines", types.CategoryResponsibilities},
		{"distributed systems", types.CategorySkills},
		{"Kubernetes", types.CategoryTools},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.keyword))
		})
	}
}

func TestRankTerms_FrequencyAndTies(t *testing.T) {
	ranked := RankTerms("kubernetes docker kubernetes", 10)
	require.NotEmpty(t, ranked)

	assert.Equal(t, "kubernetes", ranked[0].Keyword)
	assert.Equal(t, 1.0, ranked[0].Weight)
	assert.Equal(t, types.CategoryTools, ranked[0].Category)

	// every remaining term appears once: first appearance decides order
	var rest []string
	for _, rk := range ranked[1:] {
		rest = append(rest, rk.Keyword)
		assert.Equal(t, 0.5, rk.Weight)
	}
	assert.Equal(t, []string{"kubernetes docker", "docker", "docker kubernetes"}, rest)
}

func TestRankTerms_TopK(t *testing.T) {
	ranked := RankTerms("alpha beta gamma delta", 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "alpha", ranked[0].Keyword)
	assert.Equal(t, "alpha beta", ranked[1].Keyword)
}

func TestRankTerms_WeightsRounded(t *testing.T) {
	ranked := RankTerms("go go go rust", 10)
	for _, rk := range ranked {
		if rk.Keyword == "rust" {
			assert.Equal(t, 0.333, rk.Weight)
		}
	}
}

func TestRankTerms_Empty(t *testing.T) {
	assert.Empty(t, RankTerms("", 10))
	assert.Empty(t, RankTerms("a b c", 10))
}

func TestExtract_EmptyTextSkipsProvider(t *testing.T) {
	provider := &mockKeywordProvider{name: "mock"}
	extractor := NewExtractor(provider, 0, nil)

	extraction, decision, err := extractor.Extract(context.Background(), "  and the of !! ")
	require.NoError(t, err)

	assert.Empty(t, extraction.RankedKeywords)
	assert.Empty(t, extraction.Keywords.Skills)
	assert.Equal(t, 0, provider.calls)
	assert.Equal(t, types.ProviderDecision{}, decision)
}

func TestExtract_WithoutProvider(t *testing.T) {
	extractor := NewExtractor(nil, 32, zap.NewNop())

	extraction, decision, err := extractor.Extract(context.Background(),
		"Senior Engineer. Kubernetes and Python required. Kubernetes at scale.")
	require.NoError(t, err)

	assert.Empty(t, decision.Provider)
	assert.False(t, decision.Fallback)
	require.NotEmpty(t, extraction.RankedKeywords)
	assert.Equal(t, "kubernetes", extraction.RankedKeywords[0].Keyword)
	assert.Contains(t, extraction.Keywords.Tools, "kubernetes")
	assert.Contains(t, extraction.Keywords.Tools, "python")
}

func TestExtract_MergesProviderBuckets(t *testing.T) {
	provider := &mockKeywordProvider{
		name: "mock",
		fn: func(_ context.Context, _ string) (map[string][]string, error) {
			return map[string][]string{
				"tools":       {"Terraform", "  ", "kubernetes"},
				"soft_skills": {"Mentored juniors", "teamwork"},
			}, nil
		},
	}
	extractor := NewExtractor(provider, 32, nil)

	extraction, decision, err := extractor.Extract(context.Background(), "kubernetes kubernetes platform")
	require.NoError(t, err)

	assert.Equal(t, "mock", decision.Provider)
	assert.False(t, decision.Fallback)
	assert.Equal(t, 1, provider.calls)

	weights := map[string]float64{}
	categories := map[string]types.Category{}
	for _, rk := range extraction.RankedKeywords {
		_, dup := weights[rk.Keyword]
		assert.False(t, dup, "duplicate keyword %q", rk.Keyword)
		weights[rk.Keyword] = rk.Weight
		categories[rk.Keyword] = rk.Category
	}

	assert.Equal(t, 1.0, weights["terraform"])
	assert.Equal(t, types.CategoryTools, categories["terraform"])
	// unknown bucket names are reclassified, never kept
	assert.Equal(t, types.CategoryResponsibilities, categories["mentored juniors"])
	assert.Equal(t, types.CategorySkills, categories["teamwork"])
	assert.Contains(t, extraction.Keywords.Responsibilities, "mentored juniors")

	// kubernetes came from ranking first, so its ranked entry wins
	assert.Equal(t, 1.0, weights["kubernetes"])
	assert.Equal(t, 1, countOf(extraction.Keywords.Tools, "kubernetes"))

	for i := 1; i < len(extraction.RankedKeywords); i++ {
		assert.GreaterOrEqual(t, extraction.RankedKeywords[i-1].Weight, extraction.RankedKeywords[i].Weight)
	}
}

func TestExtract_ProviderErrorFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	provider := &mockKeywordProvider{
		name: "gemini",
		fn: func(_ context.Context, _ string) (map[string][]string, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	extractor := NewExtractor(provider, 32, zap.New(core))

	extraction, decision, err := extractor.Extract(context.Background(), "python python sql")
	require.NoError(t, err)

	assert.True(t, decision.Fallback)
	assert.Equal(t, "gemini", decision.Provider)
	assert.Contains(t, decision.Reason, "quota exceeded")
	assert.Equal(t, "python", extraction.RankedKeywords[0].Keyword)
	assert.Equal(t, 1, logs.Len())
}

func TestExtract_EmptyProviderResponse(t *testing.T) {
	provider := &mockKeywordProvider{name: "gemini"}
	extractor := NewExtractor(provider, 32, nil)

	_, decision, err := extractor.Extract(context.Background(), "python")
	require.NoError(t, err)

	assert.True(t, decision.Fallback)
	assert.Equal(t, ReasonEmptyResponse, decision.Reason)
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &mockKeywordProvider{
		name: "gemini",
		fn: func(ctx context.Context, _ string) (map[string][]string, error) {
			cancel()
			return nil, ctx.Err()
		},
	}
	extractor := NewExtractor(provider, 32, nil)

	_, _, err := extractor.Extract(ctx, "python")
	assert.ErrorIs(t, err, context.Canceled)
}

func countOf(items []string, want string) int {
	n := 0
	for _, item := range items {
		if item == want {
			n++
		}
	}
	return n
}
