package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/jonathan/ats-tailor/internal/types"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestPrintExtraction(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	extraction := &types.KeywordExtraction{
		Keywords: types.KeywordBuckets{Tools: []string{"kubernetes"}, Skills: []string{"distributed systems"}},
		RankedKeywords: []types.RankedKeyword{
			{Keyword: "kubernetes", Category: types.CategoryTools, Weight: 1},
			{Keyword: "distributed systems", Category: types.CategorySkills, Weight: 0.5},
		},
	}

	p.PrintExtraction(extraction, types.ProviderDecision{Provider: "gemini", Fallback: true, Reason: "empty_response"})
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED KEYWORDS")
	assert.Contains(t, output, "kubernetes [tools] 1.000")
	assert.Contains(t, output, "fallback: empty_response")
	assert.Contains(t, output, "action_verbs:")
}

func TestPrintExtraction_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintExtraction(nil, types.ProviderDecision{})

	assert.Empty(t, buf.String())
}

func TestPrintMapping(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	mapping := &types.KeywordMapping{
		Matched: []types.MappingEntry{{Keyword: "go", Evidence: ptr("built go services"), Similarity: ptr(0.91)}},
		Partial: []types.MappingEntry{},
		Missing: []types.MappingEntry{{Keyword: "terraform"}},
	}

	p.PrintMapping(mapping, types.ProviderDecision{Provider: "TFIDF_FALLBACK", Fallback: true})
	output := buf.String()

	assert.Contains(t, output, "KEYWORD MAPPING")
	assert.Contains(t, output, "TFIDF_FALLBACK (fallback)")
	assert.Contains(t, output, "Matched: 1  Partial: 0  Missing: 1")
	assert.Contains(t, output, "go (0.91)")
	assert.Contains(t, output, "terraform")
}

func TestPrintMapping_TruncatesList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	mapping := &types.KeywordMapping{}
	for i := 0; i < 8; i++ {
		mapping.Missing = append(mapping.Missing, types.MappingEntry{Keyword: fmt.Sprintf("kw%d", i)})
	}

	p.PrintMapping(mapping, types.ProviderDecision{Provider: "TFIDF"})
	output := buf.String()

	assert.Contains(t, output, "kw4")
	assert.NotContains(t, output, "kw5")
	assert.Contains(t, output, "... and 3 more gaps")
}

func TestPrintScore(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	score := &types.ATSScore{
		Score:        6.42,
		Breakdown:    types.ATSBreakdown{KeywordCoverage: 5.5, Conciseness: 10},
		Explanations: []string{"Keyword coverage below target; add missing skills."},
	}

	p.PrintScore("", score)
	output := buf.String()

	assert.Contains(t, output, "ATS SCORE")
	assert.Contains(t, output, "Score: 6.42 / 10")
	assert.Contains(t, output, "Keyword coverage: 5.50")
	assert.Contains(t, output, "Keyword coverage below target")
}

func TestPrintOptimizer(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.OptimizerResult{
		FinalScore: 7.1,
		Iterations: []types.OptimizerIteration{
			{Iteration: 1, ScoreBefore: 6.0, ScoreAfter: 7.1, Changes: []string{"Inserted missing keyword 'go' into skills"}},
		},
	}

	p.PrintOptimizer(result)
	output := buf.String()

	assert.Contains(t, output, "OPTIMIZER")
	assert.Contains(t, output, "#1  6.00 -> 7.10")
	assert.Contains(t, output, "Inserted missing keyword 'go'")
}

func TestPrintRenderer_Overflow(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.RendererResult{
		PageCount:      2,
		Error:          "overflow",
		RenderAttempts: []types.RenderAttempt{{Attempt: 1, PageCount: 2}},
		FinalTrims:     []string{"Dropped project bullet: 'x...'"},
	}

	p.PrintRenderer(result)
	output := buf.String()

	assert.Contains(t, output, "Status: overflow  Pages: 2")
	assert.Contains(t, output, "Attempt 1: 2 page(s), 0 trim(s)")
	assert.Contains(t, output, "Dropped project bullet")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Len(t, lines, 5)
	assert.Contains(t, lines[3], "...")
	assert.NotContains(t, lines[3], strings.Repeat("x", boxWidth))
}
