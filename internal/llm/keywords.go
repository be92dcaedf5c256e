package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/ats-tailor/internal/prompts"
	"github.com/jonathan/ats-tailor/internal/schemas"
	rootschemas "github.com/jonathan/ats-tailor/schemas"
)

// KeywordProvider returns raw keyword buckets for a job description.
// Bucket names are not trusted; callers coerce them into fixed categories.
type KeywordProvider interface {
	Name() string
	ExtractKeywords(ctx context.Context, text string) (map[string][]string, error)
}

// NoOpKeywordProvider never contributes keywords
type NoOpKeywordProvider struct{}

// Name implements KeywordProvider
func (NoOpKeywordProvider) Name() string { return "noop" }

// ExtractKeywords implements KeywordProvider
func (NoOpKeywordProvider) ExtractKeywords(context.Context, string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

// GeminiKeywordProvider asks a Client for keyword buckets as JSON
type GeminiKeywordProvider struct {
	client  Client
	tier    ModelTier
	timeout time.Duration
}

// NewGeminiKeywordProvider wraps client. A zero timeout leaves the caller's deadline in charge.
func NewGeminiKeywordProvider(client Client, timeout time.Duration) *GeminiKeywordProvider {
	return &GeminiKeywordProvider{
		client:  client,
		tier:    TierLite,
		timeout: timeout,
	}
}

// Name implements KeywordProvider
func (p *GeminiKeywordProvider) Name() string { return string(ProviderGemini) }

// ExtractKeywords implements KeywordProvider
func (p *GeminiKeywordProvider) ExtractKeywords(ctx context.Context, text string) (map[string][]string, error) {
	prompt, err := prompts.Render(prompts.KeywordsFile, "extract-keywords", map[string]string{
		"JobDescription": text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build keyword prompt: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.client.GenerateJSON(ctx, prompt, p.tier)
	if err != nil {
		return nil, err
	}
	return ParseKeywordBuckets(raw)
}

// ParseKeywordBuckets validates an LLM response against the keyword bucket schema
// and decodes it. Empty items are dropped; nothing else is normalized here.
func ParseKeywordBuckets(raw string) (map[string][]string, error) {
	cleaned := CleanJSONBlock(raw)
	if strings.TrimSpace(cleaned) == "" {
		return map[string][]string{}, nil
	}
	if err := schemas.ValidateDocument(rootschemas.KeywordBuckets, []byte(cleaned)); err != nil {
		return nil, &ParseError{Message: "keyword buckets failed schema validation", Cause: err}
	}

	var decoded map[string][]string
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &ParseError{Message: "failed to decode keyword buckets", Cause: err}
	}

	result := make(map[string][]string, len(decoded))
	for bucket, items := range decoded {
		kept := make([]string, 0, len(items))
		for _, item := range items {
			if strings.TrimSpace(item) != "" {
				kept = append(kept, item)
			}
		}
		if len(kept) > 0 {
			result[bucket] = kept
		}
	}
	return result, nil
}
