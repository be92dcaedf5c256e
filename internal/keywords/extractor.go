// Package keywords extracts ranked, categorized keywords from job descriptions.
package keywords

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/ats-tailor/internal/llm"
	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/jonathan/ats-tailor/internal/parsing"
	"github.com/jonathan/ats-tailor/internal/types"
	"go.uber.org/zap"
)

// DefaultTopK is the number of ranked terms kept from the job text
const DefaultTopK = 32

// ReasonEmptyResponse marks an LLM call that returned no usable buckets
const ReasonEmptyResponse = "empty_response"

// Extractor ranks job-description terms and optionally merges LLM suggestions
type Extractor struct {
	provider llm.KeywordProvider
	topK     int
	logger   *zap.Logger
}

// NewExtractor creates an Extractor. provider may be nil to disable LLM augmentation.
func NewExtractor(provider llm.KeywordProvider, topK int, logger *zap.Logger) *Extractor {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Extractor{
		provider: provider,
		topK:     topK,
		logger:   logging.WithFields(logger, zap.String(logging.FieldStage, "extraction")),
	}
}

// Extract ranks and classifies the keywords of text. Provider failures are
// absorbed into the returned decision; only context cancellation is an error.
func (e *Extractor) Extract(ctx context.Context, text string) (types.KeywordExtraction, types.ProviderDecision, error) {
	extraction := types.KeywordExtraction{
		Keywords:       types.NewKeywordBuckets(),
		RankedKeywords: []types.RankedKeyword{},
	}
	var decision types.ProviderDecision

	tokens := parsing.Tokenize(parsing.Normalize(text))
	if len(tokens) == 0 {
		return extraction, decision, nil
	}

	var suggested map[string][]string
	if e.provider != nil {
		suggested, decision = e.suggest(ctx, text)
		if err := ctx.Err(); err != nil {
			return types.KeywordExtraction{}, decision, err
		}
	}

	ranked := RankTerms(strings.Join(tokens, " "), e.topK)
	buckets := types.NewKeywordBuckets()
	for _, rk := range ranked {
		buckets.Add(rk.Keyword, rk.Category)
	}

	for _, bucket := range bucketOrder(suggested) {
		for _, item := range suggested[bucket] {
			kw := parsing.Normalize(item)
			if kw == "" {
				continue
			}
			category, ok := types.ParseCategory(bucket)
			if !ok {
				category = Classify(kw)
			}
			ranked = append(ranked, types.RankedKeyword{Keyword: kw, Category: category, Weight: 1.0})
			buckets.Add(kw, category)
		}
	}

	ranked = dedupeRanked(ranked)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})

	extraction.RankedKeywords = ranked
	extraction.Keywords = buckets.Deduped()

	e.logger.Info("keywords extracted",
		zap.Int("ranked", len(ranked)),
		zap.Int("llm_suggested", countItems(suggested)))
	return extraction, decision, nil
}

func (e *Extractor) suggest(ctx context.Context, text string) (map[string][]string, types.ProviderDecision) {
	decision := types.ProviderDecision{Provider: e.provider.Name()}

	start := time.Now()
	suggested, err := e.provider.ExtractKeywords(ctx, text)
	decision.LatencyMS = time.Since(start).Milliseconds()

	switch {
	case err != nil:
		decision.Fallback = true
		decision.Reason = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			decision.Reason = "timeout: " + err.Error()
		}
		e.logger.Warn("LLM keyword extraction failed, using ranked terms only",
			zap.String(logging.FieldProvider, decision.Provider),
			zap.Error(err))
		return nil, decision
	case countItems(suggested) == 0:
		decision.Fallback = true
		decision.Reason = ReasonEmptyResponse
		e.logger.Warn("LLM keyword extraction returned nothing",
			zap.String(logging.FieldProvider, decision.Provider))
		return nil, decision
	}
	return suggested, decision
}

type termStat struct {
	term  string
	count int
	first int
}

// RankTerms scores the unigrams and bigrams of a stopword-free token stream
// by frequency and returns the topK as ranked keywords. Ties keep the order of
// first appearance; weights are relative to the top term, rounded to 3 decimals.
func RankTerms(text string, topK int) []types.RankedKeyword {
	words := parsing.Words(text)
	stats := make(map[string]*termStat)
	var order []*termStat
	add := func(term string, pos int) {
		if s, ok := stats[term]; ok {
			s.count++
			return
		}
		s := &termStat{term: term, count: 1, first: pos}
		stats[term] = s
		order = append(order, s)
	}
	for i, w := range words {
		add(w, 2*i)
		if i+1 < len(words) {
			add(w+" "+words[i+1], 2*i+1)
		}
	}
	if len(order) == 0 {
		return []types.RankedKeyword{}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})
	if topK > 0 && len(order) > topK {
		order = order[:topK]
	}

	maxCount := float64(order[0].count)
	ranked := make([]types.RankedKeyword, 0, len(order))
	for _, s := range order {
		ranked = append(ranked, types.RankedKeyword{
			Keyword:  s.term,
			Category: Classify(s.term),
			Weight:   round3(float64(s.count) / maxCount),
		})
	}
	return ranked
}

// bucketOrder lists the known categories first, then unknown bucket names sorted
func bucketOrder(buckets map[string][]string) []string {
	if len(buckets) == 0 {
		return nil
	}
	names := make([]string, 0, len(buckets))
	for _, c := range types.Categories() {
		if _, ok := buckets[string(c)]; ok {
			names = append(names, string(c))
		}
	}
	var unknown []string
	for name := range buckets {
		if _, ok := types.ParseCategory(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return append(names, unknown...)
}

func dedupeRanked(ranked []types.RankedKeyword) []types.RankedKeyword {
	seen := make(map[string]bool, len(ranked))
	out := make([]types.RankedKeyword, 0, len(ranked))
	for _, rk := range ranked {
		if seen[rk.Keyword] {
			continue
		}
		seen[rk.Keyword] = true
		out = append(out, rk)
	}
	return out
}

func countItems(buckets map[string][]string) int {
	n := 0
	for _, items := range buckets {
		n += len(items)
	}
	return n
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
