// Package mapping links ranked job keywords to the profile entries that evidence them.
package mapping

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/ats-tailor/internal/embedding"
	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/jonathan/ats-tailor/internal/parsing"
	"github.com/jonathan/ats-tailor/internal/types"
	"github.com/jonathan/ats-tailor/internal/vectorindex"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provider names recorded for the lexical paths
const (
	ProviderTFIDF         = "TFIDF"
	ProviderTFIDFFallback = "TFIDF_FALLBACK"
)

// Default similarity thresholds
const (
	DefaultMatchThreshold   = 0.8
	DefaultPartialThreshold = 0.65
)

const (
	metaSection = "section"
	metaText    = "text"
)

// Thresholds decide how a similarity is classified
type Thresholds struct {
	Match   float64
	Partial float64
}

// DefaultThresholds returns the default match and partial thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{Match: DefaultMatchThreshold, Partial: DefaultPartialThreshold}
}

// Chunk is one non-empty, normalized profile entry
type Chunk struct {
	Section string
	Text    string
}

// Chunks flattens a profile into chunks in section order.
// Entries that are blank after trimming and normalization are skipped.
func Chunks(profile types.CandidateProfile) []Chunk {
	var chunks []Chunk
	for _, section := range profile.Sections() {
		for _, item := range section.Items {
			text := parsing.Normalize(strings.TrimSpace(item))
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{Section: section.Name, Text: text})
		}
	}
	return chunks
}

// Mapper maps ranked keywords to profile evidence. With an embedding provider
// it uses vector similarity and falls back to TF-IDF when the provider fails.
type Mapper struct {
	provider   embedding.Provider
	newIndex   vectorindex.Factory
	thresholds Thresholds
	logger     *zap.Logger
}

// NewMapper creates a Mapper. A nil provider selects the lexical path; a nil
// factory uses in-memory indexes and zero thresholds use DefaultThresholds.
func NewMapper(provider embedding.Provider, factory vectorindex.Factory, thresholds Thresholds, logger *zap.Logger) *Mapper {
	if factory == nil {
		factory = vectorindex.NewMemoryFactory()
	}
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	return &Mapper{
		provider:   provider,
		newIndex:   factory,
		thresholds: thresholds,
		logger:     logging.WithFields(logger, zap.String(logging.FieldStage, "mapping")),
	}
}

// Map partitions ranked into matched, partial and missing entries against
// profile. Provider failures degrade to the lexical path and are reported in
// the decision; only context cancellation is returned as an error.
func (m *Mapper) Map(ctx context.Context, ranked []types.RankedKeyword, profile types.CandidateProfile) (types.KeywordMapping, types.ProviderDecision, error) {
	if err := ctx.Err(); err != nil {
		return types.KeywordMapping{}, types.ProviderDecision{}, err
	}

	keywords := make([]string, 0, len(ranked))
	for _, rk := range ranked {
		keywords = append(keywords, rk.Keyword)
	}
	chunks := Chunks(profile)

	if m.provider != nil {
		mapping, err := m.mapWithEmbeddings(ctx, keywords, chunks)
		if err == nil {
			m.logDone(m.provider.Name(), mapping)
			return mapping, types.ProviderDecision{Provider: m.provider.Name()}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.KeywordMapping{}, types.ProviderDecision{}, ctxErr
		}

		m.logger.Warn("embedding mapping failed, using TF-IDF",
			zap.String(logging.FieldProvider, m.provider.Name()),
			zap.Error(err))
		mapping = m.mapLexical(keywords, chunks)
		m.logDone(ProviderTFIDFFallback, mapping)
		return mapping, types.ProviderDecision{
			Provider: ProviderTFIDFFallback,
			Fallback: true,
			Reason:   err.Error(),
		}, nil
	}

	mapping := m.mapLexical(keywords, chunks)
	m.logDone(ProviderTFIDF, mapping)
	return mapping, types.ProviderDecision{Provider: ProviderTFIDF}, nil
}

func (m *Mapper) mapWithEmbeddings(ctx context.Context, keywords []string, chunks []Chunk) (types.KeywordMapping, error) {
	mapping := types.NewKeywordMapping()
	if len(keywords) == 0 {
		return mapping, nil
	}
	if len(chunks) == 0 {
		return allMissing(keywords), nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var chunkVecs, keywordVecs [][]float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chunkVecs, err = m.provider.Embed(gctx, texts, embedding.KindPassage)
		return err
	})
	g.Go(func() error {
		var err error
		keywordVecs, err = m.provider.Embed(gctx, keywords, embedding.KindQuery)
		return err
	})
	if err := g.Wait(); err != nil {
		return mapping, err
	}

	name := m.provider.Name()
	chunkDim, err := embedding.CheckVectors(name, chunkVecs, len(chunks))
	if err != nil {
		return mapping, err
	}
	keywordDim, err := embedding.CheckVectors(name, keywordVecs, len(keywords))
	if err != nil {
		return mapping, err
	}
	if chunkDim != keywordDim {
		return mapping, &embedding.ProviderError{
			Provider: name,
			Message:  fmt.Sprintf("query dimension %d does not match passage dimension %d", keywordDim, chunkDim),
		}
	}

	index := m.newIndex()
	metadata := make([]vectorindex.Metadata, len(chunks))
	for i, c := range chunks {
		metadata[i] = vectorindex.Metadata{metaSection: c.Section, metaText: c.Text}
	}
	if err := index.Upsert(chunkVecs, metadata); err != nil {
		return mapping, &embedding.ProviderError{Provider: name, Message: "index upsert failed", Cause: err}
	}
	m.logger.Debug("profile indexed", zap.Int("vectors", index.Len()), zap.Int("dimension", chunkDim))

	for i, kw := range keywords {
		results := index.Query(keywordVecs[i], 1)
		if len(results) == 0 {
			mapping.Missing = append(mapping.Missing, types.MappingEntry{Keyword: kw})
			continue
		}
		m.place(&mapping, kw, results[0].Metadata[metaText], results[0].Similarity)
	}
	return mapping, nil
}

func (m *Mapper) mapLexical(keywords []string, chunks []Chunk) types.KeywordMapping {
	mapping := types.NewKeywordMapping()
	if len(keywords) == 0 {
		return mapping
	}
	if len(chunks) == 0 {
		return allMissing(keywords)
	}

	docs := make([]string, 0, len(keywords)+len(chunks))
	docs = append(docs, keywords...)
	for _, c := range chunks {
		docs = append(docs, c.Text)
	}
	model := FitTFIDF(docs)

	chunkVecs := make([]map[string]float64, len(chunks))
	for i, c := range chunks {
		chunkVecs[i] = model.Vector(c.Text)
	}

	for _, kw := range keywords {
		kv := model.Vector(kw)
		best, bestSim := 0, math.Inf(-1)
		for i, cv := range chunkVecs {
			if sim := SparseCosine(kv, cv); sim > bestSim {
				best, bestSim = i, sim
			}
		}
		m.place(&mapping, kw, chunks[best].Text, bestSim)
	}
	return mapping
}

// place appends kw to exactly one list of mapping
func (m *Mapper) place(mapping *types.KeywordMapping, kw, evidence string, similarity float64) {
	sim := clamp01(similarity)
	switch {
	case sim >= m.thresholds.Match:
		mapping.Matched = append(mapping.Matched, newEntry(kw, evidence, sim))
	case sim >= m.thresholds.Partial:
		mapping.Partial = append(mapping.Partial, newEntry(kw, evidence, sim))
	default:
		mapping.Missing = append(mapping.Missing, types.MappingEntry{Keyword: kw})
	}
}

func (m *Mapper) logDone(provider string, mapping types.KeywordMapping) {
	m.logger.Info("keywords mapped",
		zap.String(logging.FieldProvider, provider),
		zap.Int("matched", len(mapping.Matched)),
		zap.Int("partial", len(mapping.Partial)),
		zap.Int("missing", len(mapping.Missing)))
}

func allMissing(keywords []string) types.KeywordMapping {
	mapping := types.NewKeywordMapping()
	for _, kw := range keywords {
		mapping.Missing = append(mapping.Missing, types.MappingEntry{Keyword: kw})
	}
	return mapping
}

func newEntry(kw, evidence string, sim float64) types.MappingEntry {
	rounded := math.Round(sim*1000) / 1000
	return types.MappingEntry{Keyword: kw, Evidence: &evidence, Similarity: &rounded}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
