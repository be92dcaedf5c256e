package types

// MappingEntry links one ranked keyword to its best profile evidence.
// Evidence and Similarity are nil for missing keywords.
type MappingEntry struct {
	Keyword    string   `json:"keyword"`
	Evidence   *string  `json:"evidence"`
	Similarity *float64 `json:"similarity"`
}

// EvidenceText returns the evidence or an empty string
func (e MappingEntry) EvidenceText() string {
	if e.Evidence == nil {
		return ""
	}
	return *e.Evidence
}

// SimilarityValue returns the similarity or zero
func (e MappingEntry) SimilarityValue() float64 {
	if e.Similarity == nil {
		return 0
	}
	return *e.Similarity
}

// KeywordMapping partitions ranked keywords into matched, partial and missing
type KeywordMapping struct {
	Matched []MappingEntry `json:"matched"`
	Partial []MappingEntry `json:"partial"`
	Missing []MappingEntry `json:"missing"`
}

// NewKeywordMapping returns a mapping with all lists initialized
func NewKeywordMapping() KeywordMapping {
	return KeywordMapping{
		Matched: []MappingEntry{},
		Partial: []MappingEntry{},
		Missing: []MappingEntry{},
	}
}

// MissingKeywords returns the keywords of the missing entries
func (m KeywordMapping) MissingKeywords() []string {
	out := make([]string, 0, len(m.Missing))
	for _, entry := range m.Missing {
		out = append(out, entry.Keyword)
	}
	return out
}

// IsMissing reports whether keyword is neither matched nor partial
func (m KeywordMapping) IsMissing(keyword string) bool {
	for _, entry := range m.Matched {
		if entry.Keyword == keyword {
			return false
		}
	}
	for _, entry := range m.Partial {
		if entry.Keyword == keyword {
			return false
		}
	}
	return true
}

// ATSBreakdown holds the five sub-scores, each on a 0-10 scale
type ATSBreakdown struct {
	KeywordCoverage float64 `json:"keyword_coverage"`
	RoleRelevance   float64 `json:"role_relevance"`
	Seniority       float64 `json:"seniority"`
	Conciseness     float64 `json:"conciseness"`
	Education       float64 `json:"education"`
}

// ATSScore is the overall fit score with its breakdown and explanations
type ATSScore struct {
	Score        float64      `json:"score"`
	Breakdown    ATSBreakdown `json:"breakdown"`
	Explanations []string     `json:"explanations"`
}

// OptimizerIteration records one optimizer round
type OptimizerIteration struct {
	Iteration       int              `json:"iteration"`
	Changes         []string         `json:"changes"`
	ScoreBefore     float64          `json:"score_before"`
	ScoreAfter      float64          `json:"score_after"`
	MappingDecision ProviderDecision `json:"mapping_decision"`
}

// OptimizerResult is the outcome of the optimization loop
type OptimizerResult struct {
	OptimizedProfile CandidateProfile     `json:"optimized_resume"`
	Iterations       []OptimizerIteration `json:"iterations"`
	FinalScore       float64              `json:"final_score"`
	FinalScoreDetail ATSScore             `json:"final_score_detail"`
	FinalMapping     KeywordMapping       `json:"final_mapping"`
}

// ProviderDecision records which backend served a stage and whether it fell back
type ProviderDecision struct {
	Provider  string `json:"provider,omitempty"`
	Fallback  bool   `json:"fallback"`
	Reason    string `json:"reason,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

// Mapping passes recorded in an audit trail
const (
	MappingStageInitial   = "initial"
	MappingStageOptimizer = "optimizer"
	MappingStageFinal     = "final"
)

// MappingDecision is the provider decision of one mapping pass. Iteration is
// set for optimizer rounds only.
type MappingDecision struct {
	Stage     string `json:"stage"`
	Iteration int    `json:"iteration,omitempty"`
	ProviderDecision
}

// MappingDecisions lists every mapping pass of a generate run in order:
// the initial mapping, one entry per optimizer round, then the final mapping.
func MappingDecisions(initial ProviderDecision, optimized OptimizerResult, final ProviderDecision) []MappingDecision {
	out := make([]MappingDecision, 0, len(optimized.Iterations)+2)
	out = append(out, MappingDecision{Stage: MappingStageInitial, ProviderDecision: initial})
	for _, it := range optimized.Iterations {
		out = append(out, MappingDecision{
			Stage:            MappingStageOptimizer,
			Iteration:        it.Iteration,
			ProviderDecision: it.MappingDecision,
		})
	}
	return append(out, MappingDecision{Stage: MappingStageFinal, ProviderDecision: final})
}

// FirstFallback returns the earliest pass that fell back, if any
func FirstFallback(decisions []MappingDecision) (MappingDecision, bool) {
	for _, d := range decisions {
		if d.Fallback {
			return d, true
		}
	}
	return MappingDecision{}, false
}
