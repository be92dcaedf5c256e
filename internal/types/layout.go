package types

import "time"

// SectionBudgets is the estimated line usage per section
type SectionBudgets struct {
	TotalLines      int `json:"total_lines"`
	ExperienceLines int `json:"experience_lines"`
	ProjectLines    int `json:"project_lines"`
	SkillsLines     int `json:"skills_lines"`
	EducationLines  int `json:"education_lines"`
	Limit           int `json:"limit"`
}

// WithinLimit reports whether the total fits the line limit
func (b SectionBudgets) WithinLimit() bool {
	return b.TotalLines <= b.Limit
}

// AssemblerResult is the laid-out document body
type AssemblerResult struct {
	LaTeXSource    string         `json:"latex_source"`
	SectionBudgets SectionBudgets `json:"section_budgets"`
	TrimsApplied   []string       `json:"trims_applied"`
}

// RenderAttempt records a single compile-and-measure attempt
type RenderAttempt struct {
	Attempt    int      `json:"attempt"`
	PageCount  int      `json:"page_count"`
	Trims      []string `json:"trims"`
	LogExcerpt string   `json:"log_excerpt"`
}

// RendererResult is the outcome of the render loop.
// Artifact holds the compiled document on success and is never serialized.
type RendererResult struct {
	PDFPath        string          `json:"pdf_path"`
	PageCount      int             `json:"page_count"`
	RenderAttempts []RenderAttempt `json:"render_attempts"`
	FinalTrims     []string        `json:"final_trims"`
	Error          string          `json:"error,omitempty"`
	Artifact       []byte          `json:"-"`
}

// Succeeded reports whether the renderer produced a one-page artifact
func (r *RendererResult) Succeeded() bool {
	return r != nil && r.Error == "" && r.PageCount == 1
}

// AuditRecord is the full trace of one generate run. MappingProvider is the
// provider of the final mapping; MappingFallback is set when any mapping pass
// fell back, with the first such reason in MappingReason.
type AuditRecord struct {
	RunID             string             `json:"run_id"`
	CreatedAt         time.Time          `json:"created_at"`
	Job               JobDescription     `json:"job"`
	Profile           CandidateProfile   `json:"profile"`
	Extraction        *KeywordExtraction `json:"extraction,omitempty"`
	Mapping           *KeywordMapping    `json:"mapping,omitempty"`
	ScoreDetail       *ATSScore          `json:"score_detail,omitempty"`
	Optimizer         *OptimizerResult   `json:"optimizer,omitempty"`
	Assembler         *AssemblerResult   `json:"assembler,omitempty"`
	Renderer          *RendererResult    `json:"renderer,omitempty"`
	FinalScore        float64            `json:"final_score"`
	MappingDecisions  []MappingDecision  `json:"mapping_decisions"`
	MappingProvider   string             `json:"mapping_provider,omitempty"`
	MappingFallback   bool               `json:"mapping_fallback"`
	MappingReason     string             `json:"mapping_fallback_reason,omitempty"`
	LLMProvider       string             `json:"llm_provider,omitempty"`
	LLMFallback       bool               `json:"llm_fallback"`
	LLMLatencyMS      int64              `json:"llm_latency_ms,omitempty"`
	LLMFallbackReason string             `json:"llm_fallback_reason,omitempty"`
}

// GenerateResult is returned by a full generate run
type GenerateResult struct {
	RunID        string            `json:"run_id"`
	DocumentBody string            `json:"latex_body"`
	PageCount    int               `json:"page_count"`
	ATSScore     float64           `json:"ats_score"`
	Keywords     []string          `json:"keywords"`
	Gaps         []string          `json:"gaps"`
	Extraction   KeywordExtraction `json:"extraction"`
	Mapping      KeywordMapping    `json:"mapping"`
	ScoreDetail  ATSScore          `json:"score_detail"`
	Optimizer    OptimizerResult   `json:"optimizer"`
	Assembler    AssemblerResult   `json:"assembler"`
	Renderer     RendererResult    `json:"renderer"`
	PDFPath      string            `json:"pdf_path"`
	AuditPath    string            `json:"audit_path"`
}

// ScoreResult is returned by a score-only run
type ScoreResult struct {
	ATSScore    float64           `json:"ats_score"`
	Keywords    []string          `json:"keywords"`
	Gaps        []string          `json:"gaps"`
	Extraction  KeywordExtraction `json:"extraction"`
	Mapping     KeywordMapping    `json:"mapping"`
	ScoreDetail ATSScore          `json:"score_detail"`
}
