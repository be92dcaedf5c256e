// Package pipeline provides the high-level orchestration for tailoring a
// candidate profile against a job description.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/ats-tailor/internal/keywords"
	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/jonathan/ats-tailor/internal/mapping"
	"github.com/jonathan/ats-tailor/internal/observability"
	"github.com/jonathan/ats-tailor/internal/optimizer"
	"github.com/jonathan/ats-tailor/internal/rendering"
	"github.com/jonathan/ats-tailor/internal/scoring"
	"github.com/jonathan/ats-tailor/internal/storage"
	"github.com/jonathan/ats-tailor/internal/types"
)

// Stage names reported in progress events and log fields
const (
	StepExtraction = "extraction"
	StepMapping    = "mapping"
	StepScoring    = "scoring"
	StepOptimizer  = "optimizer"
	StepAssembler  = "assembler"
	StepRenderer   = "renderer"
	StepStorage    = "storage"
)

// Progress categories
const (
	CategoryAnalysis     = "analysis"
	CategoryOptimization = "optimization"
	CategoryRendering    = "rendering"
	CategoryPersistence  = "persistence"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Components are the stage implementations a Pipeline runs
type Components struct {
	Extractor *keywords.Extractor
	Mapper    *mapping.Mapper
	Optimizer *optimizer.Optimizer
	Assembler *rendering.Assembler
	Renderer  *rendering.Renderer
	// Store receives the PDF and audit record. A nil Store skips persistence.
	Store  storage.ArtifactStore
	Logger *zap.Logger
}

// Pipeline runs the tailoring stages. It holds no per-run state and may be
// shared across goroutines; WithProgress and WithPrinter return copies.
type Pipeline struct {
	extractor  *keywords.Extractor
	mapper     *mapping.Mapper
	optimizer  *optimizer.Optimizer
	assembler  *rendering.Assembler
	renderer   *rendering.Renderer
	store      storage.ArtifactStore
	logger     *zap.Logger
	printer    *observability.Printer
	onProgress ProgressCallback
	now        func() time.Time
}

// New creates a Pipeline from its components
func New(c Components) *Pipeline {
	return &Pipeline{
		extractor: c.Extractor,
		mapper:    c.Mapper,
		optimizer: c.Optimizer,
		assembler: c.Assembler,
		renderer:  c.Renderer,
		store:     c.Store,
		logger:    logging.WithFields(c.Logger),
		now:       time.Now,
	}
}

// Store returns the artifact store, which may be nil
func (p *Pipeline) Store() storage.ArtifactStore {
	return p.store
}

// WithProgress returns a copy of p that reports progress to cb
func (p *Pipeline) WithProgress(cb ProgressCallback) *Pipeline {
	cp := *p
	cp.onProgress = cb
	return &cp
}

// WithPrinter returns a copy of p that prints boxed stage summaries
func (p *Pipeline) WithPrinter(printer *observability.Printer) *Pipeline {
	cp := *p
	cp.printer = printer
	return &cp
}

// emitProgress calls the progress callback if configured
func (p *Pipeline) emitProgress(runID, step, category, message string, content any) {
	if p.onProgress != nil {
		p.onProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    runID,
			Content:  content,
		})
	}
}

func validateInputs(job types.JobDescription, profile types.CandidateProfile) error {
	if err := job.Validate(); err != nil {
		return &InvalidInputError{Message: "job description", Cause: err}
	}
	if err := profile.Validate(); err != nil {
		return &InvalidInputError{Message: "candidate profile", Cause: err}
	}
	return nil
}

// analysis is the output of the extract, map and score stages
type analysis struct {
	extraction  types.KeywordExtraction
	llmDecision types.ProviderDecision
	mapping     types.KeywordMapping
	mapDecision types.ProviderDecision
	score       types.ATSScore
}

func (p *Pipeline) analyze(ctx context.Context, runID string, job types.JobDescription, profile types.CandidateProfile) (analysis, error) {
	var a analysis
	var err error

	a.extraction, a.llmDecision, err = p.extractor.Extract(ctx, job.Description)
	if err != nil {
		return a, fmt.Errorf("keyword extraction failed: %w", err)
	}
	p.emitProgress(runID, StepExtraction, CategoryAnalysis,
		fmt.Sprintf("Extracted %d ranked keywords", len(a.extraction.RankedKeywords)), a.extraction)
	if p.printer != nil {
		p.printer.PrintExtraction(&a.extraction, a.llmDecision)
	}

	a.mapping, a.mapDecision, err = p.mapper.Map(ctx, a.extraction.RankedKeywords, profile)
	if err != nil {
		return a, fmt.Errorf("semantic mapping failed: %w", err)
	}
	p.emitProgress(runID, StepMapping, CategoryAnalysis,
		fmt.Sprintf("Mapped keywords: %d matched, %d partial, %d missing",
			len(a.mapping.Matched), len(a.mapping.Partial), len(a.mapping.Missing)), a.mapping)
	if p.printer != nil {
		p.printer.PrintMapping(&a.mapping, a.mapDecision)
	}

	a.score = scoring.Score(job, profile, a.extraction, a.mapping)
	p.emitProgress(runID, StepScoring, CategoryAnalysis,
		fmt.Sprintf("ATS score %.2f", a.score.Score), a.score)
	return a, nil
}

// Score extracts, maps and scores without optimizing, rendering or writing anything.
func (p *Pipeline) Score(ctx context.Context, job types.JobDescription, profile types.CandidateProfile) (*types.ScoreResult, error) {
	if err := validateInputs(job, profile); err != nil {
		return nil, err
	}

	a, err := p.analyze(ctx, "", job, profile)
	if err != nil {
		return nil, err
	}
	if p.printer != nil {
		p.printer.PrintScore("", &a.score)
	}

	p.logger.Info("profile scored",
		zap.Float64("ats_score", a.score.Score),
		zap.String("mapping_provider", a.mapDecision.Provider))

	return &types.ScoreResult{
		ATSScore:    a.score.Score,
		Keywords:    a.extraction.KeywordList(),
		Gaps:        a.mapping.MissingKeywords(),
		Extraction:  a.extraction,
		Mapping:     a.mapping,
		ScoreDetail: a.score,
	}, nil
}

// Generate runs the full pipeline: extract, map, score, optimize, re-map and
// re-score the optimized profile, assemble, render, then persist the PDF and
// audit record under runID. An empty runID gets a fresh UUID.
func (p *Pipeline) Generate(ctx context.Context, job types.JobDescription, profile types.CandidateProfile, runID string) (*types.GenerateResult, error) {
	if err := validateInputs(job, profile); err != nil {
		return nil, err
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := logging.ForStage(p.logger, runID, "generate")
	started := p.now()

	initial, err := p.analyze(ctx, runID, job, profile)
	if err != nil {
		return nil, err
	}

	optimized, err := p.optimizer.Optimize(ctx, job, profile, initial.extraction, initial.mapping, initial.score)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	p.emitProgress(runID, StepOptimizer, CategoryOptimization,
		fmt.Sprintf("Optimizer ran %d iteration(s), score %.2f", len(optimized.Iterations), optimized.FinalScore), optimized)
	if p.printer != nil {
		p.printer.PrintOptimizer(&optimized)
	}

	// The optimizer's own mapping may predate its last round; re-map the final profile.
	finalProfile := optimized.OptimizedProfile
	finalMapping, finalDecision, err := p.mapper.Map(ctx, initial.extraction.RankedKeywords, finalProfile)
	if err != nil {
		return nil, fmt.Errorf("final mapping failed: %w", err)
	}
	finalScore := scoring.Score(job, finalProfile, initial.extraction, finalMapping)
	if p.printer != nil {
		p.printer.PrintScore("FINAL ATS SCORE", &finalScore)
	}

	assembled := p.assembler.Assemble(finalProfile)
	p.emitProgress(runID, StepAssembler, CategoryRendering,
		fmt.Sprintf("Assembled %d estimated lines with %d trim(s)",
			assembled.SectionBudgets.TotalLines, len(assembled.TrimsApplied)), assembled.SectionBudgets)

	heading := rendering.Heading{Title: job.Title, Company: job.Company}
	rendered, err := p.renderer.Render(ctx, finalProfile, assembled, heading)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}
	if p.printer != nil {
		p.printer.PrintRenderer(&rendered)
	}
	if !rendered.Succeeded() {
		logger.Warn("render overflow",
			zap.Int("page_count", rendered.PageCount),
			zap.Int("attempts", len(rendered.RenderAttempts)))
		return nil, &RenderOverflowError{
			Message:   rendered.Error,
			PageCount: rendered.PageCount,
			Trims:     rendered.FinalTrims,
			Attempts:  rendered.RenderAttempts,
		}
	}
	p.emitProgress(runID, StepRenderer, CategoryRendering,
		fmt.Sprintf("Rendered one page in %d attempt(s)", len(rendered.RenderAttempts)), nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var auditPath string
	if p.store != nil {
		if len(rendered.Artifact) > 0 {
			locator, err := p.store.Save(ctx, runID, storage.DocumentName, rendered.Artifact)
			if err != nil {
				return nil, fmt.Errorf("failed to save PDF: %w", err)
			}
			rendered.PDFPath = locator
		}

		decisions := types.MappingDecisions(initial.mapDecision, optimized, finalDecision)
		fellBack, anyFallback := types.FirstFallback(decisions)
		record := types.AuditRecord{
			RunID:             runID,
			CreatedAt:         p.now().UTC(),
			Job:               job,
			Profile:           profile,
			Extraction:        &initial.extraction,
			Mapping:           &finalMapping,
			ScoreDetail:       &finalScore,
			Optimizer:         &optimized,
			Assembler:         &assembled,
			Renderer:          &rendered,
			FinalScore:        finalScore.Score,
			MappingDecisions:  decisions,
			MappingProvider:   finalDecision.Provider,
			MappingFallback:   anyFallback,
			MappingReason:     fellBack.Reason,
			LLMProvider:       initial.llmDecision.Provider,
			LLMFallback:       initial.llmDecision.Fallback,
			LLMLatencyMS:      initial.llmDecision.LatencyMS,
			LLMFallbackReason: initial.llmDecision.Reason,
		}
		auditPath, err = p.store.SaveJSON(ctx, runID, storage.AuditName, record)
		if err != nil {
			// A PDF without its audit record is never left behind.
			if rendered.PDFPath != "" {
				if delErr := p.store.Delete(context.WithoutCancel(ctx), runID, storage.DocumentName); delErr != nil {
					logger.Error("failed to remove PDF after audit save failure", zap.Error(delErr))
				}
			}
			return nil, fmt.Errorf("failed to save audit record: %w", err)
		}
		p.emitProgress(runID, StepStorage, CategoryPersistence, "Saved PDF and audit record", auditPath)
	}

	logger.Info("generate completed",
		zap.Float64("ats_score", finalScore.Score),
		zap.Int("optimizer_iterations", len(optimized.Iterations)),
		zap.Int("render_attempts", len(rendered.RenderAttempts)),
		zap.String(logging.FieldProvider, finalDecision.Provider),
		zap.Duration("elapsed", p.now().Sub(started)))

	return &types.GenerateResult{
		RunID:        runID,
		DocumentBody: assembled.LaTeXSource,
		PageCount:    rendered.PageCount,
		ATSScore:     finalScore.Score,
		Keywords:     initial.extraction.KeywordList(),
		Gaps:         finalMapping.MissingKeywords(),
		Extraction:   initial.extraction,
		Mapping:      finalMapping,
		ScoreDetail:  finalScore,
		Optimizer:    optimized,
		Assembler:    assembled,
		Renderer:     rendered,
		PDFPath:      rendered.PDFPath,
		AuditPath:    auditPath,
	}, nil
}
