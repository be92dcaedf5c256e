package rendering

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/ats-tailor/internal/latex"
	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/jonathan/ats-tailor/internal/parsing"
	"github.com/jonathan/ats-tailor/internal/types"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds the compile and trim loop
const DefaultMaxAttempts = 3

// LogExcerptChars is the length of the compiler log kept per attempt
const LogExcerptChars = 500

// OverflowMessage is reported when no attempt fits on one page
const OverflowMessage = "Unable to enforce 1-page limit after retries. Consider removing low-priority bullets or shortening content."

// Renderer compiles assembled documents until one fits on a single page
type Renderer struct {
	assembler   *Assembler
	compiler    latex.Compiler
	counter     latex.PageCounter
	maxAttempts int
	logger      *zap.Logger
}

// NewRenderer creates a Renderer. A non-positive maxAttempts selects DefaultMaxAttempts.
func NewRenderer(assembler *Assembler, compiler latex.Compiler, counter latex.PageCounter, maxAttempts int, logger *zap.Logger) *Renderer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Renderer{
		assembler:   assembler,
		compiler:    compiler,
		counter:     counter,
		maxAttempts: maxAttempts,
		logger:      logging.WithFields(logger, zap.String(logging.FieldStage, "renderer")),
	}
}

// Render runs compile, measure, then accept or trim and retry. The first
// attempt compiles initial as-is; each later attempt re-assembles profile
// after one overflow trim. Exhausting the attempts is reported in the result,
// not as an error; errors are reserved for cancellation and template failures.
func (r *Renderer) Render(ctx context.Context, profile types.CandidateProfile, initial types.AssemblerResult, heading Heading) (types.RendererResult, error) {
	current := profile.Clone()
	trims := append([]string{}, initial.TrimsApplied...)
	attempts := []types.RenderAttempt{}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.RendererResult{}, err
		}

		body := initial.LaTeXSource
		if attempt > 1 {
			reassembled := r.assembler.Assemble(current)
			body = reassembled.LaTeXSource
			trims = append(trims, reassembled.TrimsApplied...)
		}

		source, err := WrapDocument(DocumentData{Heading: heading, Body: body})
		if err != nil {
			return types.RendererResult{}, err
		}

		artifact, log, compileErr := r.compiler.Compile(ctx, source)
		if err := ctx.Err(); err != nil {
			return types.RendererResult{}, err
		}
		if compileErr != nil {
			r.logger.Warn("LaTeX compilation reported errors",
				zap.Int("attempt", attempt),
				zap.Error(compileErr))
		}

		pages, countErr := r.counter.Count(ctx, artifact, log)
		if countErr != nil {
			r.logger.Warn("page count failed", zap.Int("attempt", attempt), zap.Error(countErr))
			pages = 0
		}

		attempts = append(attempts, types.RenderAttempt{
			Attempt:    attempt,
			PageCount:  pages,
			Trims:      append([]string{}, trims...),
			LogExcerpt: parsing.Truncate(log, LogExcerptChars),
		})
		r.logger.Debug("render attempt",
			zap.Int("attempt", attempt),
			zap.Int("page_count", pages),
			zap.Int("trims", len(trims)))

		if pages == 1 {
			r.logger.Info("document rendered", zap.Int("attempts", attempt))
			return types.RendererResult{
				PageCount:      1,
				RenderAttempts: attempts,
				FinalTrims:     trims,
				Artifact:       artifact,
			}, nil
		}

		var step []string
		current, step = TrimForOverflow(current)
		trims = append(trims, step...)
	}

	last := attempts[len(attempts)-1].PageCount
	r.logger.Warn("document does not fit on one page",
		zap.Int("attempts", len(attempts)),
		zap.Int("page_count", last))
	return types.RendererResult{
		PageCount:      last,
		RenderAttempts: attempts,
		FinalTrims:     trims,
		Error:          OverflowMessage,
	}, nil
}

// Heading is the optional title block of the document
type Heading struct {
	Title   string
	Company string
}

// TrimForOverflow applies the single highest-priority trim that still has
// content to remove: long experience, long projects, any project, older
// experience, then education detail. It never modifies profile.
func TrimForOverflow(profile types.CandidateProfile) (types.CandidateProfile, []string) {
	out := profile.Clone()

	switch {
	case len(out.Experience) > 3:
		removed := pop(&out.Experience)
		return out, []string{fmt.Sprintf("Overflow trim: removed experience bullet '%s...'", parsing.Truncate(removed, 50))}
	case len(out.Projects) > 2:
		removed := pop(&out.Projects)
		return out, []string{fmt.Sprintf("Overflow trim: removed project bullet '%s...'", parsing.Truncate(removed, 50))}
	case len(out.Projects) > 0:
		removed := pop(&out.Projects)
		return out, []string{fmt.Sprintf("Overflow trim: dropped project '%s...'", parsing.Truncate(removed, 50))}
	case len(out.Experience) > 2:
		removed := pop(&out.Experience)
		return out, []string{fmt.Sprintf("Overflow trim: collapsed older experience '%s...'", parsing.Truncate(removed, 50))}
	}

	changed := false
	for i, edu := range out.Education {
		degree := strings.TrimSpace(strings.SplitN(edu, ",", 2)[0])
		if degree != edu {
			changed = true
		}
		out.Education[i] = degree
	}
	if changed {
		return out, []string{"Overflow trim: reduced education detail to degree name"}
	}
	return out, []string{"Overflow trim: no-op (no more content to drop)"}
}

func pop(items *[]string) string {
	s := *items
	last := s[len(s)-1]
	*items = s[:len(s)-1]
	return last
}
