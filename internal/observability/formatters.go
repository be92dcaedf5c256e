// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/ats-tailor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		// Truncate long lines
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// moreLine reports how many items were left out of a list
func moreLine(sb *strings.Builder, total int, noun string) {
	if total > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more %s\n", total-maxItemsToShow, noun))
	}
}

// PrintExtraction outputs the top ranked keywords and bucket sizes.
func (p *Printer) PrintExtraction(extraction *types.KeywordExtraction, decision types.ProviderDecision) {
	if extraction == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Ranked keywords: %d\n", len(extraction.RankedKeywords)))
	if decision.Provider != "" {
		sb.WriteString(fmt.Sprintf("LLM provider:    %s", decision.Provider))
		if decision.Fallback {
			sb.WriteString(fmt.Sprintf(" (fallback: %s)", decision.Reason))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	count := min(len(extraction.RankedKeywords), maxItemsToShow)
	for i := 0; i < count; i++ {
		rk := extraction.RankedKeywords[i]
		sb.WriteString(fmt.Sprintf("  • %s [%s] %.3f\n", rk.Keyword, rk.Category, rk.Weight))
	}
	moreLine(&sb, len(extraction.RankedKeywords), "keywords")

	sb.WriteString("\n")
	for _, category := range types.Categories() {
		sb.WriteString(fmt.Sprintf("%-17s %d\n", string(category)+":", len(extraction.Keywords.Get(category))))
	}

	p.printBox("EXTRACTED KEYWORDS", sb.String())
}

// PrintMapping outputs the matched/partial/missing partition.
func (p *Printer) PrintMapping(mapping *types.KeywordMapping, decision types.ProviderDecision) {
	if mapping == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Provider: %s", decision.Provider))
	if decision.Fallback {
		sb.WriteString(" (fallback)")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Matched: %d  Partial: %d  Missing: %d\n\n",
		len(mapping.Matched), len(mapping.Partial), len(mapping.Missing)))

	count := min(len(mapping.Matched), maxItemsToShow)
	for i := 0; i < count; i++ {
		entry := mapping.Matched[i]
		sb.WriteString(fmt.Sprintf("  ✓ %s (%.2f)\n", entry.Keyword, entry.SimilarityValue()))
	}
	moreLine(&sb, len(mapping.Matched), "matched")

	if len(mapping.Missing) > 0 {
		sb.WriteString("\nGaps:\n")
		count = min(len(mapping.Missing), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", mapping.Missing[i].Keyword))
		}
		moreLine(&sb, len(mapping.Missing), "gaps")
	}

	p.printBox("KEYWORD MAPPING", sb.String())
}

// PrintScore outputs the overall score, its breakdown and explanations.
func (p *Printer) PrintScore(title string, score *types.ATSScore) {
	if score == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Score: %.2f / 10\n\n", score.Score))
	sb.WriteString(fmt.Sprintf("Keyword coverage: %.2f\n", score.Breakdown.KeywordCoverage))
	sb.WriteString(fmt.Sprintf("Role relevance:   %.2f\n", score.Breakdown.RoleRelevance))
	sb.WriteString(fmt.Sprintf("Seniority:        %.2f\n", score.Breakdown.Seniority))
	sb.WriteString(fmt.Sprintf("Conciseness:      %.2f\n", score.Breakdown.Conciseness))
	sb.WriteString(fmt.Sprintf("Education:        %.2f\n", score.Breakdown.Education))

	if len(score.Explanations) > 0 {
		sb.WriteString("\n")
		for _, line := range score.Explanations {
			sb.WriteString(fmt.Sprintf("  • %s\n", line))
		}
	}

	if title == "" {
		title = "ATS SCORE"
	}
	p.printBox(title, sb.String())
}

// PrintOptimizer outputs one line per optimizer round with its changes.
func (p *Printer) PrintOptimizer(result *types.OptimizerResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Iterations: %d  Final score: %.2f\n", len(result.Iterations), result.FinalScore))

	for _, it := range result.Iterations {
		sb.WriteString(fmt.Sprintf("\n#%d  %.2f -> %.2f\n", it.Iteration, it.ScoreBefore, it.ScoreAfter))
		count := min(len(it.Changes), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", it.Changes[i]))
		}
		moreLine(&sb, len(it.Changes), "changes")
	}

	p.printBox("OPTIMIZER", sb.String())
}

// PrintRenderer outputs every render attempt and the final trims.
func (p *Printer) PrintRenderer(result *types.RendererResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	status := "ok"
	if !result.Succeeded() {
		status = "overflow"
	}
	sb.WriteString(fmt.Sprintf("Status: %s  Pages: %d\n", status, result.PageCount))
	if result.PDFPath != "" {
		sb.WriteString(fmt.Sprintf("PDF: %s\n", result.PDFPath))
	}

	for _, attempt := range result.RenderAttempts {
		sb.WriteString(fmt.Sprintf("\nAttempt %d: %d page(s), %d trim(s)\n", attempt.Attempt, attempt.PageCount, len(attempt.Trims)))
	}

	if len(result.FinalTrims) > 0 {
		sb.WriteString("\nTrims:\n")
		count := min(len(result.FinalTrims), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", result.FinalTrims[i]))
		}
		moreLine(&sb, len(result.FinalTrims), "trims")
	}

	p.printBox("RENDER", sb.String())
}
