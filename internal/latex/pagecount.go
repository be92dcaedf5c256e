package latex

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// PageCounter measures a compiled document
type PageCounter interface {
	Count(ctx context.Context, artifact []byte, log string) (int, error)
}

var outputWrittenRe = regexp.MustCompile(`Output written on .*\((\d+) page`)

// ToolPageCounter counts pages with pdfinfo, then ghostscript, then the compiler log
type ToolPageCounter struct{}

// NewToolPageCounter returns a ToolPageCounter
func NewToolPageCounter() *ToolPageCounter {
	return &ToolPageCounter{}
}

// Count implements PageCounter. An empty artifact counts as zero pages.
func (ToolPageCounter) Count(ctx context.Context, artifact []byte, log string) (int, error) {
	if len(artifact) == 0 {
		return 0, nil
	}

	dir, err := os.MkdirTemp("", "latex-pages-*")
	if err != nil {
		return 0, &Error{Message: "failed to create temporary directory", Cause: err}
	}
	defer func() { _ = os.RemoveAll(dir) }()

	pdfPath := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(pdfPath, artifact, 0644); err != nil {
		return 0, &Error{Message: "failed to write PDF for measurement", Cause: err}
	}

	if count, err := countPagesWithPdfinfo(ctx, pdfPath); err == nil {
		return count, nil
	}
	if count, err := countPagesWithGhostscript(ctx, pdfPath); err == nil {
		return count, nil
	}
	if count, ok := CountFromLog(log); ok {
		return count, nil
	}
	return 0, &Error{
		Message: "failed to count PDF pages: neither pdfinfo nor ghostscript available. Please install poppler-utils (pdfinfo) or ghostscript",
	}
}

// CountFromLog parses the "Output written on ... (N pages" line of a pdflatex log
func CountFromLog(log string) (int, bool) {
	m := outputWrittenRe.FindStringSubmatch(log)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func countPagesWithPdfinfo(ctx context.Context, pdfPath string) (int, error) {
	output, err := exec.CommandContext(ctx, "pdfinfo", pdfPath).Output()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo command failed: %w", err)
	}
	return parsePdfinfo(string(output))
}

func parsePdfinfo(output string) (int, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			if count, err := strconv.Atoi(parts[1]); err == nil {
				return count, nil
			}
		}
	}
	return 0, fmt.Errorf("could not parse page count from pdfinfo output")
}

func countPagesWithGhostscript(ctx context.Context, pdfPath string) (int, error) {
	script := fmt.Sprintf("(%s) (r) file runpdfbegin pdfpagecount = quit", pdfPath)
	output, err := exec.CommandContext(ctx, "gs", "-q", "-dNODISPLAY", "-dNOSAFER", "-c", script).Output()
	if err != nil {
		return 0, fmt.Errorf("ghostscript command failed: %w", err)
	}
	outputStr := strings.TrimSpace(string(output))
	count, err := strconv.Atoi(outputStr)
	if err != nil {
		return 0, fmt.Errorf("could not parse page count from ghostscript output: %s", outputStr)
	}
	return count, nil
}
