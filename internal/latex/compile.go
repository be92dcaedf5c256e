package latex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultCompiler is the LaTeX binary used when none is configured
	DefaultCompiler = "pdflatex"
	// DefaultTimeout bounds a single compilation
	DefaultTimeout = 30 * time.Second
)

// Compiler turns LaTeX source into a PDF
type Compiler interface {
	// Compile returns the PDF bytes (nil when none was produced) and the compiler log
	Compile(ctx context.Context, source string) (artifact []byte, log string, err error)
}

// PDFLaTeX runs a pdflatex-compatible binary in a scratch directory
type PDFLaTeX struct {
	Binary  string
	Timeout time.Duration
}

// NewPDFLaTeX creates a compiler. Empty binary and zero timeout select the defaults.
func NewPDFLaTeX(binary string, timeout time.Duration) *PDFLaTeX {
	if binary == "" {
		binary = DefaultCompiler
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PDFLaTeX{Binary: binary, Timeout: timeout}
}

// Compile implements Compiler. A PDF produced despite errors is still returned
// alongside a *CompilationError so callers can measure it.
func (c *PDFLaTeX) Compile(ctx context.Context, source string) ([]byte, string, error) {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return nil, "", &CompilationError{
			Message: fmt.Sprintf("%s not found in PATH. Please install a LaTeX distribution (e.g., TeX Live, MiKTeX)", c.Binary),
			Cause:   err,
		}
	}

	workDir, err := os.MkdirTemp("", "latex-compile-*")
	if err != nil {
		return nil, "", &CompilationError{Message: "failed to create temporary working directory", Cause: err}
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	texPath := filepath.Join(workDir, "main.tex")
	if err := os.WriteFile(texPath, []byte(source), 0644); err != nil {
		return nil, "", &CompilationError{Message: "failed to write LaTeX source", Cause: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Binary,
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-output-directory", workDir,
		texPath)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	runErr := cmd.Run()
	logOutput := output.String()

	// The caller's own cancellation or deadline is reported as such, not as
	// the compile timeout.
	if err := ctx.Err(); err != nil {
		return nil, logOutput, &CompilationError{
			Message:   "compilation cancelled",
			LogOutput: logOutput,
			Cause:     err,
		}
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, logOutput, &CompilationError{
			Message:   fmt.Sprintf("compilation timed out after %s", c.Timeout),
			LogOutput: logOutput,
			Cause:     runCtx.Err(),
		}
	}

	artifact, readErr := os.ReadFile(filepath.Join(workDir, "main.pdf"))
	if readErr != nil {
		return nil, logOutput, &CompilationError{
			Message:   "LaTeX compilation failed: PDF was not generated",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}
	if runErr != nil {
		return artifact, logOutput, &CompilationError{
			Message:   "LaTeX compilation completed with errors (PDF may be incomplete)",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}
	return artifact, logOutput, nil
}

// Available reports which of the named binaries are on PATH
func Available(binaries ...string) map[string]bool {
	out := make(map[string]bool, len(binaries))
	for _, b := range binaries {
		_, err := exec.LookPath(b)
		out[b] = err == nil
	}
	return out
}
