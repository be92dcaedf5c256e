package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/ats-tailor/internal/types"
)

// InvalidInputError is returned before any stage runs when the job or profile is malformed
type InvalidInputError struct {
	Message string
	Cause   error
}

func (e *InvalidInputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Cause
}

// RenderOverflowError is returned when the renderer could not fit the
// document on one page within its attempt budget
type RenderOverflowError struct {
	Message   string
	PageCount int
	Trims     []string
	Attempts  []types.RenderAttempt
}

func (e *RenderOverflowError) Error() string {
	return fmt.Sprintf("PDF render failed (pages=%d): %s | trims=[%s]",
		e.PageCount, e.Message, strings.Join(e.Trims, "; "))
}
