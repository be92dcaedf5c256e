// Package server provides the HTTP API for generating and scoring tailored résumés.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/ats-tailor/internal/pipeline"
	"github.com/jonathan/ats-tailor/internal/storage"
)

// ErrRunNotFound indicates no status is tracked for a run
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalid    *pipeline.InvalidInputError
		overflow   *pipeline.RenderOverflowError
		validation *ErrValidation
		keyErr     *storage.KeyError
		notFound   *ErrRunNotFound
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &validation), errors.As(err, &keyErr):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &overflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
