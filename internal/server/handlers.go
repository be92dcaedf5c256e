package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/jonathan/ats-tailor/internal/pipeline"
	"github.com/jonathan/ats-tailor/internal/storage"
	"github.com/jonathan/ats-tailor/internal/types"
)

// GenerateRequest represents the request body for /generate
type GenerateRequest struct {
	Job     types.JobDescription   `json:"job"`
	Profile types.CandidateProfile `json:"profile"`
	RunID   string                 `json:"run_id,omitempty"`
}

// ScoreRequest represents the request body for /score
type ScoreRequest struct {
	Job     types.JobDescription   `json:"job"`
	Profile types.CandidateProfile `json:"profile"`
}

// OverflowResponse is returned with 422 when the document cannot fit one page
type OverflowResponse struct {
	Error          string                `json:"error"`
	PageCount      int                   `json:"page_count"`
	Trims          []string              `json:"trims"`
	RenderAttempts []types.RenderAttempt `json:"render_attempts"`
}

// ArtifactInfo names one stored artifact
type ArtifactInfo struct {
	Name    string `json:"name"`
	Locator string `json:"locator"`
}

// ArtifactsResponse represents the response for /runs/{run_id}/artifacts
type ArtifactsResponse struct {
	RunID     string         `json:"run_id"`
	Artifacts []ArtifactInfo `json:"artifacts"`
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// checkRunID rejects ids that cannot name an artifact namespace
func checkRunID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return &ErrValidation{Field: "run_id", Message: "must be a non-empty name without path separators"}
	}
	return nil
}

// writeError maps err onto its status code; overflow carries the render history
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	var overflow *pipeline.RenderOverflowError
	if errors.As(err, &overflow) {
		s.jsonResponse(w, status, OverflowResponse{
			Error:          err.Error(),
			PageCount:      overflow.PageCount,
			Trims:          overflow.Trims,
			RenderAttempts: overflow.Attempts,
		})
		return
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// generate runs the pipeline for runID while tracking its status
func (s *Server) generate(ctx context.Context, runID string, req GenerateRequest, onProgress pipeline.ProgressCallback) (*types.GenerateResult, error) {
	s.tracker.Start(runID)
	p := s.pipeline.WithProgress(func(e pipeline.ProgressEvent) {
		s.tracker.Stage(runID, e.Step)
		if onProgress != nil {
			onProgress(e)
		}
	})

	result, err := p.Generate(ctx, req.Job, req.Profile, runID)
	if err != nil {
		s.tracker.Fail(runID, err.Error())
		s.logger.Warn("generate failed", zap.String(logging.FieldRunID, runID), zap.Error(err))
		return nil, err
	}
	s.tracker.Complete(runID, result.ATSScore)
	return result, nil
}

// parseGenerate decodes a generate request and settles its run id
func parseGenerate(w http.ResponseWriter, r *http.Request) (GenerateRequest, error) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		return req, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return req, checkRunID(req.RunID)
}

// handleGenerate runs the full pipeline and returns the result
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := parseGenerate(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.generate(r.Context(), req.RunID, req, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleGenerateStream runs the pipeline and streams progress as server-sent events
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseGenerate(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.generate(r.Context(), req.RunID, req, func(e pipeline.ProgressEvent) {
		// Stage outputs are in the final result; progress events stay small.
		e.Content = nil
		if werr := sse.WriteEvent("progress", e); werr != nil {
			s.logger.Debug("progress event dropped", zap.Error(werr))
		}
	})
	if err != nil {
		sse.WriteError(req.RunID, err.Error(), HTTPStatus(err))
		return
	}
	sse.WriteEvent("result", result) //nolint:errcheck
	sse.WriteComplete(req.RunID, StatusCompleted)
}

// handleScore scores a profile without optimizing or rendering
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.pipeline.Score(r.Context(), req.Job, req.Profile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleStatus returns the tracked status of a run
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.tracker.Get(r.PathValue("run_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// artifactStore returns the pipeline's store and the validated run id
func (s *Server) artifactStore(r *http.Request) (storage.ArtifactStore, string, error) {
	runID := r.PathValue("run_id")
	if err := checkRunID(runID); err != nil {
		return nil, "", err
	}
	store := s.pipeline.Store()
	if store == nil {
		return nil, "", storage.ErrNotFound
	}
	return store, runID, nil
}

// handleRunArtifacts lists the artifacts stored for a run
func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	store, runID, err := s.artifactStore(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	names, err := store.List(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	artifacts := make([]ArtifactInfo, 0, len(names))
	for _, name := range names {
		artifacts = append(artifacts, ArtifactInfo{Name: name, Locator: store.Locate(runID, name)})
	}
	s.jsonResponse(w, http.StatusOK, ArtifactsResponse{RunID: runID, Artifacts: artifacts})
}

// handleRunAudit returns the stored audit record of a run
func (s *Server) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	store, runID, err := s.artifactStore(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := store.Get(r.Context(), store.Locate(runID, storage.AuditName))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// handleRunPDF downloads the rendered PDF of a run
func (s *Server) handleRunPDF(w http.ResponseWriter, r *http.Request) {
	store, runID, err := s.artifactStore(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := store.Get(r.Context(), store.Locate(runID, storage.DocumentName))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+storage.DocumentName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}
