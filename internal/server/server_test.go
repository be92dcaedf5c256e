package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/ats-tailor/internal/embedding"
	"github.com/jonathan/ats-tailor/internal/keywords"
	"github.com/jonathan/ats-tailor/internal/mapping"
	"github.com/jonathan/ats-tailor/internal/optimizer"
	"github.com/jonathan/ats-tailor/internal/pipeline"
	"github.com/jonathan/ats-tailor/internal/rendering"
	"github.com/jonathan/ats-tailor/internal/storage"
	"github.com/jonathan/ats-tailor/internal/types"
	"github.com/jonathan/ats-tailor/internal/vectorindex"
)

var fakePDF = []byte("%PDF-1.4 fake")

type mockCompiler struct{}

func (mockCompiler) Compile(context.Context, string) ([]byte, string, error) {
	return fakePDF, "", nil
}

type fixedPages int

func (f fixedPages) Count(context.Context, []byte, string) (int, error) {
	return int(f), nil
}

// brokenStore fails every write
type brokenStore struct {
	storage.ArtifactStore
}

func (brokenStore) Save(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

type testServer struct {
	*Server
	store *storage.LocalStore
	logs  *observer.ObservedLogs
}

func newTestServer(t *testing.T, pages int, wrap func(storage.ArtifactStore) storage.ArtifactStore) *testServer {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	var store storage.ArtifactStore = local
	if wrap != nil {
		store = wrap(local)
	}

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	mapper := mapping.NewMapper(embedding.NewHashingProvider(0), vectorindex.NewMemoryFactory(), mapping.DefaultThresholds(), logger)
	assembler := rendering.NewAssembler(0)
	p := pipeline.New(pipeline.Components{
		Extractor: keywords.NewExtractor(nil, 0, logger),
		Mapper:    mapper,
		Optimizer: optimizer.New(mapper, 0, 0, logger),
		Assembler: assembler,
		Renderer:  rendering.NewRenderer(assembler, mockCompiler{}, fixedPages(pages), 0, logger),
		Store:     store,
		Logger:    logger,
	})

	s := New(Config{Port: 0}, p, logger)
	s.probe = func(binaries ...string) map[string]bool {
		return map[string]bool{"pdflatex": true, "pdfinfo": false}
	}
	return &testServer{Server: s, store: local, logs: logs}
}

func generateBody(t *testing.T, runID string) *bytes.Reader {
	t.Helper()
	req := GenerateRequest{
		Job: types.JobDescription{
			Title:       "Senior Backend Engineer",
			Company:     "Acme",
			Description: "Senior engineer with Kubernetes, Go and PostgreSQL to build distributed systems.",
		},
		Profile: types.CandidateProfile{
			Experience: []string{"Built Go services on Kubernetes", "Led migration to PostgreSQL"},
			Skills:     []string{"Go", "Kubernetes"},
			Education:  []string{"BSc Computer Science"},
		},
		RunID: runID,
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func (s *testServer) do(method, path string, body *bytes.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["pdflatex"])
	assert.Equal(t, false, resp["pdfinfo"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodOptions, "/generate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGenerate_Success(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodPost, "/generate", generateBody(t, "run-ok"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result types.GenerateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-ok", result.RunID)
	assert.Equal(t, 1, result.PageCount)
	assert.NotEmpty(t, result.Keywords)

	w = s.do(http.MethodGet, "/status/run-ok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, pipeline.StepStorage, status.Stage)
	require.NotNil(t, status.Score)
	assert.Equal(t, result.ATSScore, *status.Score)

	w = s.do(http.MethodGet, "/runs/run-ok/artifacts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var artifacts ArtifactsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &artifacts))
	require.Len(t, artifacts.Artifacts, 2)
	assert.Equal(t, storage.AuditName, artifacts.Artifacts[0].Name)
	assert.Equal(t, storage.DocumentName, artifacts.Artifacts[1].Name)

	w = s.do(http.MethodGet, "/runs/run-ok/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, fakePDF, w.Body.Bytes())

	w = s.do(http.MethodGet, "/runs/run-ok/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var record types.AuditRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "run-ok", record.RunID)
}

func TestGenerate_AssignsRunID(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodPost, "/generate", generateBody(t, ""))
	require.Equal(t, http.StatusOK, w.Code)

	var result types.GenerateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.RunID)
}

func TestGenerate_InvalidJSON(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodPost, "/generate", bytes.NewReader([]byte("{not json")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_InvalidRunID(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodPost, "/generate", generateBody(t, "a/b"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "run_id")
}

func TestGenerate_MissingTitle(t *testing.T) {
	s := newTestServer(t, 1, nil)

	body := `{"job":{"title":"","description":"Go"},"profile":{}}`
	w := s.do(http.MethodPost, "/generate", bytes.NewReader([]byte(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid input")
}

func TestGenerate_Overflow(t *testing.T) {
	s := newTestServer(t, 2, nil)

	w := s.do(http.MethodPost, "/generate", generateBody(t, "run-long"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp OverflowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.PageCount)
	assert.Len(t, resp.RenderAttempts, rendering.DefaultMaxAttempts)

	w = s.do(http.MethodGet, "/status/run-long", nil)
	var status RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusFailed, status.Status)
	assert.Contains(t, status.Message, "pages=2")

	w = s.do(http.MethodGet, "/runs/run-long/pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerate_StoreFailure(t *testing.T) {
	s := newTestServer(t, 1, func(inner storage.ArtifactStore) storage.ArtifactStore {
		return brokenStore{ArtifactStore: inner}
	})

	w := s.do(http.MethodPost, "/generate", generateBody(t, "run-broken"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
	assert.Equal(t, 1, s.logs.FilterMessage("request failed").Len())
}

func TestGenerateStream(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodPost, "/generate/stream", generateBody(t, "run-stream"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"step":"extraction"`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, "event: complete")
	assert.True(t, strings.Index(body, "event: result") < strings.Index(body, "event: complete"))
}

func TestGenerateStream_Overflow(t *testing.T) {
	s := newTestServer(t, 2, nil)

	w := s.do(http.MethodPost, "/generate/stream", generateBody(t, "run-stream-long"))
	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, `"status":422`)
	assert.NotContains(t, body, "event: complete")
}

func TestScore(t *testing.T) {
	s := newTestServer(t, 1, nil)

	body := `{"job":{"title":"Platform Engineer","description":"Kubernetes"},"profile":{"skills":["Kubernetes"]}}`
	w := s.do(http.MethodPost, "/score", bytes.NewReader([]byte(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var result types.ScoreResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"kubernetes"}, result.Keywords)
	assert.Empty(t, result.Gaps)

	entries, err := os.ReadDir(s.store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStatus_NotFound(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodGet, "/status/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunAudit_NotFound(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodGet, "/runs/nothing/audit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunArtifacts_Empty(t *testing.T) {
	s := newTestServer(t, 1, nil)

	w := s.do(http.MethodGet, "/runs/nothing/artifacts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ArtifactsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Artifacts)
}

func TestRequestLogging(t *testing.T) {
	s := newTestServer(t, 1, nil)

	s.do(http.MethodGet, "/health", nil)

	entries := s.logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}
