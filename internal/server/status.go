package server

import (
	"sync"
	"time"
)

// Run states
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunStatus is the tracked state of one generate run
type RunStatus struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusTracker keeps run statuses in memory. Statuses do not survive a restart;
// artifacts in the store do.
type StatusTracker struct {
	mu   sync.RWMutex
	runs map[string]*RunStatus
	now  func() time.Time
}

// NewStatusTracker creates an empty tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		runs: make(map[string]*RunStatus),
		now:  time.Now,
	}
}

// Start marks runID as running
func (t *StatusTracker) Start(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now().UTC()
	t.runs[runID] = &RunStatus{
		RunID:     runID,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Stage records the stage a running run has reached
func (t *StatusTracker) Stage(runID, stage string) {
	t.update(runID, func(s *RunStatus) { s.Stage = stage })
}

// Complete marks runID as completed with its final score
func (t *StatusTracker) Complete(runID string, score float64) {
	t.update(runID, func(s *RunStatus) {
		s.Status = StatusCompleted
		s.Score = &score
		s.Message = ""
	})
}

// Fail marks runID as failed with the error message
func (t *StatusTracker) Fail(runID, message string) {
	t.update(runID, func(s *RunStatus) {
		s.Status = StatusFailed
		s.Message = message
	})
}

// Get returns a copy of the status of runID
func (t *StatusTracker) Get(runID string) (RunStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.runs[runID]
	if !ok {
		return RunStatus{}, &ErrRunNotFound{RunID: runID}
	}
	return *s, nil
}

func (t *StatusTracker) update(runID string, fn func(*RunStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.runs[runID]
	if !ok {
		return
	}
	fn(s)
	s.UpdatedAt = t.now().UTC()
}
