// Package status records the lifecycle of export runs so callers can poll
// the outcome of the most recent export of a session.
package status

import (
	"context"
	"sync"
	"time"
)

const (
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StatePartial   = "partial"
	StateFailed    = "failed"
)

// Status is the recorded state of one export.
type Status struct {
	ExportID string                 `json:"export_id"`
	State    string                 `json:"state"`
	Mode     string                 `json:"mode"`
	Message  string                 `json:"message,omitempty"`
	Start    *time.Time             `json:"start_time,omitempty"`
	End      *time.Time             `json:"end_time,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Store keeps the latest export status per session.
type Store interface {
	Set(ctx context.Context, sessionID string, st Status) error
	Get(ctx context.Context, sessionID string) (Status, bool, error)
	// Release drops the status of a session that has been replaced.
	Release(ctx context.Context, sessionID string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu sync.RWMutex
	m  map[string]Status
}

func NewMemory() *Memory { return &Memory{m: make(map[string]Status)} }

func (s *Memory) Set(_ context.Context, sessionID string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sessionID] = st
	return nil
}

func (s *Memory) Get(_ context.Context, sessionID string) (Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[sessionID]
	return st, ok, nil
}

func (s *Memory) Release(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sessionID)
	return nil
}

// Len reports how many sessions have a recorded status.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
