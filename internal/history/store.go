package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invsync/inventory-sync-server/internal/syncer"
)

// Run is one completed batch synchronization, kept for the dashboard.
type Run struct {
	ID         string              `json:"id"`
	Target     string              `json:"target"`
	Source     string              `json:"source"` // "json" or "csv"
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Result     *syncer.BatchResult `json:"result"`
}

// Store keeps recent runs in memory, newest first, capped at a fixed
// count. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string // run IDs, newest first
	cap   int
}

// NewStore creates a store retaining at most capacity runs.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{
		runs: make(map[string]*Run),
		cap:  capacity,
	}
}

// Record stores a completed run and returns its assigned ID.
func (s *Store) Record(run *Run) string {
	run.ID = uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	s.order = append([]string{run.ID}, s.order...)

	for len(s.order) > s.cap {
		last := s.order[len(s.order)-1]
		s.order = s.order[:len(s.order)-1]
		delete(s.runs, last)
	}

	return run.ID
}

// Get retrieves a run by ID.
func (s *Store) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run, nil
}

// List returns recent runs, newest first. An empty target matches all.
func (s *Store) List(targetName string) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Run
	for _, id := range s.order {
		run := s.runs[id]
		if targetName != "" && run.Target != targetName {
			continue
		}
		out = append(out, run)
	}
	return out
}
