package remote

import "sync/atomic"

// Stats collects request counters for one client. All methods are safe
// for concurrent use and tolerate a nil receiver (collection disabled).
type Stats struct {
	listAttempts   atomic.Int64
	listRetries    atomic.Int64
	updateAttempts atomic.Int64
}

func (s *Stats) IncListAttempt() {
	if s != nil {
		s.listAttempts.Add(1)
	}
}

func (s *Stats) IncListRetry() {
	if s != nil {
		s.listRetries.Add(1)
	}
}

func (s *Stats) IncUpdateAttempt() {
	if s != nil {
		s.updateAttempts.Add(1)
	}
}

func (s *Stats) ListAttempts() int64 {
	if s == nil {
		return 0
	}
	return s.listAttempts.Load()
}

func (s *Stats) ListRetries() int64 {
	if s == nil {
		return 0
	}
	return s.listRetries.Load()
}

func (s *Stats) UpdateAttempts() int64 {
	if s == nil {
		return 0
	}
	return s.updateAttempts.Load()
}
