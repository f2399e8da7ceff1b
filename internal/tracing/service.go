package tracing

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasenjit/go-mockapi/internal/models"
)

// Service keeps a bounded history of mock request traces and fans new
// traces out to live subscribers
type Service struct {
	mu          sync.RWMutex
	traces      []*models.Trace
	maxTraces   int
	subscribers map[string]chan *models.Trace
	dropped     map[string]int // per subscriber
}

// NewService creates a new tracing service
func NewService(maxTraces int) *Service {
	if maxTraces <= 0 {
		maxTraces = 1000
	}

	return &Service{
		traces:      make([]*models.Trace, 0),
		maxTraces:   maxTraces,
		subscribers: make(map[string]chan *models.Trace),
		dropped:     make(map[string]int),
	}
}

// RecordTrace records a new trace
func (s *Service) RecordTrace(trace *models.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trace.ID == "" {
		trace.ID = uuid.New().String()
	}
	if trace.Timestamp.IsZero() {
		trace.Timestamp = time.Now()
	}

	s.traces = append(s.traces, trace)
	if len(s.traces) > s.maxTraces {
		s.traces = s.traces[len(s.traces)-s.maxTraces:]
	}

	// Sends never block, and holding the lock keeps Unsubscribe from closing a channel mid-send
	for id, ch := range s.subscribers {
		select {
		case ch <- trace:
		default:
			s.dropped[id]++
		}
	}
}

// GetTraces returns traces matching the filter, newest first
func (s *Service) GetTraces(filter *models.TraceFilter) []*models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Trace, 0)
	skipped := 0

	for i := len(s.traces) - 1; i >= 0; i-- {
		trace := s.traces[i]

		if filter != nil {
			if !matches(trace, filter) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
		}

		result = append(result, trace)

		if filter != nil && filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}

	return result
}

func matches(trace *models.Trace, filter *models.TraceFilter) bool {
	if filter.EndpointID != "" && trace.EndpointID != filter.EndpointID {
		return false
	}
	if filter.CollectionID != "" && trace.CollectionID != filter.CollectionID {
		return false
	}
	if filter.Method != "" && !strings.EqualFold(trace.Request.Method, filter.Method) {
		return false
	}
	if filter.Outcome != "" && trace.Outcome != filter.Outcome {
		return false
	}
	if filter.Scenario != "" && !strings.Contains(strings.ToLower(trace.Scenario), strings.ToLower(filter.Scenario)) {
		return false
	}
	if filter.StatusCode != 0 && trace.Response.StatusCode != filter.StatusCode {
		return false
	}
	if !filter.StartTime.IsZero() && trace.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && trace.Timestamp.After(filter.EndTime) {
		return false
	}
	return true
}

// GetTrace returns a single trace by ID
func (s *Service) GetTrace(id string) *models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, trace := range s.traces {
		if trace.ID == id {
			return trace
		}
	}

	return nil
}

// ClearTraces removes all traces
func (s *Service) ClearTraces() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces = make([]*models.Trace, 0)
}

// ClearTracesByCollection removes the traces of one collection
func (s *Service) ClearTracesByCollection(collectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]*models.Trace, 0)
	for _, trace := range s.traces {
		if trace.CollectionID != collectionID {
			filtered = append(filtered, trace)
		}
	}
	s.traces = filtered
}

// Subscribe creates a subscription for live traces
func (s *Service) Subscribe() (string, chan *models.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan *models.Trace, 100)
	s.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes a subscription and closes its channel
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
		delete(s.dropped, id)
	}
}

// Dropped returns how many traces a slow subscriber has missed
func (s *Service) Dropped(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped[id]
}

// GetStats returns tracing statistics
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"totalTraces":       len(s.traces),
		"maxTraces":         s.maxTraces,
		"activeSubscribers": len(s.subscribers),
	}
}
