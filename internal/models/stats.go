package models

import (
	"sync/atomic"
	"time"
)

// GlobalStats aggregates request statistics across all endpoints
type GlobalStats struct {
	TotalRequests      int64          `json:"totalRequests"`
	TotalErrors        int64          `json:"totalErrors"`
	ValidationFailures int64          `json:"validationFailures"`
	InjectedScenarios  int64          `json:"injectedScenarios"`
	TotalEndpoints     int            `json:"totalEndpoints"`
	TotalCollections   int            `json:"totalCollections"`
	AvgResponseTimeMs  float64        `json:"avgResponseTimeMs"`
	RequestsPerSecond  float64        `json:"requestsPerSecond"`
	StartTime          time.Time      `json:"startTime"`
	Uptime             string         `json:"uptime"`
	TopEndpoints       []EndpointStat `json:"topEndpoints"`
	RecentErrors       []ErrorStat    `json:"recentErrors"`
	RequestsByHour     []HourlyStat   `json:"requestsByHour"`
}

// CollectionStats aggregates statistics for the endpoints of one collection
type CollectionStats struct {
	CollectionID      string         `json:"collectionId"`
	CollectionName    string         `json:"collectionName"`
	TotalRequests     int64          `json:"totalRequests"`
	TotalErrors       int64          `json:"totalErrors"`
	AvgResponseTimeMs float64        `json:"avgResponseTimeMs"`
	Endpoints         []EndpointStat `json:"endpoints"`
}

// EndpointStat is a snapshot of one endpoint's statistics
type EndpointStat struct {
	EndpointID         string  `json:"endpointId"`
	CollectionID       string  `json:"collectionId"`
	Method             string  `json:"method"`
	Path               string  `json:"path"`
	TotalRequests      int64   `json:"totalRequests"`
	TotalErrors        int64   `json:"totalErrors"`
	ValidationFailures int64   `json:"validationFailures"`
	InjectedScenarios  int64   `json:"injectedScenarios"`
	AvgResponseTimeMs  float64 `json:"avgResponseTimeMs"`
	MinResponseTimeMs  float64 `json:"minResponseTimeMs"`
	MaxResponseTimeMs  float64 `json:"maxResponseTimeMs"`
	AvgDelayMs         float64 `json:"avgDelayMs"`
	LastRequestTime    string  `json:"lastRequestTime,omitempty"`
}

// ErrorStat is one non-2xx response
type ErrorStat struct {
	Timestamp  time.Time `json:"timestamp"`
	EndpointID string    `json:"endpointId"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	StatusCode int       `json:"statusCode"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error"`
}

// HourlyStat counts requests in one hour bucket
type HourlyStat struct {
	Hour     string `json:"hour"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

// AtomicEndpointStat holds live counters for one endpoint
type AtomicEndpointStat struct {
	EndpointID         string
	CollectionID       string
	Method             string
	Path               string
	TotalRequests      atomic.Int64
	TotalErrors        atomic.Int64
	ValidationFailures atomic.Int64
	InjectedScenarios  atomic.Int64
	TotalTimeNs        atomic.Int64
	MinTimeNs          atomic.Int64
	MaxTimeNs          atomic.Int64
	TotalDelayMs       atomic.Int64
	LastRequestTime    atomic.Value // stores time.Time
}

// ToEndpointStat converts the live counters into a snapshot
func (a *AtomicEndpointStat) ToEndpointStat() EndpointStat {
	totalReqs := a.TotalRequests.Load()

	var avgMs, avgDelay float64
	if totalReqs > 0 {
		avgMs = float64(a.TotalTimeNs.Load()) / float64(totalReqs) / 1e6
		avgDelay = float64(a.TotalDelayMs.Load()) / float64(totalReqs)
	}

	var lastReqTime string
	if t, ok := a.LastRequestTime.Load().(time.Time); ok && !t.IsZero() {
		lastReqTime = t.Format(time.RFC3339)
	}

	return EndpointStat{
		EndpointID:         a.EndpointID,
		CollectionID:       a.CollectionID,
		Method:             a.Method,
		Path:               a.Path,
		TotalRequests:      totalReqs,
		TotalErrors:        a.TotalErrors.Load(),
		ValidationFailures: a.ValidationFailures.Load(),
		InjectedScenarios:  a.InjectedScenarios.Load(),
		AvgResponseTimeMs:  avgMs,
		MinResponseTimeMs:  float64(a.MinTimeNs.Load()) / 1e6,
		MaxResponseTimeMs:  float64(a.MaxTimeNs.Load()) / 1e6,
		AvgDelayMs:         avgDelay,
		LastRequestTime:    lastReqTime,
	}
}
