package models

import (
	"time"
)

// Trace is a captured mock request and the response synthesized for it
type Trace struct {
	ID           string        `json:"id"`
	EndpointID   string        `json:"endpointId"`
	EndpointName string        `json:"endpointName"`
	CollectionID string        `json:"collectionId"`
	EndpointPath string        `json:"endpointPath"`
	Timestamp    time.Time     `json:"timestamp"`
	Duration     int64         `json:"duration"` // Nanoseconds, including the simulated delay
	DelayMs      int           `json:"delayMs"`
	Outcome      Outcome       `json:"outcome"`
	Scenario     string        `json:"scenario,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
	Request      TraceRequest  `json:"request"`
	Response     TraceResponse `json:"response"`
}

// TraceRequest is the captured request
type TraceRequest struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

// TraceResponse is the captured response
type TraceResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// TraceFilter narrows trace queries
type TraceFilter struct {
	EndpointID   string    `json:"endpointId,omitempty"`
	CollectionID string    `json:"collectionId,omitempty"`
	Method       string    `json:"method,omitempty"`
	Outcome      Outcome   `json:"outcome,omitempty"`
	Scenario     string    `json:"scenario,omitempty"` // Case-insensitive substring of the injected scenario
	StatusCode   int       `json:"statusCode,omitempty"`
	StartTime    time.Time `json:"startTime,omitempty"`
	EndTime      time.Time `json:"endTime,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}
